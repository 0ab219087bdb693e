// Package payment defines the payment processor contract used by
// checkout and a simulated implementation.  Real gateway integration is
// out of scope; the simulator introduces a bounded, non-zero delay so
// that the hold countdown genuinely races the payment step.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnsupportedMethod is returned for payment methods the processor
// does not accept.
var ErrUnsupportedMethod = errors.New("unsupported payment method")

// ErrDeclined is returned when the simulated bank declines the charge.
// The charge had no effect; the caller may retry with the same hold.
var ErrDeclined = errors.New("payment declined")

// Processor charges an amount and returns an opaque transaction
// reference.  Implementations must honor context cancellation.
type Processor interface {
	Charge(ctx context.Context, amountCents int64, method string) (string, error)
}

// Simulated is a Processor that sleeps for a random duration between
// MinDelay and MaxDelay, then declines a DeclineRate fraction of
// charges and approves the rest.  The zero value uses a 200ms..1.5s
// window and never declines.
type Simulated struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	DeclineRate float64 // 0..1 fraction of charges declined after the delay
}

var acceptedMethods = map[string]bool{
	"card":   true,
	"upi":    true,
	"wallet": true,
}

// Charge simulates bank latency and returns a transaction reference of
// the form "TXN-<8 hex chars>", or ErrDeclined for the configured
// fraction of charges.  It returns ctx.Err() when the context is
// cancelled before the simulated bank responds.
func (s *Simulated) Charge(ctx context.Context, amountCents int64, method string) (string, error) {
	if !acceptedMethods[strings.ToLower(strings.TrimSpace(method))] {
		return "", ErrUnsupportedMethod
	}
	if amountCents <= 0 {
		return "", fmt.Errorf("invalid charge amount: %d", amountCents)
	}

	minD, maxD := s.MinDelay, s.MaxDelay
	if minD <= 0 {
		minD = 200 * time.Millisecond
	}
	if maxD < minD {
		maxD = minD + time.Second + 300*time.Millisecond
	}
	delay := minD
	if span := maxD - minD; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-t.C:
	}

	if s.DeclineRate > 0 && rand.Float64() < s.DeclineRate {
		return "", ErrDeclined
	}
	return "TXN-" + uuid.NewString()[:8], nil
}
