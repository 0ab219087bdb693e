package payment

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChargeReturnsTransactionRef(t *testing.T) {
	p := &Simulated{MinDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	ref, err := p.Charge(context.Background(), 2500, "card")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "TXN-"))
	assert.Len(t, ref, len("TXN-")+8)
}

func TestChargeDelayIsBounded(t *testing.T) {
	p := &Simulated{MinDelay: 10 * time.Millisecond, MaxDelay: 50 * time.Millisecond}

	start := time.Now()
	_, err := p.Charge(context.Background(), 100, "upi")
	require.NoError(t, err)
	elapsed := time.Since(start)
	assert.GreaterOrEqual(t, elapsed, 10*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

func TestChargeHonorsContextCancellation(t *testing.T) {
	p := &Simulated{MinDelay: time.Hour, MaxDelay: time.Hour}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := p.Charge(ctx, 100, "card")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChargeDeclineRate(t *testing.T) {
	always := &Simulated{MinDelay: time.Millisecond, MaxDelay: time.Millisecond, DeclineRate: 1}
	_, err := always.Charge(context.Background(), 100, "card")
	assert.ErrorIs(t, err, ErrDeclined)

	// The zero value never declines.
	never := &Simulated{MinDelay: time.Millisecond, MaxDelay: time.Millisecond}
	for i := 0; i < 20; i++ {
		_, err := never.Charge(context.Background(), 100, "card")
		require.NoError(t, err)
	}
}

func TestChargeRejectsUnknownMethod(t *testing.T) {
	p := &Simulated{MinDelay: time.Millisecond, MaxDelay: time.Millisecond}

	_, err := p.Charge(context.Background(), 100, "cheque")
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestChargeRejectsNonPositiveAmount(t *testing.T) {
	p := &Simulated{MinDelay: time.Millisecond, MaxDelay: time.Millisecond}

	_, err := p.Charge(context.Background(), 0, "card")
	assert.Error(t, err)
}
