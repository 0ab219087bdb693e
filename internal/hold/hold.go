// Package hold implements time-boxed reservation holds against the
// inventory ledger.  A hold is created when an attendee selects a ticket
// tier, keeps the tickets reserved while checkout collects attendee
// details and payment, and resolves to exactly one terminal state:
// expired, cancelled, committed, or failed.  Expiry, cancellation and
// commit on the same hold are serialized by the hold's mutex, so a
// racing timer and payment submission can never both win.
package hold

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/attendly/ticketing/internal/clock"
	"github.com/attendly/ticketing/internal/inventory"
	"github.com/attendly/ticketing/internal/model"
	"github.com/attendly/ticketing/internal/monitoring"
)

// State enumerates the lifecycle of a hold.  Active is the only
// non-terminal state.
type State string

const (
	StateActive    State = "ACTIVE"
	StateExpired   State = "EXPIRED"
	StateCancelled State = "CANCELLED"
	StateCommitted State = "COMMITTED"
	StateFailed    State = "FAILED" // commit persistence failed; reservation released
)

// Hold is a time-boxed claim on ledger inventory for one tier and
// quantity.  Quantity is fixed for the lifetime of a hold; changing the
// quantity means cancelling the hold and creating a new one.
type Hold struct {
	id             string
	eventID        uint64
	tierID         uint64
	quantity       int
	unitPriceCents int64
	createdAt      time.Time
	expiresAt      time.Time

	ledger *inventory.Ledger
	clk    clock.Clock

	mu    sync.Mutex
	state State
	token *inventory.Token
	timer *time.Timer
	done  chan struct{}
}

// ID returns the hold's opaque identifier.
func (h *Hold) ID() string { return h.id }

// EventID returns the event the hold was created for.
func (h *Hold) EventID() uint64 { return h.eventID }

// TierID returns the ticket tier the hold reserves.
func (h *Hold) TierID() uint64 { return h.tierID }

// Quantity returns the number of tickets reserved.
func (h *Hold) Quantity() int { return h.quantity }

// UnitPriceCents returns the tier price snapshotted at creation time.
func (h *Hold) UnitPriceCents() int64 { return h.unitPriceCents }

// ExpiresAt returns the fixed expiry timestamp.  The countdown is tied
// to the hold itself and is never restarted by unrelated edits.
func (h *Hold) ExpiresAt() time.Time { return h.expiresAt }

// Done returns a channel that is closed when the hold reaches any
// terminal state.  A checkout session selects on it to abort input
// collection when the countdown runs out.
func (h *Hold) Done() <-chan struct{} { return h.done }

// State returns the hold's current state, lazily transitioning to
// EXPIRED when the countdown has elapsed.
func (h *Hold) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.expireLocked(false)
	return h.state
}

// Remaining returns the time left on the countdown, or zero once the
// hold is no longer active.
func (h *Hold) Remaining() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.expireLocked(false)
	if h.state != StateActive {
		return 0
	}
	d := h.expiresAt.Sub(h.clk.Now())
	if d < 0 {
		return 0
	}
	return d
}

// Cancel releases the reservation and transitions the hold to
// CANCELLED.  It is valid only from ACTIVE: an expired hold returns
// model.ErrHoldExpired, any other terminal state model.ErrHoldNotActive.
// Cancel is safe to race with the expiry timer; whichever transition
// runs first wins and the loser observes the terminal state.
func (h *Hold) Cancel() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.expireLocked(false)
	switch h.state {
	case StateActive:
	case StateExpired:
		return model.ErrHoldExpired
	default:
		return model.ErrHoldNotActive
	}
	h.ledger.Release(h.token)
	h.terminalLocked(StateCancelled)
	return nil
}

// Commit converts the hold into a permanent sale.  The persist function
// is executed while the hold is still exclusively owned; only when it
// succeeds is the ledger reservation finalized and the hold marked
// COMMITTED.  When persist fails the reservation is released and the
// hold transitions to FAILED, so inventory is never left decremented
// without a durable booking record.  Valid only from ACTIVE.
func (h *Hold) Commit(persist func() error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.expireLocked(false)
	switch h.state {
	case StateActive:
	case StateExpired:
		return model.ErrHoldExpired
	default:
		return model.ErrHoldNotActive
	}
	if err := persist(); err != nil {
		h.ledger.Release(h.token)
		h.terminalLocked(StateFailed)
		return err
	}
	h.ledger.Commit(h.token)
	h.terminalLocked(StateCommitted)
	return nil
}

// expireLocked transitions an active hold to EXPIRED when its deadline
// has passed (or unconditionally when force is set, used by the timer
// callback).  Callers must hold h.mu.
func (h *Hold) expireLocked(force bool) {
	if h.state != StateActive {
		return
	}
	if !force && h.clk.Now().Before(h.expiresAt) {
		return
	}
	h.ledger.Release(h.token)
	h.terminalLocked(StateExpired)
}

// terminalLocked records the terminal state, stops the expiry timer and
// closes the done channel.  Callers must hold h.mu.
func (h *Hold) terminalLocked(s State) {
	h.state = s
	if h.timer != nil {
		h.timer.Stop()
	}
	close(h.done)
	switch s {
	case StateExpired:
		monitoring.HoldResolved("expired")
	case StateCancelled:
		monitoring.HoldResolved("cancelled")
	case StateCommitted:
		monitoring.HoldResolved("committed")
	case StateFailed:
		monitoring.HoldResolved("failed")
	}
}

func newHold(ledger *inventory.Ledger, clk clock.Clock, eventID, tierID uint64, qty int, unitPriceCents int64, ttl time.Duration, token *inventory.Token) *Hold {
	now := clk.Now()
	h := &Hold{
		id:             uuid.NewString(),
		eventID:        eventID,
		tierID:         tierID,
		quantity:       qty,
		unitPriceCents: unitPriceCents,
		createdAt:      now,
		expiresAt:      now.Add(ttl),
		ledger:         ledger,
		clk:            clk,
		state:          StateActive,
		token:          token,
		done:           make(chan struct{}),
	}
	// Single cancellable timer per hold; terminal transitions stop it.
	// The timer is assigned under h.mu so the callback, which takes the
	// lock before touching the hold, always observes the write.
	h.mu.Lock()
	h.timer = time.AfterFunc(ttl, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		h.expireLocked(true)
	})
	h.mu.Unlock()
	return h
}
