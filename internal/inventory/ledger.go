// Package inventory implements the in-process ticket ledger.  The ledger
// owns the authoritative available/total counter for every ticket tier
// and serializes concurrent reservations per tier, so two simultaneous
// reservations for the last ticket can never both succeed.  Counters are
// warmed from the event catalog at startup; committed decrements are
// additionally persisted by the booking repository so the catalog stays
// correct across restarts.
package inventory

import (
	"sync"

	"github.com/attendly/ticketing/internal/model"
)

type tokenState int

const (
	tokenReserved tokenState = iota
	tokenReleased
	tokenCommitted
)

// Token references a successful reservation: the tier it was made
// against and the exact quantity decremented.  A token resolves exactly
// once, to either Release or Commit; further calls are no-ops.
type Token struct {
	tierID uint64
	qty    int
	state  tokenState // guarded by the owning tier's mutex
}

// TierID returns the tier the token reserves against.
func (t *Token) TierID() uint64 { return t.tierID }

// Quantity returns the reserved quantity.
func (t *Token) Quantity() int { return t.qty }

type tierCounter struct {
	mu        sync.Mutex
	available int
	total     int
}

// Ledger tracks available-vs-total ticket counts per tier.  All methods
// are safe for concurrent use; operations on different tiers do not
// contend with each other.
type Ledger struct {
	mu    sync.RWMutex // guards the tiers map, not the counters
	tiers map[uint64]*tierCounter
}

// NewLedger returns an empty ledger.  Tiers must be registered before
// they can be reserved against.
func NewLedger() *Ledger {
	return &Ledger{tiers: make(map[uint64]*tierCounter)}
}

// Register adds or resets the counter for a tier.  It is called when
// warming the ledger from the catalog and when an organizer creates or
// updates a tier.  Values are clamped so 0 <= available <= total.
func (l *Ledger) Register(tierID uint64, available, total int) {
	if total < 0 {
		total = 0
	}
	if available < 0 {
		available = 0
	}
	if available > total {
		available = total
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if tc, ok := l.tiers[tierID]; ok {
		tc.mu.Lock()
		tc.available = available
		tc.total = total
		tc.mu.Unlock()
		return
	}
	l.tiers[tierID] = &tierCounter{available: available, total: total}
}

// Drop removes a tier's counter, e.g. when its event is deleted.
// Outstanding tokens for a dropped tier resolve against the removed
// counter and have no further effect.
func (l *Ledger) Drop(tierID uint64) {
	l.mu.Lock()
	delete(l.tiers, tierID)
	l.mu.Unlock()
}

func (l *Ledger) tier(tierID uint64) (*tierCounter, bool) {
	l.mu.RLock()
	tc, ok := l.tiers[tierID]
	l.mu.RUnlock()
	return tc, ok
}

// Reserve atomically decrements the tier's available count by qty and
// returns a token referencing the reservation.  It fails with
// model.ErrOutOfStock when qty exceeds the available count (or the tier
// is unknown) and model.ErrInvalidQuantity when qty < 1.  The decrement
// is provisional until the token is committed or released.
func (l *Ledger) Reserve(tierID uint64, qty int) (*Token, error) {
	if qty < 1 {
		return nil, model.ErrInvalidQuantity
	}
	tc, ok := l.tier(tierID)
	if !ok {
		return nil, model.ErrOutOfStock
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if qty > tc.available {
		return nil, model.ErrOutOfStock
	}
	tc.available -= qty
	return &Token{tierID: tierID, qty: qty}, nil
}

// Release reverts the decrement recorded by tok.  Releasing an already
// released token is a no-op, as is releasing after commit; the token
// state makes both idempotent.  A nil token is ignored.
func (l *Ledger) Release(tok *Token) {
	if tok == nil {
		return
	}
	tc, ok := l.tier(tok.tierID)
	if !ok {
		return
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tok.state != tokenReserved {
		return
	}
	tok.state = tokenReleased
	tc.available += tok.qty
	if tc.available > tc.total {
		tc.available = tc.total
	}
}

// Commit finalizes the decrement permanently.  The counter itself is
// untouched — the reservation already happened — but the token is
// marked so a later Release cannot undo a completed sale.
func (l *Ledger) Commit(tok *Token) {
	if tok == nil {
		return
	}
	tc, ok := l.tier(tok.tierID)
	if !ok {
		return
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if tok.state != tokenReserved {
		return
	}
	tok.state = tokenCommitted
}

// Restock returns qty tickets to a tier's available count, clamped at
// total.  Used when an admin cancels a confirmed booking.
func (l *Ledger) Restock(tierID uint64, qty int) {
	if qty < 1 {
		return
	}
	tc, ok := l.tier(tierID)
	if !ok {
		return
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.available += qty
	if tc.available > tc.total {
		tc.available = tc.total
	}
}

// Available returns the current available count for a tier.  The second
// return value is false when the tier is not registered.
func (l *Ledger) Available(tierID uint64) (int, bool) {
	tc, ok := l.tier(tierID)
	if !ok {
		return 0, false
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.available, true
}

// Counts returns the available and total counts for a tier.
func (l *Ledger) Counts(tierID uint64) (available, total int, ok bool) {
	tc, found := l.tier(tierID)
	if !found {
		return 0, 0, false
	}
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.available, tc.total, true
}
