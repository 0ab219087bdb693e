package hold

import (
	"sync"
	"time"

	"github.com/attendly/ticketing/internal/clock"
	"github.com/attendly/ticketing/internal/inventory"
	"github.com/attendly/ticketing/internal/model"
	"github.com/attendly/ticketing/internal/monitoring"
)

// DefaultTTL is how long a hold keeps tickets reserved before expiring.
const DefaultTTL = 600 * time.Second

// DefaultMaxPerOrder caps how many tickets one hold may reserve.
const DefaultMaxPerOrder = 10

// Manager creates holds and enforces the one-active-hold-per-session
// rule.  The session key identifies a checkout attempt (user + tier); a
// user may run sessions for different tiers concurrently, but a second
// hold under the same key fails with model.ErrHoldAlreadyActive until
// the first resolves.
type Manager struct {
	ledger      *inventory.Ledger
	clk         clock.Clock
	ttl         time.Duration
	maxPerOrder int

	mu     sync.Mutex
	active map[string]*Hold
}

// NewManager returns a Manager backed by the given ledger.  A ttl or
// maxPerOrder of zero selects the defaults.
func NewManager(ledger *inventory.Ledger, clk clock.Clock, ttl time.Duration, maxPerOrder int) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxPerOrder <= 0 {
		maxPerOrder = DefaultMaxPerOrder
	}
	return &Manager{
		ledger:      ledger,
		clk:         clk,
		ttl:         ttl,
		maxPerOrder: maxPerOrder,
		active:      make(map[string]*Hold),
	}
}

// TTL returns the configured hold lifetime.
func (m *Manager) TTL() time.Duration { return m.ttl }

// MaxPerOrder returns the per-order ticket cap.
func (m *Manager) MaxPerOrder() int { return m.maxPerOrder }

// Create reserves qty tickets of the tier and starts the countdown.
// It fails with model.ErrInvalidQuantity when qty is below 1 or above
// the per-order cap, model.ErrOutOfStock when the ledger cannot cover
// the quantity, and model.ErrHoldAlreadyActive when the session already
// has an active hold.
func (m *Manager) Create(sessionKey string, eventID, tierID uint64, qty int, unitPriceCents int64) (*Hold, error) {
	if qty < 1 || qty > m.maxPerOrder {
		return nil, model.ErrInvalidQuantity
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.active[sessionKey]; ok && prev.State() == StateActive {
		return nil, model.ErrHoldAlreadyActive
	}
	token, err := m.ledger.Reserve(tierID, qty)
	if err != nil {
		return nil, err
	}
	h := newHold(m.ledger, m.clk, eventID, tierID, qty, unitPriceCents, m.ttl, token)
	m.active[sessionKey] = h
	monitoring.HoldCreated()
	return h, nil
}

// Get returns the hold registered under the session key, if any.
func (m *Manager) Get(sessionKey string) (*Hold, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.active[sessionKey]
	return h, ok
}

// Forget drops the session key's entry once its hold has resolved, so
// long-lived processes do not accumulate terminal holds.  Active holds
// are kept.
func (m *Manager) Forget(sessionKey string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.active[sessionKey]; ok && h.State() != StateActive {
		delete(m.active, sessionKey)
	}
}
