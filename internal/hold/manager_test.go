package hold

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/ticketing/internal/clock"
	"github.com/attendly/ticketing/internal/inventory"
	"github.com/attendly/ticketing/internal/model"
)

func newTestManager(t *testing.T, available int, ttl time.Duration) (*Manager, *inventory.Ledger, *clock.Mock) {
	t.Helper()
	l := inventory.NewLedger()
	l.Register(1, available, available)
	clk := clock.NewMock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewManager(l, clk, ttl, DefaultMaxPerOrder), l, clk
}

func TestCreateReservesInventory(t *testing.T) {
	m, l, _ := newTestManager(t, 10, time.Hour)

	h, err := m.Create("u1:t1", 7, 1, 3, 2500)
	require.NoError(t, err)
	assert.Equal(t, StateActive, h.State())
	assert.Equal(t, 3, h.Quantity())
	assert.Equal(t, int64(2500), h.UnitPriceCents())

	avail, _ := l.Available(1)
	assert.Equal(t, 7, avail)
}

func TestCreateQuantityBounds(t *testing.T) {
	m, _, _ := newTestManager(t, 100, time.Hour)

	_, err := m.Create("k", 7, 1, 0, 100)
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)

	_, err = m.Create("k", 7, 1, 11, 100)
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
}

func TestCreateOutOfStock(t *testing.T) {
	m, l, _ := newTestManager(t, 2, time.Hour)

	_, err := m.Create("k", 7, 1, 5, 100)
	assert.ErrorIs(t, err, model.ErrOutOfStock)

	avail, _ := l.Available(1)
	assert.Equal(t, 2, avail)
}

func TestSecondHoldSameSessionRejected(t *testing.T) {
	m, _, _ := newTestManager(t, 10, time.Hour)

	_, err := m.Create("k", 7, 1, 1, 100)
	require.NoError(t, err)

	_, err = m.Create("k", 7, 1, 1, 100)
	assert.ErrorIs(t, err, model.ErrHoldAlreadyActive)
}

func TestNewHoldAllowedAfterCancel(t *testing.T) {
	m, l, _ := newTestManager(t, 10, time.Hour)

	h, err := m.Create("k", 7, 1, 4, 100)
	require.NoError(t, err)
	require.NoError(t, h.Cancel())

	avail, _ := l.Available(1)
	assert.Equal(t, 10, avail)

	h2, err := m.Create("k", 7, 1, 2, 100)
	require.NoError(t, err)
	assert.Equal(t, StateActive, h2.State())
}

func TestLazyExpiryRestoresInventory(t *testing.T) {
	m, l, clk := newTestManager(t, 5, 600*time.Second)

	h, err := m.Create("k", 7, 1, 2, 100)
	require.NoError(t, err)
	avail, _ := l.Available(1)
	require.Equal(t, 3, avail)

	clk.Advance(601 * time.Second)
	assert.Equal(t, StateExpired, h.State())

	avail, _ = l.Available(1)
	assert.Equal(t, 5, avail, "expiry restores the pre-reservation count")
}

func TestTimerExpiryClosesDone(t *testing.T) {
	l := inventory.NewLedger()
	l.Register(1, 5, 5)
	m := NewManager(l, clock.Real{}, 20*time.Millisecond, DefaultMaxPerOrder)

	h, err := m.Create("k", 7, 1, 1, 100)
	require.NoError(t, err)

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expiry timer did not fire")
	}
	assert.Equal(t, StateExpired, h.State())
	avail, _ := l.Available(1)
	assert.Equal(t, 5, avail)
}

func TestImmediateExpiryDuringCreation(t *testing.T) {
	// A near-zero TTL makes the expiry callback fire while Create is
	// still returning; the timer assignment and the callback's read of
	// it must be properly synchronized.
	l := inventory.NewLedger()
	l.Register(1, 64, 64)
	m := NewManager(l, clock.Real{}, time.Nanosecond, DefaultMaxPerOrder)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			h, err := m.Create(string(rune('a'+n)), 7, 1, 1, 100)
			if err != nil {
				return
			}
			<-h.Done()
		}(i)
	}
	wg.Wait()

	avail, _ := l.Available(1)
	assert.Equal(t, 64, avail, "every expired hold must release its reservation")
}

func TestCancelAfterExpiryReturnsExpired(t *testing.T) {
	m, _, clk := newTestManager(t, 5, 600*time.Second)

	h, err := m.Create("k", 7, 1, 1, 100)
	require.NoError(t, err)

	clk.Advance(601 * time.Second)
	assert.ErrorIs(t, h.Cancel(), model.ErrHoldExpired)
}

func TestCommitFinalizesSale(t *testing.T) {
	m, l, _ := newTestManager(t, 5, time.Hour)

	h, err := m.Create("k", 7, 1, 2, 100)
	require.NoError(t, err)

	persisted := false
	require.NoError(t, h.Commit(func() error {
		persisted = true
		return nil
	}))
	assert.True(t, persisted)
	assert.Equal(t, StateCommitted, h.State())

	// Committed decrement is permanent; a stray cancel changes nothing.
	assert.ErrorIs(t, h.Cancel(), model.ErrHoldNotActive)
	avail, _ := l.Available(1)
	assert.Equal(t, 3, avail)
}

func TestCommitPersistFailureReleasesInventory(t *testing.T) {
	m, l, _ := newTestManager(t, 5, time.Hour)

	h, err := m.Create("k", 7, 1, 2, 100)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = h.Commit(func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StateFailed, h.State())

	avail, _ := l.Available(1)
	assert.Equal(t, 5, avail, "failed commit must not leave inventory decremented")
}

func TestCommitAfterExpiryFails(t *testing.T) {
	m, l, clk := newTestManager(t, 5, 600*time.Second)

	h, err := m.Create("k", 7, 1, 2, 100)
	require.NoError(t, err)

	clk.Advance(601 * time.Second)
	err = h.Commit(func() error {
		t.Fatal("persist must not run on an expired hold")
		return nil
	})
	assert.ErrorIs(t, err, model.ErrHoldExpired)

	avail, _ := l.Available(1)
	assert.Equal(t, 5, avail)
}

func TestConcurrentCancelAndExpiryReleaseOnce(t *testing.T) {
	l := inventory.NewLedger()
	l.Register(1, 5, 5)
	m := NewManager(l, clock.Real{}, 10*time.Millisecond, DefaultMaxPerOrder)

	h, err := m.Create("k", 7, 1, 2, 100)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Cancel() // races the expiry timer; both paths converge on one release
		}()
	}
	wg.Wait()
	<-h.Done()

	avail, _ := l.Available(1)
	assert.Equal(t, 5, avail)
	s := h.State()
	assert.Contains(t, []State{StateCancelled, StateExpired}, s)
}

func TestForgetDropsResolvedHolds(t *testing.T) {
	m, _, _ := newTestManager(t, 5, time.Hour)

	h, err := m.Create("k", 7, 1, 1, 100)
	require.NoError(t, err)

	m.Forget("k") // still active, must be kept
	_, ok := m.Get("k")
	assert.True(t, ok)

	require.NoError(t, h.Cancel())
	m.Forget("k")
	_, ok = m.Get("k")
	assert.False(t, ok)
}
