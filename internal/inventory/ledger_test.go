package inventory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/ticketing/internal/model"
)

func TestReserveDecrementsAvailable(t *testing.T) {
	l := NewLedger()
	l.Register(1, 10, 10)

	tok, err := l.Reserve(1, 3)
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, uint64(1), tok.TierID())
	assert.Equal(t, 3, tok.Quantity())

	avail, ok := l.Available(1)
	require.True(t, ok)
	assert.Equal(t, 7, avail)
}

func TestReserveFailsWhenOverAvailable(t *testing.T) {
	l := NewLedger()
	l.Register(1, 2, 10)

	_, err := l.Reserve(1, 3)
	assert.ErrorIs(t, err, model.ErrOutOfStock)

	// Counter untouched by the failed attempt.
	avail, _ := l.Available(1)
	assert.Equal(t, 2, avail)
}

func TestReserveInvalidQuantity(t *testing.T) {
	l := NewLedger()
	l.Register(1, 5, 5)

	_, err := l.Reserve(1, 0)
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
	_, err = l.Reserve(1, -2)
	assert.ErrorIs(t, err, model.ErrInvalidQuantity)
}

func TestReserveUnknownTier(t *testing.T) {
	l := NewLedger()
	_, err := l.Reserve(42, 1)
	assert.ErrorIs(t, err, model.ErrOutOfStock)
}

func TestReleaseIsIdempotent(t *testing.T) {
	l := NewLedger()
	l.Register(1, 5, 5)

	tok, err := l.Reserve(1, 2)
	require.NoError(t, err)

	l.Release(tok)
	avail, _ := l.Available(1)
	assert.Equal(t, 5, avail)

	// Second release must be a no-op, not a double-increment.
	l.Release(tok)
	avail, _ = l.Available(1)
	assert.Equal(t, 5, avail)
}

func TestReleaseAfterCommitIsNoop(t *testing.T) {
	l := NewLedger()
	l.Register(1, 5, 5)

	tok, err := l.Reserve(1, 2)
	require.NoError(t, err)

	l.Commit(tok)
	l.Release(tok)

	avail, _ := l.Available(1)
	assert.Equal(t, 3, avail, "committed decrement must be permanent")
}

func TestAvailableNeverExceedsTotal(t *testing.T) {
	l := NewLedger()
	l.Register(1, 3, 3)

	tok, err := l.Reserve(1, 1)
	require.NoError(t, err)
	l.Release(tok)

	avail, total, ok := l.Counts(1)
	require.True(t, ok)
	assert.Equal(t, 3, total)
	assert.LessOrEqual(t, avail, total)
	assert.GreaterOrEqual(t, avail, 0)
}

func TestConcurrentReserveLastUnit(t *testing.T) {
	l := NewLedger()
	l.Register(1, 1, 100)

	const workers = 16
	var wg sync.WaitGroup
	results := make(chan error, workers)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := l.Reserve(1, 1)
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	successes, failures := 0, 0
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, model.ErrOutOfStock)
			failures++
		}
	}
	assert.Equal(t, 1, successes, "exactly one reservation may win the last ticket")
	assert.Equal(t, workers-1, failures)

	avail, _ := l.Available(1)
	assert.Equal(t, 0, avail)
}

func TestConcurrentReserveReleaseKeepsInvariant(t *testing.T) {
	l := NewLedger()
	l.Register(1, 50, 50)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				tok, err := l.Reserve(1, 2)
				if err != nil {
					continue
				}
				if j%2 == 0 {
					l.Release(tok)
				} else {
					l.Release(tok)
					l.Release(tok) // double release must stay a no-op
				}
			}
		}()
	}
	wg.Wait()

	avail, total, ok := l.Counts(1)
	require.True(t, ok)
	assert.Equal(t, 50, total)
	assert.Equal(t, 50, avail, "every reservation was released")
}

func TestDropTierMakesTokensInert(t *testing.T) {
	l := NewLedger()
	l.Register(1, 5, 5)
	tok, err := l.Reserve(1, 2)
	require.NoError(t, err)

	l.Drop(1)
	l.Release(tok) // must not panic

	_, ok := l.Available(1)
	assert.False(t, ok)
}
