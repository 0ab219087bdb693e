package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attendly/ticketing/internal/clock"
	"github.com/attendly/ticketing/internal/hold"
	"github.com/attendly/ticketing/internal/inventory"
	"github.com/attendly/ticketing/internal/model"
	"github.com/attendly/ticketing/internal/payment"
)

// ---- in-memory collaborators ----

type fakeEvents struct {
	events map[uint64]*model.Event
}

func (f *fakeEvents) GetEvent(_ context.Context, id uint64) (*model.Event, error) {
	ev, ok := f.events[id]
	if !ok {
		return nil, ErrEventUnavailable
	}
	return ev, nil
}

type fakeBookings struct {
	mu       sync.Mutex
	appended []*model.Booking
	failWith []error // consumed one per Append call
}

func (f *fakeBookings) Append(_ context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.failWith) > 0 {
		err := f.failWith[0]
		f.failWith = f.failWith[1:]
		if err != nil {
			return err
		}
	}
	for _, prev := range f.appended {
		if prev.ID == b.ID {
			return model.ErrDuplicateID
		}
	}
	f.appended = append(f.appended, b)
	return nil
}

func (f *fakeBookings) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.appended)
}

type fakeNotifier struct {
	mu    sync.Mutex
	seen  []*model.Booking
}

func (f *fakeNotifier) BookingConfirmed(b *model.Booking) {
	f.mu.Lock()
	f.seen = append(f.seen, b)
	f.mu.Unlock()
}

type decliningProcessor struct {
	mu       sync.Mutex
	declines int // charges to decline before approving
}

func (p *decliningProcessor) Charge(ctx context.Context, amountCents int64, method string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.declines > 0 {
		p.declines--
		return "", payment.ErrDeclined
	}
	return "TXN-test0000", nil
}

type instantProcessor struct{ delay time.Duration }

func (p *instantProcessor) Charge(ctx context.Context, amountCents int64, method string) (string, error) {
	if p.delay > 0 {
		t := time.NewTimer(p.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
	return "TXN-test0000", nil
}

type fixture struct {
	svc      *Service
	ledger   *inventory.Ledger
	bookings *fakeBookings
	notifier *fakeNotifier
	clk      clock.Clock
}

func testEvent() *model.Event {
	return &model.Event{
		ID:       7,
		Title:    "Summer Music Festival",
		Approved: true,
		Tiers: []model.TicketTier{
			{ID: 1, EventID: 7, Name: "Early Bird", PriceCents: 9900, TotalCapacity: 20, AvailableCount: 20},
			{ID: 2, EventID: 7, Name: "VIP", PriceCents: 29900, TotalCapacity: 2, AvailableCount: 2},
		},
	}
}

func newFixture(t *testing.T, holdTTL time.Duration, clk clock.Clock, chargeDelay time.Duration) *fixture {
	t.Helper()
	ev := testEvent()
	ledger := inventory.NewLedger()
	for _, tier := range ev.Tiers {
		ledger.Register(tier.ID, tier.AvailableCount, tier.TotalCapacity)
	}
	holds := hold.NewManager(ledger, clk, holdTTL, hold.DefaultMaxPerOrder)
	bookings := &fakeBookings{}
	notifier := &fakeNotifier{}
	svc := NewService(holds, ledger,
		&fakeEvents{events: map[uint64]*model.Event{7: ev}},
		bookings, notifier,
		&instantProcessor{delay: chargeDelay}, clk)
	return &fixture{svc: svc, ledger: ledger, bookings: bookings, notifier: notifier, clk: clk}
}

func filledAttendees(n int) []model.AttendeeDetail {
	out := make([]model.AttendeeDetail, n)
	for i := range out {
		out[i] = model.AttendeeDetail{Name: "Guest", Email: "guest@example.com", Phone: "555-0100"}
	}
	return out
}

// ---- tests ----

func TestStartOpensSessionWithBlankAttendees(t *testing.T) {
	f := newFixture(t, time.Hour, clock.Real{}, 0)

	s, err := f.svc.Start(context.Background(), 42, "u@example.com", 7, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, SessionCollecting, s.State())
	assert.Len(t, s.Attendees(), 3)
	for _, a := range s.Attendees() {
		assert.Empty(t, a.Name)
	}

	avail, _ := f.ledger.Available(1)
	assert.Equal(t, 17, avail)
}

func TestStartRejectsUnapprovedEvent(t *testing.T) {
	f := newFixture(t, time.Hour, clock.Real{}, 0)
	f.svc.events.(*fakeEvents).events[9] = &model.Event{ID: 9, Approved: false}

	_, err := f.svc.Start(context.Background(), 42, "u@example.com", 9, 1, 1)
	assert.ErrorIs(t, err, ErrEventUnavailable)
}

func TestStartRejectsUnknownTier(t *testing.T) {
	f := newFixture(t, time.Hour, clock.Real{}, 0)

	_, err := f.svc.Start(context.Background(), 42, "u@example.com", 7, 99, 1)
	assert.ErrorIs(t, err, ErrTierNotFound)
}

func TestStartOutOfStockReportedImmediately(t *testing.T) {
	f := newFixture(t, time.Hour, clock.Real{}, 0)

	// User A takes the last VIP tickets, user B is turned away.
	_, err := f.svc.Start(context.Background(), 1, "a@example.com", 7, 2, 2)
	require.NoError(t, err)

	_, err = f.svc.Start(context.Background(), 2, "b@example.com", 7, 2, 1)
	assert.ErrorIs(t, err, model.ErrOutOfStock)
}

func TestStartSecondHoldSameTierRejected(t *testing.T) {
	f := newFixture(t, time.Hour, clock.Real{}, 0)

	_, err := f.svc.Start(context.Background(), 42, "u@example.com", 7, 1, 1)
	require.NoError(t, err)

	_, err = f.svc.Start(context.Background(), 42, "u@example.com", 7, 1, 1)
	assert.ErrorIs(t, err, model.ErrHoldAlreadyActive)
}

func TestSubmitPaymentHappyPath(t *testing.T) {
	f := newFixture(t, time.Hour, clock.Real{}, 0)

	s, err := f.svc.Start(context.Background(), 42, "u@example.com", 7, 1, 2)
	require.NoError(t, err)

	b, err := s.SubmitPayment(context.Background(), "card", filledAttendees(2))
	require.NoError(t, err)
	require.NotNil(t, b)

	assert.Equal(t, SessionSucceeded, s.State())
	assert.Equal(t, 2, b.Quantity)
	assert.Equal(t, int64(9900), b.UnitPriceCents)
	assert.Equal(t, int64(19800), b.TotalPriceCents, "total = tier price * quantity")
	assert.Equal(t, "Summer Music Festival", b.EventTitle)
	assert.Equal(t, "Early Bird", b.TierName)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.NotEmpty(t, b.ID)
	assert.NotEmpty(t, b.QRCode)
	assert.Len(t, b.Attendees, 2)

	// Exactly one booking, and the decrement stayed permanent.
	assert.Equal(t, 1, f.bookings.count())
	avail, _ := f.ledger.Available(1)
	assert.Equal(t, 18, avail)

	// Notification dispatched.
	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	require.Len(t, f.notifier.seen, 1)
	assert.Equal(t, b.ID, f.notifier.seen[0].ID)
}

func TestDeclinedChargeKeepsHoldForRetry(t *testing.T) {
	ev := testEvent()
	ledger := inventory.NewLedger()
	for _, tier := range ev.Tiers {
		ledger.Register(tier.ID, tier.AvailableCount, tier.TotalCapacity)
	}
	holds := hold.NewManager(ledger, clock.Real{}, time.Hour, hold.DefaultMaxPerOrder)
	bookings := &fakeBookings{}
	svc := NewService(holds, ledger,
		&fakeEvents{events: map[uint64]*model.Event{7: ev}},
		bookings, &fakeNotifier{},
		&decliningProcessor{declines: 1}, clock.Real{})

	s, err := svc.Start(context.Background(), 42, "u@example.com", 7, 1, 2)
	require.NoError(t, err)

	_, err = s.SubmitPayment(context.Background(), "card", filledAttendees(2))
	assert.ErrorIs(t, err, payment.ErrDeclined)
	assert.Equal(t, SessionCollecting, s.State(), "decline must not close the session")
	assert.Equal(t, 0, bookings.count())

	avail, _ := ledger.Available(1)
	assert.Equal(t, 18, avail, "hold keeps the tickets reserved across the decline")

	// A second attempt within the hold window goes through.
	b, err := s.SubmitPayment(context.Background(), "card", filledAttendees(2))
	require.NoError(t, err)
	assert.Equal(t, model.BookingConfirmed, b.Status)
	assert.Equal(t, 1, bookings.count())
}

func TestSubmitPaymentValidationKeepsHoldActive(t *testing.T) {
	f := newFixture(t, time.Hour, clock.Real{}, 0)

	s, err := f.svc.Start(context.Background(), 42, "u@example.com", 7, 1, 2)
	require.NoError(t, err)

	// Too few entries.
	_, err = s.SubmitPayment(context.Background(), "card", filledAttendees(1))
	assert.True(t, model.IsValidation(err))

	// Blank phone on the second entry.
	bad := filledAttendees(2)
	bad[1].Phone = "  "
	_, err = s.SubmitPayment(context.Background(), "card", bad)
	require.True(t, model.IsValidation(err))
	var ve *model.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 1, ve.Index)
	assert.Equal(t, "phone", ve.Field)

	// Hold still active, ledger untouched, no booking written.
	assert.Equal(t, hold.StateActive, s.Hold().State())
	avail, _ := f.ledger.Available(1)
	assert.Equal(t, 18, avail)
	assert.Equal(t, 0, f.bookings.count())

	// Fixing the form lets the same session complete.
	_, err = s.SubmitPayment(context.Background(), "card", filledAttendees(2))
	assert.NoError(t, err)
}

func TestSubmitPaymentAfterExpiryFails(t *testing.T) {
	clk := clock.NewMock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	f := newFixture(t, 600*time.Second, clk, 0)

	s, err := f.svc.Start(context.Background(), 42, "u@example.com", 7, 1, 1)
	require.NoError(t, err)

	clk.Advance(601 * time.Second)
	_, err = s.SubmitPayment(context.Background(), "card", filledAttendees(1))
	assert.ErrorIs(t, err, model.ErrHoldExpired)
	assert.Equal(t, 0, f.bookings.count())

	avail, _ := f.ledger.Available(1)
	assert.Equal(t, 20, avail)
}

func TestHoldExpiresMidPayment(t *testing.T) {
	// Real clock, 30ms hold, 200ms bank: the countdown wins.
	f := newFixture(t, 30*time.Millisecond, clock.Real{}, 200*time.Millisecond)

	s, err := f.svc.Start(context.Background(), 42, "u@example.com", 7, 1, 1)
	require.NoError(t, err)

	_, err = s.SubmitPayment(context.Background(), "card", filledAttendees(1))
	assert.ErrorIs(t, err, model.ErrHoldExpired)
	assert.Equal(t, 0, f.bookings.count(), "no partial booking may exist")

	avail, _ := f.ledger.Available(1)
	assert.Equal(t, 20, avail, "reservation released on expiry")
}

func TestDuplicateIDRollsBackLedgerCommit(t *testing.T) {
	f := newFixture(t, time.Hour, clock.Real{}, 0)
	f.bookings.failWith = []error{model.ErrDuplicateID}

	s, err := f.svc.Start(context.Background(), 42, "u@example.com", 7, 1, 2)
	require.NoError(t, err)

	_, err = s.SubmitPayment(context.Background(), "card", filledAttendees(2))
	assert.ErrorIs(t, err, model.ErrDuplicateID)
	assert.Equal(t, SessionFailed, s.State())
	assert.Equal(t, 0, f.bookings.count())

	avail, _ := f.ledger.Available(1)
	assert.Equal(t, 20, avail, "inventory restored; no booking with that id exists")
}

func TestPersistenceFailureRetriesOnceThenSucceeds(t *testing.T) {
	f := newFixture(t, time.Hour, clock.Real{}, 0)
	f.bookings.failWith = []error{model.ErrPersistence}

	s, err := f.svc.Start(context.Background(), 42, "u@example.com", 7, 1, 1)
	require.NoError(t, err)

	b, err := s.SubmitPayment(context.Background(), "card", filledAttendees(1))
	require.NoError(t, err)
	assert.Equal(t, 1, f.bookings.count())
	assert.Equal(t, b.ID, f.bookings.appended[0].ID)
}

func TestPersistenceFailureExhaustedReleasesInventory(t *testing.T) {
	f := newFixture(t, time.Hour, clock.Real{}, 0)
	f.bookings.failWith = []error{model.ErrPersistence, model.ErrPersistence}

	s, err := f.svc.Start(context.Background(), 42, "u@example.com", 7, 1, 1)
	require.NoError(t, err)

	_, err = s.SubmitPayment(context.Background(), "card", filledAttendees(1))
	assert.ErrorIs(t, err, model.ErrPersistence)
	assert.Equal(t, 0, f.bookings.count())

	avail, _ := f.ledger.Available(1)
	assert.Equal(t, 20, avail)
}

func TestSetQuantityResizesPreservingEntries(t *testing.T) {
	f := newFixture(t, time.Hour, clock.Real{}, 0)

	s, err := f.svc.Start(context.Background(), 42, "u@example.com", 7, 1, 3)
	require.NoError(t, err)
	require.NoError(t, s.SetAttendee(0, model.AttendeeDetail{Name: "Ada", Email: "ada@example.com", Phone: "1"}))
	require.NoError(t, s.SetAttendee(1, model.AttendeeDetail{Name: "Ben", Email: "ben@example.com", Phone: "2"}))

	firstHold := s.Hold()
	require.NoError(t, s.SetQuantity(2))
	secondHold := s.Hold()
	assert.NotEqual(t, firstHold.ID(), secondHold.ID(), "quantity change replaces the hold")
	assert.Equal(t, hold.StateCancelled, firstHold.State())
	assert.Equal(t, 2, secondHold.Quantity())

	got := s.Attendees()
	require.Len(t, got, 2)
	assert.Equal(t, "Ada", got[0].Name)
	assert.Equal(t, "Ben", got[1].Name)

	// Growing back adds blanks after the preserved entries.
	require.NoError(t, s.SetQuantity(4))
	got = s.Attendees()
	require.Len(t, got, 4)
	assert.Equal(t, "Ada", got[0].Name)
	assert.Empty(t, got[2].Name)

	avail, _ := f.ledger.Available(1)
	assert.Equal(t, 16, avail)
}

func TestSetQuantityBounds(t *testing.T) {
	f := newFixture(t, time.Hour, clock.Real{}, 0)

	s, err := f.svc.Start(context.Background(), 42, "u@example.com", 7, 1, 2)
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetQuantity(0), model.ErrInvalidQuantity)
	assert.ErrorIs(t, s.SetQuantity(11), model.ErrInvalidQuantity)
}

func TestCancelReleasesHold(t *testing.T) {
	f := newFixture(t, time.Hour, clock.Real{}, 0)

	s, err := f.svc.Start(context.Background(), 42, "u@example.com", 7, 1, 2)
	require.NoError(t, err)

	s.Cancel()
	assert.Equal(t, SessionCancelled, s.State())
	avail, _ := f.ledger.Available(1)
	assert.Equal(t, 20, avail)

	// Cancelled session refuses further work.
	_, err = s.SubmitPayment(context.Background(), "card", filledAttendees(2))
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.SetQuantity(1), ErrSessionClosed)

	// And the user may start over on the same tier.
	_, err = f.svc.Start(context.Background(), 42, "u@example.com", 7, 1, 1)
	assert.NoError(t, err)
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newFixture(t, time.Hour, clock.Real{}, 0)

	s, err := f.svc.Start(context.Background(), 42, "u@example.com", 7, 1, 1)
	require.NoError(t, err)

	got, err := f.svc.Get(s.ID(), 42)
	require.NoError(t, err)
	assert.Equal(t, s.ID(), got.ID())

	_, err = f.svc.Get(s.ID(), 99)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.Get("nope", 42)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
