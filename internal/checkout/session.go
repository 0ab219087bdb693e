// Package checkout orchestrates the purchase attempt bound to a single
// reservation hold: attendee-detail collection, payment-method
// submission, and the all-or-nothing conversion of the hold into a
// durable booking.  The ledger commit and the booking append are treated
// as one logical transaction: the booking is persisted while the hold is
// still exclusively owned, and a persistence failure releases the
// reservation instead of leaving inventory decremented with no record.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/attendly/ticketing/internal/clock"
	"github.com/attendly/ticketing/internal/hold"
	"github.com/attendly/ticketing/internal/inventory"
	"github.com/attendly/ticketing/internal/model"
	"github.com/attendly/ticketing/internal/monitoring"
	"github.com/attendly/ticketing/internal/payment"
)

// ErrSessionNotFound is returned when a session id does not exist or
// belongs to a different user.
var ErrSessionNotFound = errors.New("checkout session not found")

// ErrSessionClosed is returned for operations on a session that already
// reached a terminal state.
var ErrSessionClosed = errors.New("checkout session closed")

// ErrEventUnavailable is returned when a hold is requested for an event
// that is not approved for sale.
var ErrEventUnavailable = errors.New("event not available")

// ErrTierNotFound is returned when the requested tier does not belong
// to the event.
var ErrTierNotFound = errors.New("ticket tier not found")

// EventSource supplies read-only event snapshots used to validate tier
// existence and price at hold-creation time.
type EventSource interface {
	GetEvent(ctx context.Context, eventID uint64) (*model.Event, error)
}

// BookingStore is the durable, append-only record of completed
// purchases.  Append must return model.ErrDuplicateID on id collision
// and wrap other storage failures in model.ErrPersistence.
type BookingStore interface {
	Append(ctx context.Context, b *model.Booking) error
}

// Notifier dispatches the fire-and-forget booking-confirmed message.
// Implementations must never fail the checkout: delivery errors are
// logged, not returned.
type Notifier interface {
	BookingConfirmed(b *model.Booking)
}

// SessionState enumerates checkout session lifecycle states.
type SessionState string

const (
	SessionCollecting SessionState = "COLLECTING"
	SessionSucceeded  SessionState = "SUCCEEDED"
	SessionCancelled  SessionState = "CANCELLED"
	SessionFailed     SessionState = "FAILED"
)

// Service creates and tracks checkout sessions.
type Service struct {
	holds     *hold.Manager
	ledger    *inventory.Ledger
	events    EventSource
	bookings  BookingStore
	notifier  Notifier
	processor payment.Processor
	clk       clock.Clock

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewService wires the checkout orchestrator.  All dependencies are
// required except notifier, which may be nil to disable dispatch.
func NewService(holds *hold.Manager, ledger *inventory.Ledger, events EventSource, bookings BookingStore, notifier Notifier, processor payment.Processor, clk clock.Clock) *Service {
	return &Service{
		holds:     holds,
		ledger:    ledger,
		events:    events,
		bookings:  bookings,
		notifier:  notifier,
		processor: processor,
		clk:       clk,
		sessions:  make(map[string]*Session),
	}
}

// Session is one user's purchase attempt against exactly one active
// hold.  All methods are serialized by the session mutex; the hold's
// expiry timer runs independently and is serialized against commit by
// the hold itself.
type Session struct {
	id         string
	key        string // hold manager session key (user + tier)
	userID      uint64
	userEmail   string
	eventID     uint64
	eventTitle  string
	tierID      uint64
	tierName    string
	unitPrice   int64
	availAtHold int // tier availability observed at hold-creation time

	svc *Service

	mu        sync.Mutex
	state     SessionState
	submitted bool
	hold      *hold.Hold
	attendees []model.AttendeeDetail
	booking   *model.Booking
}

// Start validates the event and tier, reserves qty tickets and opens a
// checkout session with a blank attendee entry per ticket.  Quantity and
// stock failures surface as model.ErrInvalidQuantity, model.ErrOutOfStock
// or model.ErrHoldAlreadyActive.
func (svc *Service) Start(ctx context.Context, userID uint64, userEmail string, eventID, tierID uint64, qty int) (*Session, error) {
	ev, err := svc.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ev.Approved {
		return nil, ErrEventUnavailable
	}
	tier := ev.TierByID(tierID)
	if tier == nil {
		return nil, ErrTierNotFound
	}

	key := fmt.Sprintf("%d:%d", userID, tierID)
	h, err := svc.holds.Create(key, eventID, tierID, qty, tier.PriceCents)
	if err != nil {
		if errors.Is(err, model.ErrOutOfStock) {
			monitoring.CheckoutFailed("out_of_stock")
		}
		return nil, err
	}

	availAfter, _ := svc.ledger.Available(tierID)
	s := &Session{
		id:          uuid.NewString(),
		key:         key,
		userID:      userID,
		userEmail:   userEmail,
		eventID:     eventID,
		eventTitle:  ev.Title,
		tierID:      tierID,
		tierName:    tier.Name,
		unitPrice:   tier.PriceCents,
		availAtHold: availAfter + qty,
		svc:         svc,
		state:       SessionCollecting,
		hold:        h,
		attendees:   make([]model.AttendeeDetail, qty),
	}
	svc.mu.Lock()
	svc.sessions[s.id] = s
	svc.mu.Unlock()
	return s, nil
}

// Get returns the session with the given id if it belongs to userID.
func (svc *Service) Get(sessionID string, userID uint64) (*Session, error) {
	svc.mu.Lock()
	s, ok := svc.sessions[sessionID]
	svc.mu.Unlock()
	if !ok || s.userID != userID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Hold returns the session's currently active hold.  The displayed
// countdown must always come from here, since SetQuantity replaces the
// hold and with it the expiry timestamp.
func (s *Session) Hold() *hold.Hold {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hold
}

// State returns the session state, reflecting hold expiry: a collecting
// session whose hold ran out reports FAILED.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == SessionCollecting && s.hold.State() == hold.StateExpired {
		return SessionFailed
	}
	return s.state
}

// Attendees returns a copy of the collected attendee entries.
func (s *Session) Attendees() []model.AttendeeDetail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.AttendeeDetail, len(s.attendees))
	copy(out, s.attendees)
	return out
}

// SetAttendee stores one attendee entry by index.  Entries are
// validated only at submission time so users can fill the form in any
// order.
func (s *Session) SetAttendee(i int, d model.AttendeeDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionCollecting || s.submitted {
		return ErrSessionClosed
	}
	if i < 0 || i >= len(s.attendees) {
		return fmt.Errorf("attendee index %d out of range", i)
	}
	s.attendees[i] = d
	return nil
}

// SetQuantity changes the ticket count before submission.  Quantity is
// fixed per hold, so the old hold is released and a new one created;
// the countdown shown to the user is that of the new hold.  Previously
// entered attendee details are preserved up to the new length.  The new
// quantity is validated against the availability observed at original
// hold-creation time; a failure to re-reserve closes the session so the
// user restarts tier selection.
func (s *Session) SetQuantity(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionCollecting || s.submitted {
		return ErrSessionClosed
	}
	if n < 1 || n > min(s.svc.holds.MaxPerOrder(), s.availAtHold) {
		return model.ErrInvalidQuantity
	}
	if n == s.hold.Quantity() && s.hold.State() == hold.StateActive {
		return nil
	}

	if s.hold.State() == hold.StateActive {
		if err := s.hold.Cancel(); err != nil && !errors.Is(err, model.ErrHoldExpired) {
			return err
		}
	}
	h, err := s.svc.holds.Create(s.key, s.eventID, s.tierID, n, s.unitPrice)
	if err != nil {
		s.state = SessionFailed
		if errors.Is(err, model.ErrOutOfStock) {
			monitoring.CheckoutFailed("out_of_stock")
		}
		return err
	}
	s.hold = h

	// Resize, keeping what the user already typed.
	next := make([]model.AttendeeDetail, n)
	copy(next, s.attendees)
	s.attendees = next
	return nil
}

// SubmitPayment validates the attendee entries, charges the (simulated)
// processor and commits the hold with the booking append as the
// persistence step.  The hold countdown keeps running during payment;
// if it expires mid-flight the submission aborts with
// model.ErrHoldExpired and no booking is created.  Validation failures
// leave the hold active so the user can correct the form and resubmit.
func (s *Session) SubmitPayment(ctx context.Context, method string, attendees []model.AttendeeDetail) (*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionCollecting {
		return nil, ErrSessionClosed
	}

	if len(attendees) > 0 {
		if len(attendees) != s.hold.Quantity() {
			monitoring.CheckoutFailed("validation")
			return nil, &model.ValidationError{}
		}
		copy(s.attendees, attendees)
	}
	if err := validateAttendees(s.attendees, s.hold.Quantity()); err != nil {
		monitoring.CheckoutFailed("validation")
		return nil, err
	}

	switch s.hold.State() {
	case hold.StateActive:
	case hold.StateExpired:
		monitoring.CheckoutFailed("hold_expired")
		return nil, model.ErrHoldExpired
	default:
		return nil, model.ErrHoldNotActive
	}
	s.submitted = true

	// Cap the bank call at the hold deadline: there is no point waiting
	// for a charge the expired hold can no longer commit.
	chargeCtx, cancel := context.WithDeadline(ctx, s.hold.ExpiresAt())
	defer cancel()
	total := s.unitPrice * int64(s.hold.Quantity())
	txn, err := s.svc.processor.Charge(chargeCtx, total, method)
	if err != nil {
		if s.hold.State() == hold.StateExpired {
			monitoring.CheckoutFailed("hold_expired")
			return nil, model.ErrHoldExpired
		}
		s.submitted = false // allow another attempt while the hold lives
		monitoring.CheckoutFailed("payment")
		return nil, fmt.Errorf("payment failed: %w", err)
	}

	b := &model.Booking{
		ID:              uuid.NewString(),
		UserID:          s.userID,
		UserEmail:       s.userEmail,
		EventID:         s.eventID,
		EventTitle:      s.eventTitle,
		TierID:          s.tierID,
		TierName:        s.tierName,
		Quantity:        s.hold.Quantity(),
		UnitPriceCents:  s.unitPrice,
		TotalPriceCents: total,
		Attendees:       append([]model.AttendeeDetail(nil), s.attendees...),
		BookingDate:     s.svc.clk.Now(),
		QRCode:          uuid.NewString(),
		TransactionID:   txn,
		Status:          model.BookingConfirmed,
	}

	err = s.hold.Commit(func() error {
		if appendErr := s.svc.bookings.Append(ctx, b); appendErr != nil {
			if errors.Is(appendErr, model.ErrPersistence) {
				// One retry before giving up and releasing the reservation.
				if retryErr := s.svc.bookings.Append(ctx, b); retryErr == nil {
					return nil
				}
			}
			return appendErr
		}
		return nil
	})
	if err != nil {
		s.state = SessionFailed
		switch {
		case errors.Is(err, model.ErrHoldExpired):
			monitoring.CheckoutFailed("hold_expired")
		case errors.Is(err, model.ErrDuplicateID):
			monitoring.CheckoutFailed("duplicate_id")
		default:
			monitoring.CheckoutFailed("persistence")
		}
		return nil, err
	}

	s.state = SessionSucceeded
	s.booking = b
	monitoring.BookingConfirmed(b.Quantity)
	if s.svc.notifier != nil {
		s.svc.notifier.BookingConfirmed(b)
	}
	s.svc.holds.Forget(s.key)
	return b, nil
}

// Cancel closes the session from any non-terminal state, releasing the
// hold when it is still active.  Cancelling an already terminal session
// is a no-op.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionCollecting {
		return
	}
	if s.hold.State() == hold.StateActive {
		_ = s.hold.Cancel()
	}
	s.state = SessionCancelled
	s.svc.holds.Forget(s.key)
}

// Booking returns the committed booking after a successful submission.
func (s *Session) Booking() *model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.booking
}

func validateAttendees(entries []model.AttendeeDetail, want int) error {
	if len(entries) != want {
		return &model.ValidationError{}
	}
	for i, a := range entries {
		switch {
		case strings.TrimSpace(a.Name) == "":
			return &model.ValidationError{Index: i, Field: "name"}
		case strings.TrimSpace(a.Email) == "":
			return &model.ValidationError{Index: i, Field: "email"}
		case strings.TrimSpace(a.Phone) == "":
			return &model.ValidationError{Index: i, Field: "phone"}
		}
	}
	return nil
}
