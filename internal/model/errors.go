// Package model defines the domain types shared across the service and the
// typed failures the checkout flow can surface.  Keeping the sentinel
// errors here lets the inventory, hold and checkout packages return them
// without importing each other, and lets handlers translate them into
// HTTP status codes in one place.
package model

import (
	"errors"
	"fmt"
)

// ErrOutOfStock is returned by the inventory ledger when a reservation
// asks for more tickets than are currently available.  Stock state is
// authoritative at the ledger; callers must not retry automatically.
var ErrOutOfStock = errors.New("out of stock")

// ErrInvalidQuantity is returned when a requested quantity is below 1 or
// above the per-order maximum.
var ErrInvalidQuantity = errors.New("invalid quantity")

// ErrHoldAlreadyActive is returned when a session attempts to create a
// second hold while one is still active.  The prior hold must be
// cancelled first.
var ErrHoldAlreadyActive = errors.New("hold already active")

// ErrHoldExpired is returned when an operation observes a hold whose
// countdown has elapsed, including a payment submission that was still
// in flight when the hold expired.
var ErrHoldExpired = errors.New("hold expired")

// ErrHoldNotActive is returned when cancel or commit is attempted on a
// hold that already reached a terminal state other than EXPIRED.
var ErrHoldNotActive = errors.New("hold not active")

// ErrDuplicateID is returned by the booking store when a booking with
// the same ID already exists.
var ErrDuplicateID = errors.New("duplicate booking id")

// ErrPersistence wraps storage failures from the booking store.  The
// checkout flow retries persistence once before surfacing it; when it is
// surfaced the inventory reservation has already been released.
var ErrPersistence = errors.New("persistence failure")

// ValidationError reports a missing or malformed attendee field.  Index
// is the zero-based position of the offending attendee entry; Field is
// "name", "email" or "phone", or empty when the entry count itself is
// wrong.
type ValidationError struct {
	Index int
	Field string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: attendee details incomplete"
	}
	return fmt.Sprintf("validation failed: attendee %d missing %s", e.Index+1, e.Field)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
