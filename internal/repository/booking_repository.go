package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/attendly/ticketing/internal/model"
)

// BookingRepo provides data access to the bookings and booking_attendees
// tables.  Bookings are append-only: a confirmed booking is never updated
// except for an admin cancellation, and its attendee rows are immutable.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// Append durably records a confirmed booking.  The booking row, its
// attendee rows and the tier availability decrement are one transaction:
// either all land or none do.  The decrement is conditional on enough
// availability remaining, which keeps the database row consistent even if
// the in-memory ledger and the table have drifted.
//
// An id collision maps to model.ErrDuplicateID; every other failure is
// wrapped in model.ErrPersistence so the caller can decide to retry.
func (r *BookingRepo) Append(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", model.ErrPersistence, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (id, user_id, user_email, event_id, event_title, tier_id, tier_name,
		                       quantity, unit_price_cents, total_price_cents, booking_date,
		                       qr_code, transaction_id, status)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.ID, b.UserID, b.UserEmail, b.EventID, b.EventTitle, b.TierID, b.TierName,
		b.Quantity, b.UnitPriceCents, b.TotalPriceCents, b.BookingDate.UTC(),
		b.QRCode, b.TransactionID, b.Status)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.ErrDuplicateID
		}
		return fmt.Errorf("%w: insert booking: %v", model.ErrPersistence, err)
	}

	if len(b.Attendees) > 0 {
		q := `INSERT INTO booking_attendees (booking_id, seq, name, email, phone) VALUES `
		args := make([]interface{}, 0, len(b.Attendees)*5)
		for i, a := range b.Attendees {
			if i > 0 {
				q += ","
			}
			q += "(?,?,?,?,?)"
			args = append(args, b.ID, i, a.Name, a.Email, a.Phone)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("%w: insert attendees: %v", model.ErrPersistence, err)
		}
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE ticket_tiers SET available_count = available_count - ?
		 WHERE id = ? AND available_count >= ?`,
		b.Quantity, b.TierID, b.Quantity)
	if err != nil {
		return fmt.Errorf("%w: decrement tier: %v", model.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: decrement tier: %v", model.ErrPersistence, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: tier %d availability below quantity %d", model.ErrPersistence, b.TierID, b.Quantity)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", model.ErrPersistence, err)
	}
	committed = true
	return nil
}

// GetByID fetches one booking with its attendees.  When userID is
// non-zero the booking must belong to that user; admins pass 0 to fetch
// any booking.  Returns sql.ErrNoRows when absent and ErrForbidden on an
// ownership mismatch.
func (r *BookingRepo) GetByID(ctx context.Context, id string, userID uint64) (*model.Booking, error) {
	const q = `SELECT id, user_id, user_email, event_id, event_title, tier_id, tier_name,
	                  quantity, unit_price_cents, total_price_cents, booking_date,
	                  qr_code, transaction_id, status
	           FROM bookings WHERE id = ?`
	var b model.Booking
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&b.ID, &b.UserID, &b.UserEmail, &b.EventID, &b.EventTitle, &b.TierID, &b.TierName,
		&b.Quantity, &b.UnitPriceCents, &b.TotalPriceCents, &b.BookingDate,
		&b.QRCode, &b.TransactionID, &b.Status)
	if err != nil {
		return nil, err
	}
	if userID != 0 && b.UserID != userID {
		return nil, ErrForbidden
	}
	if err := r.loadAttendees(ctx, []*model.Booking{&b}); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetByQRCode resolves a ticket scan to its booking.
func (r *BookingRepo) GetByQRCode(ctx context.Context, code string) (*model.Booking, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM bookings WHERE qr_code = ?`, code).Scan(&id)
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id, 0)
}

// ListByUser returns a user's bookings in the order they were made.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Booking, error) {
	const q = `SELECT id, user_id, user_email, event_id, event_title, tier_id, tier_name,
	                  quantity, unit_price_cents, total_price_cents, booking_date,
	                  qr_code, transaction_id, status
	           FROM bookings WHERE user_id = ? ORDER BY booking_date`
	return r.list(ctx, q, userID)
}

// ListByEvent returns every booking for an event in the order it was
// made.  Used by organizers for their own events and by admins for any.
func (r *BookingRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Booking, error) {
	const q = `SELECT id, user_id, user_email, event_id, event_title, tier_id, tier_name,
	                  quantity, unit_price_cents, total_price_cents, booking_date,
	                  qr_code, transaction_id, status
	           FROM bookings WHERE event_id = ? ORDER BY booking_date`
	return r.list(ctx, q, eventID)
}

// Cancel marks a confirmed booking CANCELLED and restores the tier
// availability it consumed.  Only admins call this; the attendee-facing
// flow has no self-service cancellation.
func (r *BookingRepo) Cancel(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var tierID uint64
	var qty int
	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT tier_id, quantity, status FROM bookings WHERE id = ?`, id).
		Scan(&tierID, &qty, &status)
	if err != nil {
		return err
	}
	if status != model.BookingConfirmed {
		return ErrConflict
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ? WHERE id = ?`, model.BookingCancelled, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE ticket_tiers SET available_count = LEAST(available_count + ?, total_capacity) WHERE id = ?`,
		qty, tierID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (r *BookingRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	bookings := make([]model.Booking, 0)
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.UserEmail, &b.EventID, &b.EventTitle, &b.TierID, &b.TierName,
			&b.Quantity, &b.UnitPriceCents, &b.TotalPriceCents, &b.BookingDate,
			&b.QRCode, &b.TransactionID, &b.Status); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return bookings, nil
	}
	ptrs := make([]*model.Booking, len(bookings))
	for i := range bookings {
		ptrs[i] = &bookings[i]
	}
	if err := r.loadAttendees(ctx, ptrs); err != nil {
		return nil, err
	}
	return bookings, nil
}

// loadAttendees fetches the attendee rows for all given bookings in one
// query, preserving the seq order they were submitted in.
func (r *BookingRepo) loadAttendees(ctx context.Context, bookings []*model.Booking) error {
	ids := make([]interface{}, 0, len(bookings))
	placeholders := make([]string, 0, len(bookings))
	index := make(map[string]*model.Booking, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
		placeholders = append(placeholders, "?")
		index[b.ID] = b
		b.Attendees = []model.AttendeeDetail{}
	}
	q := `SELECT booking_id, name, email, phone
	      FROM booking_attendees
	      WHERE booking_id IN (` + strings.Join(placeholders, ",") + `)
	      ORDER BY booking_id, seq`
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var bid string
		var a model.AttendeeDetail
		if err := rows.Scan(&bid, &a.Name, &a.Email, &a.Phone); err != nil {
			return err
		}
		if b, ok := index[bid]; ok {
			b.Attendees = append(b.Attendees, a)
		}
	}
	return rows.Err()
}
