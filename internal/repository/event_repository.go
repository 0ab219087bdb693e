package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/attendly/ticketing/internal/model"
)

// EventRepo provides data access to the events and ticket_tiers tables.
// An event and its tiers are always written together: tier capacity is
// fixed at creation time and availability is only ever decremented by the
// booking repository.  All timestamp fields are stored in UTC.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns a new EventRepo bound to the given database.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Create inserts an event with its tiers in a single transaction.  The
// event starts unapproved; an admin must approve it before it appears in
// the public catalogue.  The generated IDs are written back onto ev.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
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

	res, err := tx.ExecContext(ctx,
		`INSERT INTO events (title, description, category, event_date, event_time, venue, location, organizer_id, organizer_name, approved, featured)
		 VALUES (?,?,?,?,?,?,?,?,?,0,0)`,
		ev.Title, ev.Description, ev.Category, ev.Date, ev.Time, ev.Venue, ev.Location, ev.OrganizerID, ev.OrganizerName)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ev.ID = uint64(id)
	ev.Approved = false
	ev.Featured = false

	for i := range ev.Tiers {
		t := &ev.Tiers[i]
		t.EventID = ev.ID
		t.AvailableCount = t.TotalCapacity
		features, err := json.Marshal(t.Features)
		if err != nil {
			return err
		}
		tres, err := tx.ExecContext(ctx,
			`INSERT INTO ticket_tiers (event_id, name, price_cents, total_capacity, available_count, features)
			 VALUES (?,?,?,?,?,?)`,
			t.EventID, t.Name, t.PriceCents, t.TotalCapacity, t.AvailableCount, string(features))
		if err != nil {
			return err
		}
		tid, err := tres.LastInsertId()
		if err != nil {
			return err
		}
		t.ID = uint64(tid)
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID fetches one event with its tiers.  Returns sql.ErrNoRows when
// the event does not exist.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (*model.Event, error) {
	const q = `SELECT id, title, description, category, event_date, event_time, venue, location,
	                  organizer_id, organizer_name, approved, featured, created_at, updated_at
	           FROM events WHERE id = ?`
	var ev model.Event
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&ev.ID, &ev.Title, &ev.Description, &ev.Category, &ev.Date, &ev.Time, &ev.Venue, &ev.Location,
		&ev.OrganizerID, &ev.OrganizerName, &ev.Approved, &ev.Featured, &ev.CreatedAt, &ev.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := r.loadTiers(ctx, []*model.Event{&ev}); err != nil {
		return nil, err
	}
	return &ev, nil
}

// GetEvent adapts GetByID to the checkout service's read interface.
func (r *EventRepo) GetEvent(ctx context.Context, id uint64) (*model.Event, error) {
	return r.GetByID(ctx, id)
}

// ListApproved returns approved events for the public catalogue, newest
// first.  category narrows to one category when non-empty; search matches
// a substring of the title, venue or location.
func (r *EventRepo) ListApproved(ctx context.Context, category, search string) ([]model.Event, error) {
	q := `SELECT id, title, description, category, event_date, event_time, venue, location,
	             organizer_id, organizer_name, approved, featured, created_at, updated_at
	      FROM events WHERE approved = 1`
	args := []interface{}{}
	if category != "" {
		q += " AND category = ?"
		args = append(args, category)
	}
	if search != "" {
		q += " AND (title LIKE ? OR venue LIKE ? OR location LIKE ?)"
		like := "%" + search + "%"
		args = append(args, like, like, like)
	}
	q += " ORDER BY event_date, event_time"
	return r.list(ctx, q, args...)
}

// ListFeatured returns the admin-curated highlights for the landing page.
func (r *EventRepo) ListFeatured(ctx context.Context) ([]model.Event, error) {
	const q = `SELECT id, title, description, category, event_date, event_time, venue, location,
	                  organizer_id, organizer_name, approved, featured, created_at, updated_at
	           FROM events WHERE approved = 1 AND featured = 1
	           ORDER BY event_date, event_time`
	return r.list(ctx, q)
}

// ListByOrganizer returns all events created by one organizer, including
// unapproved ones, newest first.
func (r *EventRepo) ListByOrganizer(ctx context.Context, organizerID uint64) ([]model.Event, error) {
	const q = `SELECT id, title, description, category, event_date, event_time, venue, location,
	                  organizer_id, organizer_name, approved, featured, created_at, updated_at
	           FROM events WHERE organizer_id = ?
	           ORDER BY created_at DESC`
	return r.list(ctx, q, organizerID)
}

// ListPending returns events awaiting moderation, oldest first so the
// queue is worked in submission order.
func (r *EventRepo) ListPending(ctx context.Context) ([]model.Event, error) {
	const q = `SELECT id, title, description, category, event_date, event_time, venue, location,
	                  organizer_id, organizer_name, approved, featured, created_at, updated_at
	           FROM events WHERE approved = 0
	           ORDER BY created_at`
	return r.list(ctx, q)
}

// Update rewrites the descriptive fields of an event owned by
// organizerID.  Tiers are not touched: capacity edits after tickets have
// sold would corrupt availability.  Returns ErrForbidden when the event
// belongs to a different organizer and sql.ErrNoRows when it does not
// exist.
func (r *EventRepo) Update(ctx context.Context, ev *model.Event, organizerID uint64) error {
	var actual uint64
	err := r.db.QueryRowContext(ctx, `SELECT organizer_id FROM events WHERE id = ?`, ev.ID).Scan(&actual)
	if err != nil {
		return err
	}
	if actual != organizerID {
		return ErrForbidden
	}
	_, err = r.db.ExecContext(ctx,
		`UPDATE events SET title=?, description=?, category=?, event_date=?, event_time=?, venue=?, location=? WHERE id=?`,
		ev.Title, ev.Description, ev.Category, ev.Date, ev.Time, ev.Venue, ev.Location, ev.ID)
	return err
}

// Delete removes an event and its tiers.  It refuses with ErrConflict
// when confirmed bookings exist, since deleting the event would orphan
// them.  Admins may delete any event by passing organizerID 0.
func (r *EventRepo) Delete(ctx context.Context, eventID, organizerID uint64) error {
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

	var actual uint64
	if err := tx.QueryRowContext(ctx, `SELECT organizer_id FROM events WHERE id = ?`, eventID).Scan(&actual); err != nil {
		return err
	}
	if organizerID != 0 && actual != organizerID {
		return ErrForbidden
	}

	var bookings int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE event_id = ? AND status = ?`,
		eventID, model.BookingConfirmed).Scan(&bookings); err != nil {
		return err
	}
	if bookings > 0 {
		return ErrConflict
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ticket_tiers WHERE event_id = ?`, eventID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, eventID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SetApproved flips the moderation flag.  Rejection is a hard delete and
// goes through Delete instead.
func (r *EventRepo) SetApproved(ctx context.Context, eventID uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE events SET approved = 1 WHERE id = ?`, eventID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SetFeatured marks or unmarks an approved event as a landing-page
// highlight.
func (r *EventRepo) SetFeatured(ctx context.Context, eventID uint64, featured bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET featured = ? WHERE id = ? AND approved = 1`, featured, eventID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// list runs an events query and attaches tiers to every returned event.
func (r *EventRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(
			&ev.ID, &ev.Title, &ev.Description, &ev.Category, &ev.Date, &ev.Time, &ev.Venue, &ev.Location,
			&ev.OrganizerID, &ev.OrganizerName, &ev.Approved, &ev.Featured, &ev.CreatedAt, &ev.UpdatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return events, nil
	}
	ptrs := make([]*model.Event, len(events))
	for i := range events {
		ptrs[i] = &events[i]
	}
	if err := r.loadTiers(ctx, ptrs); err != nil {
		return nil, err
	}
	return events, nil
}

// loadTiers fetches the tiers for all given events in a single query.
func (r *EventRepo) loadTiers(ctx context.Context, events []*model.Event) error {
	ids := make([]interface{}, 0, len(events))
	placeholders := make([]string, 0, len(events))
	index := make(map[uint64]*model.Event, len(events))
	for _, ev := range events {
		ids = append(ids, ev.ID)
		placeholders = append(placeholders, "?")
		index[ev.ID] = ev
		ev.Tiers = []model.TicketTier{}
	}
	q := `SELECT id, event_id, name, price_cents, total_capacity, available_count, features
	      FROM ticket_tiers
	      WHERE event_id IN (` + strings.Join(placeholders, ",") + `)
	      ORDER BY event_id, price_cents`
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var t model.TicketTier
		var features sql.NullString
		if err := rows.Scan(&t.ID, &t.EventID, &t.Name, &t.PriceCents, &t.TotalCapacity, &t.AvailableCount, &features); err != nil {
			return err
		}
		if features.Valid && features.String != "" {
			if err := json.Unmarshal([]byte(features.String), &t.Features); err != nil {
				return err
			}
		}
		if ev, ok := index[t.EventID]; ok {
			ev.Tiers = append(ev.Tiers, t)
		}
	}
	return rows.Err()
}

// TierAvailability returns the live counts for every tier of an event,
// used to warm the in-memory ledger at startup.
func (r *EventRepo) TierAvailability(ctx context.Context) (map[uint64][2]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.available_count, t.total_capacity
		 FROM ticket_tiers t JOIN events e ON e.id = t.event_id
		 WHERE e.approved = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[uint64][2]int)
	for rows.Next() {
		var id uint64
		var avail, total int
		if err := rows.Scan(&id, &avail, &total); err != nil {
			return nil, err
		}
		out[id] = [2]int{avail, total}
	}
	return out, rows.Err()
}
