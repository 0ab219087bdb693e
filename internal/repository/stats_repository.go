package repository

import (
	"context"
	"database/sql"

	"github.com/attendly/ticketing/internal/model"
)

// StatsRepo computes the platform aggregates behind the admin stats
// endpoint.  Every number comes from the database, not the in-memory
// ledger, so the snapshot is consistent after a restart.
type StatsRepo struct {
	db *sql.DB
}

// NewStatsRepo returns a new StatsRepo bound to the given database.
func NewStatsRepo(db *sql.DB) *StatsRepo { return &StatsRepo{db: db} }

// System gathers the aggregate counters in three grouped queries: users,
// events by approval state, and bookings with tickets and revenue.
// Revenue counts confirmed bookings only.
func (r *StatsRepo) System(ctx context.Context) (*model.SystemStats, error) {
	var s model.SystemStats

	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users`).Scan(&s.TotalUsers); err != nil {
		return nil, err
	}

	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(approved = 1), 0),
		        COALESCE(SUM(approved = 0), 0)
		 FROM events`).Scan(&s.TotalEvents, &s.ApprovedEvents, &s.PendingEvents); err != nil {
		return nil, err
	}

	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(status = ?), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN quantity ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN total_price_cents ELSE 0 END), 0)
		 FROM bookings`,
		model.BookingCancelled, model.BookingConfirmed, model.BookingConfirmed).
		Scan(&s.TotalBookings, &s.CancelledBookings, &s.TicketsSold, &s.GrossRevenueCents); err != nil {
		return nil, err
	}

	return &s, nil
}
