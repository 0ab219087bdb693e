package repository

import (
	"context"
	"database/sql"

	"github.com/attendly/ticketing/internal/model"
)

// ReviewRepo provides data access to the reviews table.
type ReviewRepo struct {
	db *sql.DB
}

// NewReviewRepo returns a new ReviewRepo bound to the given database.
func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

// Create inserts a review and populates its generated ID.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO reviews (event_id, user_id, user_name, rating, comment) VALUES (?,?,?,?,?)`,
		rv.EventID, rv.UserID, rv.UserName, rv.Rating, rv.Comment)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rv.ID = uint64(id)
	return nil
}

// ListByEvent returns an event's reviews, newest first.
func (r *ReviewRepo) ListByEvent(ctx context.Context, eventID uint64) ([]model.Review, error) {
	const q = `SELECT id, event_id, user_id, user_name, rating, comment, flagged, created_at
	           FROM reviews WHERE event_id = ? ORDER BY created_at DESC`
	return r.list(ctx, q, eventID)
}

// ListFlagged returns all reported reviews for the admin moderation
// queue, oldest report first.
func (r *ReviewRepo) ListFlagged(ctx context.Context) ([]model.Review, error) {
	const q = `SELECT id, event_id, user_id, user_name, rating, comment, flagged, created_at
	           FROM reviews WHERE flagged = 1 ORDER BY created_at`
	return r.list(ctx, q)
}

// Flag marks a review as reported.
func (r *ReviewRepo) Flag(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reviews SET flagged = 1 WHERE id = ?`, id)
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

// Unflag clears the report after an admin dismisses it.
func (r *ReviewRepo) Unflag(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reviews SET flagged = 0 WHERE id = ?`, id)
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

// Delete removes a review outright.
func (r *ReviewRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
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

func (r *ReviewRepo) list(ctx context.Context, q string, args ...interface{}) ([]model.Review, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	reviews := make([]model.Review, 0)
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.EventID, &rv.UserID, &rv.UserName, &rv.Rating, &rv.Comment, &rv.Flagged, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}
