package repository

import (
	"context"
	"database/sql"

	"github.com/attendly/ticketing/internal/model"
)

// CommissionRepo reads and writes the single-row commission_settings
// table holding the platform revenue split.
type CommissionRepo struct {
	db *sql.DB
}

// NewCommissionRepo returns a new CommissionRepo bound to the given
// database.
func NewCommissionRepo(db *sql.DB) *CommissionRepo { return &CommissionRepo{db: db} }

// Get returns the current split.  When the row has never been written it
// falls back to the 10/90 default rather than erroring.
func (r *CommissionRepo) Get(ctx context.Context) (model.CommissionSettings, error) {
	var cs model.CommissionSettings
	err := r.db.QueryRowContext(ctx,
		`SELECT admin_pct, organizer_pct, updated_at FROM commission_settings WHERE id = 1`).
		Scan(&cs.AdminPct, &cs.OrganizerPct, &cs.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.CommissionSettings{AdminPct: 10, OrganizerPct: 90}, nil
	}
	return cs, err
}

// Update replaces the split.  The two percentages must already have been
// validated to sum to 100.
func (r *CommissionRepo) Update(ctx context.Context, cs model.CommissionSettings) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO commission_settings (id, admin_pct, organizer_pct) VALUES (1, ?, ?)
		 ON DUPLICATE KEY UPDATE admin_pct = VALUES(admin_pct), organizer_pct = VALUES(organizer_pct)`,
		cs.AdminPct, cs.OrganizerPct)
	return err
}
