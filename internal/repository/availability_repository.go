package repository

import (
	"context"
	"database/sql"

	"github.com/bruindash/bruindash/internal/model"
)

// AvailabilityRepo provides data access to the deliver_availability table.
// The table holds at most one row per user, enforced by a UNIQUE KEY on
// user_id, and rows are never deleted. All timestamps are stored in UTC.
type AvailabilityRepo struct {
	db *sql.DB
}

// NewAvailabilityRepo returns a new AvailabilityRepo bound to the given database.
func NewAvailabilityRepo(db *sql.DB) *AvailabilityRepo { return &AvailabilityRepo{db: db} }

const availabilityCols = "id, user_id, hall_id, desired_order, active, updated_at"

func scanAvailability(row *sql.Row) (model.Availability, error) {
	var a model.Availability
	err := row.Scan(&a.ID, &a.UserID, &a.HallID, &a.DesiredOrder, &a.Active, &a.UpdatedAt)
	return a, err
}

// Activate upserts the availability row for a user in a single atomic
// statement. The uniqueness constraint on user_id makes the insert-or-update
// race-free: two concurrent activations for the same new user cannot create
// duplicate rows. The persisted row is queried back so the caller receives
// the store-assigned id and timestamp.
func (r *AvailabilityRepo) Activate(ctx context.Context, userID, hallID, desiredOrder string) (model.Availability, error) {
	const q = `INSERT INTO deliver_availability (user_id, hall_id, desired_order, active, updated_at)
			   VALUES (?, ?, ?, 1, UTC_TIMESTAMP())
			   ON DUPLICATE KEY UPDATE
				   hall_id = VALUES(hall_id),
				   desired_order = VALUES(desired_order),
				   active = 1,
				   updated_at = UTC_TIMESTAMP()`
	if _, err := r.db.ExecContext(ctx, q, userID, hallID, desiredOrder); err != nil {
		return model.Availability{}, err
	}
	const sel = `SELECT ` + availabilityCols + ` FROM deliver_availability WHERE user_id = ? LIMIT 1`
	return scanAvailability(r.db.QueryRowContext(ctx, sel, userID))
}

// Deactivate flips the user's row to inactive and refreshes updated_at.
// It returns sql.ErrNoRows when the user has no row at all. Because rows
// are never deleted, repeated deactivation succeeds and simply re-writes
// active=false.
func (r *AvailabilityRepo) Deactivate(ctx context.Context, userID string) (model.Availability, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE deliver_availability SET active = 0, updated_at = UTC_TIMESTAMP() WHERE user_id = ?`,
		userID)
	if err != nil {
		return model.Availability{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// updated_at always changes, so zero affected rows means no row exists
		return model.Availability{}, sql.ErrNoRows
	}
	const sel = `SELECT ` + availabilityCols + ` FROM deliver_availability WHERE user_id = ? LIMIT 1`
	return scanAvailability(r.db.QueryRowContext(ctx, sel, userID))
}

// ListActive returns all active rows, optionally filtered to one hall,
// ordered by updated_at descending (most recently activated first).
func (r *AvailabilityRepo) ListActive(ctx context.Context, hallID string) ([]model.Availability, error) {
	q := `SELECT ` + availabilityCols + ` FROM deliver_availability WHERE active = 1`
	args := []interface{}{}
	if hallID != "" {
		q += ` AND hall_id = ?`
		args = append(args, hallID)
	}
	q += ` ORDER BY updated_at DESC`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Availability, 0)
	for rows.Next() {
		var a model.Availability
		if err := rows.Scan(&a.ID, &a.UserID, &a.HallID, &a.DesiredOrder, &a.Active, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Claim atomically selects and deactivates the most-recently-updated active
// row for a hall. The row is locked inside a transaction so that two
// concurrent orderers cannot both receive the same deliverer: the loser of
// the lock race re-evaluates active=1 and moves on to the next row or
// reports ErrNoDeliverers. The returned row reflects the post-claim state
// (active=false).
func (r *AvailabilityRepo) Claim(ctx context.Context, hallID string) (model.Availability, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Availability{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	q := `SELECT ` + availabilityCols + ` FROM deliver_availability WHERE active = 1`
	args := []interface{}{}
	if hallID != "" {
		q += ` AND hall_id = ?`
		args = append(args, hallID)
	}
	q += ` ORDER BY updated_at DESC LIMIT 1 FOR UPDATE`

	var a model.Availability
	err = tx.QueryRowContext(ctx, q, args...).Scan(
		&a.ID, &a.UserID, &a.HallID, &a.DesiredOrder, &a.Active, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Availability{}, ErrNoDeliverers
	}
	if err != nil {
		return model.Availability{}, err
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE deliver_availability SET active = 0, updated_at = UTC_TIMESTAMP() WHERE id = ? AND active = 1`,
		a.ID); err != nil {
		return model.Availability{}, err
	}
	if err = tx.Commit(); err != nil {
		return model.Availability{}, err
	}
	committed = true
	a.Active = false
	return a, nil
}

// CountActiveByHall returns the number of active rows per hall id. Used by
// the dining status feed to derive an activity level.
func (r *AvailabilityRepo) CountActiveByHall(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT hall_id, COUNT(*) FROM deliver_availability WHERE active = 1 GROUP BY hall_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var hall string
		var n int
		if err := rows.Scan(&hall, &n); err != nil {
			return nil, err
		}
		counts[hall] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}
