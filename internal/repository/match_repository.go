package repository

import (
	"context"
	"database/sql"

	"github.com/bruindash/bruindash/internal/model"
)

// MatchRepo provides data access to the matches table — the handshake
// records created when an orderer claims a deliverer. All timestamps are
// stored in UTC.
type MatchRepo struct {
	db *sql.DB
}

// NewMatchRepo returns a new MatchRepo bound to the given database.
func NewMatchRepo(db *sql.DB) *MatchRepo { return &MatchRepo{db: db} }

const matchCols = "id, orderer_id, deliverer_id, hall_id, desired_order, orderer_pin, deliverer_pin, orderer_ok, deliverer_ok, status, expires_at, created_at"

// Create inserts a new match row. The caller supplies the id, PINs and
// expiry; status starts as PENDING with both verification flags unset.
func (r *MatchRepo) Create(ctx context.Context, m *model.Match) error {
	const q = `INSERT INTO matches
			   (id, orderer_id, deliverer_id, hall_id, desired_order, orderer_pin, deliverer_pin, status, expires_at)
			   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		m.ID, m.OrdererID, m.DelivererID, m.HallID, m.DesiredOrder,
		m.OrdererPIN, m.DelivererPIN, m.Status, m.ExpiresAt)
	return err
}

// GetByID loads a match by its UUID. Returns ErrMatchNotFound when the id
// is unknown.
func (r *MatchRepo) GetByID(ctx context.Context, id string) (model.Match, error) {
	var m model.Match
	err := r.db.QueryRowContext(ctx,
		`SELECT `+matchCols+` FROM matches WHERE id = ? LIMIT 1`, id).Scan(
		&m.ID, &m.OrdererID, &m.DelivererID, &m.HallID, &m.DesiredOrder,
		&m.OrdererPIN, &m.DelivererPIN, &m.OrdererOK, &m.DelivererOK,
		&m.Status, &m.ExpiresAt, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return model.Match{}, ErrMatchNotFound
	}
	return m, err
}

// RecordVerification sets one party's verified flag and, once both flags
// are set, promotes the match to CONFIRMED — in a single UPDATE so two
// concurrent verifications cannot overwrite each other's flag. MySQL
// evaluates SET assignments left to right, so the status expression sees
// the flag written just before it. The updated row is returned.
func (r *MatchRepo) RecordVerification(ctx context.Context, id string, byOrderer bool) (model.Match, error) {
	col := "deliverer_ok"
	if byOrderer {
		col = "orderer_ok"
	}
	q := `UPDATE matches SET ` + col + ` = 1,
		  status = IF(orderer_ok = 1 AND deliverer_ok = 1, ?, status)
		  WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, model.MatchConfirmed, id); err != nil {
		return model.Match{}, err
	}
	return r.GetByID(ctx, id)
}
