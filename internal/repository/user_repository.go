package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/bruindash/bruindash/internal/model"
	"github.com/bruindash/bruindash/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a user and returns its generated UUID.
func (r *UserRepo) Create(ctx context.Context, userName *string, email, password string, cost int) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	var name sql.NullString
	if userName != nil && strings.TrimSpace(*userName) != "" {
		name = sql.NullString{String: strings.TrimSpace(*userName), Valid: true}
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id, user_name, email, password_hash) VALUES (?,?,?,?)",
		id, name, email, hash)
	if err != nil {
		// 1062 = duplicate entry; the only unique key besides the PK is email
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return "", ErrEmailExists
		}
		return "", err
	}
	return id, nil
}

func scanUser(row *sql.Row) (model.User, error) {
	var u model.User
	var name sql.NullString
	err := row.Scan(&u.ID, &name, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if name.Valid {
		n := name.String
		u.UserName = &n
	}
	return u, err
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT id,user_name,email,password_hash,is_active,created_at,updated_at FROM users WHERE email=? LIMIT 1",
		email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT id,user_name,email,password_hash,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id))
}

// GetByIDs fetches several users in one query and returns them keyed by id.
// Missing ids are simply absent from the map. Used by the deliverer listing
// to enrich availability rows with display names and contact strings.
func (r *UserRepo) GetByIDs(ctx context.Context, ids []string) (map[string]model.User, error) {
	if len(ids) == 0 {
		return map[string]model.User{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	q := "SELECT id,user_name,email FROM users WHERE id IN (" + strings.Join(placeholders, ",") + ")"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := make(map[string]model.User, len(ids))
	for rows.Next() {
		var u model.User
		var name sql.NullString
		if err := rows.Scan(&u.ID, &name, &u.Email); err != nil {
			return nil, err
		}
		if name.Valid {
			n := name.String
			u.UserName = &n
		}
		users[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
