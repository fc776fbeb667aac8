package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/bruindash/bruindash/internal/model"
)

// ConversationRepo provides data access to the conversations and messages
// tables backing the in-app chat screens.
type ConversationRepo struct {
	db *sql.DB
}

// NewConversationRepo returns a new ConversationRepo bound to the given database.
func NewConversationRepo(db *sql.DB) *ConversationRepo { return &ConversationRepo{db: db} }

// NormalizePair orders two participant ids so each pair maps to exactly one
// conversation row regardless of who opened the thread.
func NormalizePair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// GetOrCreate returns the conversation between two users, creating it when
// none exists. The UNIQUE KEY on (user_a, user_b) makes concurrent creates
// converge on one row: a duplicate insert falls through to the re-select.
func (r *ConversationRepo) GetOrCreate(ctx context.Context, a, b string) (model.Conversation, error) {
	ua, ub := NormalizePair(a, b)
	const sel = `SELECT id, user_a, user_b, created_at FROM conversations WHERE user_a = ? AND user_b = ? LIMIT 1`
	var c model.Conversation
	err := r.db.QueryRowContext(ctx, sel, ua, ub).Scan(&c.ID, &c.UserA, &c.UserB, &c.CreatedAt)
	if err == nil {
		return c, nil
	}
	if err != sql.ErrNoRows {
		return model.Conversation{}, err
	}
	id := uuid.NewString()
	_, err = r.db.ExecContext(ctx,
		`INSERT IGNORE INTO conversations (id, user_a, user_b) VALUES (?, ?, ?)`, id, ua, ub)
	if err != nil {
		return model.Conversation{}, err
	}
	err = r.db.QueryRowContext(ctx, sel, ua, ub).Scan(&c.ID, &c.UserA, &c.UserB, &c.CreatedAt)
	return c, err
}

// ConversationPreview is a conversation with its latest message, used by
// the messages landing screen.
type ConversationPreview struct {
	ID          string     `json:"id"`
	PeerID      string     `json:"peer_id"`
	LastMessage *string    `json:"last_message"`
	LastAt      *time.Time `json:"last_at"`
}

// ListForUser returns the user's conversations ordered by most recent
// activity (latest message, falling back to creation time for empty
// threads).
func (r *ConversationRepo) ListForUser(ctx context.Context, userID string) ([]ConversationPreview, error) {
	const q = `SELECT c.id,
					  CASE WHEN c.user_a = ? THEN c.user_b ELSE c.user_a END,
					  m.body, m.created_at
			   FROM conversations c
			   LEFT JOIN messages m ON m.id = (
				   SELECT id FROM messages WHERE conversation_id = c.id
				   ORDER BY created_at DESC LIMIT 1
			   )
			   WHERE c.user_a = ? OR c.user_b = ?
			   ORDER BY COALESCE(m.created_at, c.created_at) DESC`
	rows, err := r.db.QueryContext(ctx, q, userID, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ConversationPreview, 0)
	for rows.Next() {
		var p ConversationPreview
		var body sql.NullString
		var at sql.NullTime
		if err := rows.Scan(&p.ID, &p.PeerID, &body, &at); err != nil {
			return nil, err
		}
		if body.Valid {
			b := body.String
			p.LastMessage = &b
		}
		if at.Valid {
			t := at.Time
			p.LastAt = &t
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertMessage appends a message to a conversation and returns the stored
// row. Membership checks belong to the handler layer.
func (r *ConversationRepo) InsertMessage(ctx context.Context, conversationID, senderID, body string) (model.Message, error) {
	id := uuid.NewString()
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, sender_id, body) VALUES (?, ?, ?, ?)`,
		id, conversationID, senderID, body); err != nil {
		return model.Message{}, err
	}
	var m model.Message
	err := r.db.QueryRowContext(ctx,
		`SELECT id, conversation_id, sender_id, body, created_at FROM messages WHERE id = ? LIMIT 1`,
		id).Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.CreatedAt)
	return m, err
}

// GetConversation loads a conversation by id, surfacing sql.ErrNoRows for
// unknown ids.
func (r *ConversationRepo) GetConversation(ctx context.Context, id string) (model.Conversation, error) {
	var c model.Conversation
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_a, user_b, created_at FROM conversations WHERE id = ? LIMIT 1`,
		id).Scan(&c.ID, &c.UserA, &c.UserB, &c.CreatedAt)
	return c, err
}

// ListMessages returns up to limit messages of a conversation. When
// beforeID names an existing message, only messages older than it are
// returned (cursor pagination for the chat screen). Rows are fetched
// newest-first and reversed so callers render oldest-first.
func (r *ConversationRepo) ListMessages(ctx context.Context, conversationID string, limit int, beforeID *string) ([]model.Message, error) {
	q := `SELECT id, conversation_id, sender_id, body, created_at FROM messages WHERE conversation_id = ?`
	args := []interface{}{conversationID}
	if beforeID != nil {
		var cutoff time.Time
		err := r.db.QueryRowContext(ctx,
			`SELECT created_at FROM messages WHERE id = ? LIMIT 1`, *beforeID).Scan(&cutoff)
		if err == nil {
			q += ` AND created_at < ?`
			args = append(args, cutoff)
		} else if err != sql.ErrNoRows {
			return nil, err
		}
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	msgs := make([]model.Message, 0)
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
