package model

import "time"

// Conversation models a row in the `conversations` table.  A conversation
// is a two-party thread; participants are stored in a normalized order
// (lexicographically smaller UUID first) so that each pair maps to exactly
// one row regardless of who opened the thread.
type Conversation struct {
	ID        string    // conversations.id (CHAR(36) UUID)
	UserA     string    // conversations.user_a (smaller UUID)
	UserB     string    // conversations.user_b (larger UUID)
	CreatedAt time.Time // conversations.created_at
}

// Message models a row in the `messages` table.
type Message struct {
	ID             string    // messages.id (CHAR(36) UUID)
	ConversationID string    // messages.conversation_id
	SenderID       string    // messages.sender_id
	Body           string    // messages.body
	CreatedAt      time.Time // messages.created_at
}
