package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bruindash/bruindash/internal/model"
	"github.com/bruindash/bruindash/internal/repository"
)

// ConversationStore is the full conversation persistence surface the
// messaging endpoints depend on. *repository.ConversationRepo implements it.
type ConversationStore interface {
	ConversationOpener
	ListForUser(ctx context.Context, userID string) ([]repository.ConversationPreview, error)
	GetConversation(ctx context.Context, id string) (model.Conversation, error)
	InsertMessage(ctx context.Context, conversationID, senderID, body string) (model.Message, error)
	ListMessages(ctx context.Context, conversationID string, limit int, beforeID *string) ([]model.Message, error)
}

// MessageHandler serves the conversation endpoints backing the messages
// landing and chat screens. Threads are two-party; membership is checked
// on every read and write.
type MessageHandler struct {
	Convs ConversationStore
}

func NewMessageHandler(convs ConversationStore) *MessageHandler {
	if convs == nil {
		panic("nil store passed to NewMessageHandler")
	}
	return &MessageHandler{Convs: convs}
}

type openConversationReq struct {
	UserID string `json:"user_id"`
	PeerID string `json:"peer_id"`
}

type sendMessageReq struct {
	SenderID string `json:"sender_id"`
	Body     string `json:"body"`
}

// Open handles POST /v1/conversations. Opening is idempotent per user
// pair: repeated opens return the same thread.
func (h *MessageHandler) Open(c echo.Context) error {
	var req openConversationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.UserID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id (string) is required"})
	}
	if strings.TrimSpace(req.PeerID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "peer_id (string) is required"})
	}
	if req.UserID == req.PeerID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot open a conversation with yourself"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	conv, err := h.Convs.GetOrCreate(ctx, req.UserID, req.PeerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"conversation": echo.Map{
		"id":         conv.ID,
		"created_at": conv.CreatedAt,
	}})
}

// List handles GET /v1/conversations?user_id=. Threads are ordered by most
// recent activity and carry a last-message preview.
func (h *MessageHandler) List(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id query parameter is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	previews, err := h.Convs.ListForUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"conversations": previews})
}

// Send handles POST /v1/conversations/:id/messages.
func (h *MessageHandler) Send(c echo.Context) error {
	convID := c.Param("id")
	var req sendMessageReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.SenderID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "sender_id (string) is required"})
	}
	if strings.TrimSpace(req.Body) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "body (string) is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	conv, err := h.Convs.GetConversation(ctx, convID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	if req.SenderID != conv.UserA && req.SenderID != conv.UserB {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "sender is not part of this conversation"})
	}

	msg, err := h.Convs.InsertMessage(ctx, convID, req.SenderID, req.Body)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": echo.Map{
		"id":         msg.ID,
		"sender_id":  msg.SenderID,
		"body":       msg.Body,
		"created_at": msg.CreatedAt,
	}})
}

// History handles GET /v1/conversations/:id/messages?limit=&before=.
// Messages come back oldest-first; the before cursor pages further into
// the past.
func (h *MessageHandler) History(c echo.Context) error {
	convID := c.Param("id")

	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	var beforeID *string
	if before := c.QueryParam("before"); before != "" {
		beforeID = &before
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Convs.GetConversation(ctx, convID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "conversation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	msgs, err := h.Convs.ListMessages(ctx, convID, limit, beforeID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	out := make([]echo.Map, len(msgs))
	for i, m := range msgs {
		out[i] = echo.Map{
			"id":         m.ID,
			"sender_id":  m.SenderID,
			"body":       m.Body,
			"created_at": m.CreatedAt,
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"messages": out,
		"has_more": len(msgs) == limit,
	})
}
