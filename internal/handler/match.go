package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bruindash/bruindash/internal/model"
	"github.com/bruindash/bruindash/internal/queue"
	"github.com/bruindash/bruindash/internal/repository"
	queue_publisher "github.com/bruindash/bruindash/internal/service"
	"github.com/bruindash/bruindash/internal/utils"
)

// MatchStore persists handshake records. *repository.MatchRepo implements it.
type MatchStore interface {
	Create(ctx context.Context, m *model.Match) error
	GetByID(ctx context.Context, id string) (model.Match, error)
	RecordVerification(ctx context.Context, id string, byOrderer bool) (model.Match, error)
}

// ConversationOpener opens a chat thread between two users once a match is
// confirmed. *repository.ConversationRepo implements it. May be nil when
// messaging is disabled.
type ConversationOpener interface {
	GetOrCreate(ctx context.Context, a, b string) (model.Conversation, error)
}

// MatchHandler implements the claim/verify flow. A claim is a single
// atomic operation against the availability store: the winning orderer
// flips the deliverer's row to inactive and receives a handshake record
// with two server-generated PINs. Each party then types in the PIN the
// other party read out; once both verify, the match is confirmed and a
// conversation between the two users is opened.
type MatchHandler struct {
	Avail         AvailabilityStore
	Users         UserDirectory
	Matches       MatchStore
	Conversations ConversationOpener
	TTL           time.Duration
	// Publish sends the match.claimed event; swapped out in tests.
	Publish func(ctx context.Context, ev queue.MatchClaimedEvent) error
}

func NewMatchHandler(avail AvailabilityStore, users UserDirectory, matches MatchStore, convs ConversationOpener, ttl time.Duration) *MatchHandler {
	if avail == nil || users == nil || matches == nil {
		panic("nil store passed to NewMatchHandler")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &MatchHandler{
		Avail:         avail,
		Users:         users,
		Matches:       matches,
		Conversations: convs,
		TTL:           ttl,
		Publish:       queue_publisher.PublishMatchClaimed,
	}
}

type claimReq struct {
	OrdererID string `json:"orderer_id"`
	HallID    string `json:"hall_id"`
}

type verifyReq struct {
	UserID string `json:"user_id"`
	PIN    string `json:"pin"`
}

type matchPart struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	OrdererOK   bool      `json:"orderer_ok"`
	DelivererOK bool      `json:"deliverer_ok"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Claim handles POST /v1/matches/claim. The claim deactivates the
// most-recently-active deliverer in the hall; concurrent claimers cannot
// both receive the same deliverer because the flip happens inside the
// store's claim operation, not as a separate follow-up call.
func (h *MatchHandler) Claim(c echo.Context) error {
	var req claimReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.OrdererID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "orderer_id (string) is required"})
	}
	if strings.TrimSpace(req.HallID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hall_id (string) is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	row, err := h.Avail.Claim(ctx, req.HallID)
	if err != nil {
		if err == repository.ErrNoDeliverers {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "no active deliverers for hall"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	ordererPIN, err := utils.NewPIN()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "pin generation failed"})
	}
	delivererPIN, err := utils.NewPIN()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "pin generation failed"})
	}

	m := model.Match{
		ID:           uuid.NewString(),
		OrdererID:    req.OrdererID,
		DelivererID:  row.UserID,
		HallID:       row.HallID,
		DesiredOrder: row.DesiredOrder,
		OrdererPIN:   ordererPIN,
		DelivererPIN: delivererPIN,
		Status:       model.MatchPending,
		ExpiresAt:    time.Now().UTC().Add(h.TTL),
	}
	if err := h.Matches.Create(ctx, &m); err != nil {
		// Put the deliverer back in the pool; without a handshake record
		// neither party can see the claim.
		if _, rerr := h.Avail.Activate(ctx, row.UserID, row.HallID, row.DesiredOrder); rerr != nil {
			log.Printf("matches: failed to restore availability for %s after create error: %v", row.UserID, rerr)
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	// Contact details for the claimed deliverer, same enrichment as the list.
	users, err := h.Users.GetByIDs(ctx, []string{row.UserID})
	if err != nil {
		log.Printf("matches: failed to fetch deliverer user data: %v", err)
		users = nil
	}
	deliverer := enrichRow(row, users)

	hallName := m.HallID
	if hall, ok := model.HallByID(m.HallID); ok {
		hallName = hall.Name
	}
	ev := queue.MatchClaimedEvent{
		MatchID:      m.ID,
		OrdererID:    m.OrdererID,
		DelivererID:  m.DelivererID,
		HallID:       m.HallID,
		HallName:     hallName,
		DesiredOrder: m.DesiredOrder,
		ClaimedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	// Fire and forget; a broker outage must not fail the claim.
	go func() { _ = h.Publish(context.Background(), ev) }()

	return c.JSON(http.StatusCreated, echo.Map{
		"match": matchPart{
			ID:        m.ID,
			Status:    m.Status,
			ExpiresAt: m.ExpiresAt,
		},
		"deliverer": deliverer,
		"pin":       ordererPIN,
	})
}

// Verify handles POST /v1/matches/:id/verify. Each party submits the PIN
// the other party read out; the server compares it against the
// counterpart's stored PIN. Both sides verified moves the match to
// CONFIRMED and opens a conversation between the two users.
func (h *MatchHandler) Verify(c echo.Context) error {
	matchID := c.Param("id")
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.UserID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id (string) is required"})
	}
	if strings.TrimSpace(req.PIN) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "pin (string) is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Matches.GetByID(ctx, matchID)
	if err != nil {
		if err == repository.ErrMatchNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "match not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	if time.Now().UTC().After(m.ExpiresAt) {
		return c.JSON(http.StatusGone, echo.Map{"error": "match expired"})
	}

	var byOrderer bool
	switch req.UserID {
	case m.OrdererID:
		if req.PIN != m.DelivererPIN {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "pin mismatch"})
		}
		byOrderer = true
	case m.DelivererID:
		if req.PIN != m.OrdererPIN {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "pin mismatch"})
		}
	default:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "user is not part of this match"})
	}

	// The store flips only this party's flag, so two parties verifying at
	// the same time cannot overwrite each other.
	updated, err := h.Matches.RecordVerification(ctx, m.ID, byOrderer)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	if updated.Status == model.MatchConfirmed && h.Conversations != nil {
		if _, err := h.Conversations.GetOrCreate(ctx, updated.OrdererID, updated.DelivererID); err != nil {
			log.Printf("matches: failed to open conversation for match %s: %v", updated.ID, err)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"match": matchPart{
		ID:          updated.ID,
		Status:      updated.Status,
		OrdererOK:   updated.OrdererOK,
		DelivererOK: updated.DelivererOK,
		ExpiresAt:   updated.ExpiresAt,
	}})
}

// Get handles GET /v1/matches/:id. It is a participant-scoped read: the
// caller receives the handshake state plus their own PIN — the one they
// read out to the other party. The orderer gets the PIN from the claim
// response anyway; the deliverer, who never saw the claim response,
// fetches theirs here after the orderer shares the match id at handoff.
func (h *MatchHandler) Get(c echo.Context) error {
	matchID := c.Param("id")
	userID := c.QueryParam("user_id")
	if strings.TrimSpace(userID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id query parameter is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Matches.GetByID(ctx, matchID)
	if err != nil {
		if err == repository.ErrMatchNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "match not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	var pin string
	switch userID {
	case m.OrdererID:
		pin = m.OrdererPIN
	case m.DelivererID:
		pin = m.DelivererPIN
	default:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "user is not part of this match"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"match": matchPart{
			ID:          m.ID,
			Status:      m.Status,
			OrdererOK:   m.OrdererOK,
			DelivererOK: m.DelivererOK,
			ExpiresAt:   m.ExpiresAt,
		},
		"pin": pin,
	})
}
