package handler

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bruindash/bruindash/internal/model"
)

// AvailabilityStore is the persistence capability the deliverer endpoints
// depend on: a point upsert, a conditional deactivate, a filtered/ordered
// list, an atomic claim, and an active-count aggregation for the status
// feed. *repository.AvailabilityRepo implements it.
type AvailabilityStore interface {
	Activate(ctx context.Context, userID, hallID, desiredOrder string) (model.Availability, error)
	Deactivate(ctx context.Context, userID string) (model.Availability, error)
	ListActive(ctx context.Context, hallID string) ([]model.Availability, error)
	Claim(ctx context.Context, hallID string) (model.Availability, error)
	CountActiveByHall(ctx context.Context) (map[string]int, error)
}

// UserDirectory is the slice of the user store needed to enrich listings
// with display names and contact strings. *repository.UserRepo implements it.
type UserDirectory interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]model.User, error)
}

// DelivererHandler serves the availability lifecycle endpoints: activate,
// deactivate and list. Store errors are passed through verbatim in the
// response body, matching the behavior the mobile client was built against.
type DelivererHandler struct {
	Avail AvailabilityStore
	Users UserDirectory
}

func NewDelivererHandler(avail AvailabilityStore, users UserDirectory) *DelivererHandler {
	if avail == nil || users == nil {
		panic("nil store passed to NewDelivererHandler")
	}
	return &DelivererHandler{Avail: avail, Users: users}
}

type activateReq struct {
	UserID       string `json:"user_id"`
	HallID       string `json:"hall_id"`
	DesiredOrder string `json:"desired_order"`
}

type deactivateReq struct {
	UserID string `json:"user_id"`
}

// Activate handles POST /v1/deliverers/activate. All three fields are
// required strings; the row is upserted with active=true and the persisted
// row (including its store-assigned id) is returned. No write happens on
// validation failure.
func (h *DelivererHandler) Activate(c echo.Context) error {
	var req activateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.UserID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id (string) is required"})
	}
	if strings.TrimSpace(req.HallID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hall_id (string) is required"})
	}
	if strings.TrimSpace(req.DesiredOrder) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "desired_order (string) is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	row, err := h.Avail.Activate(ctx, req.UserID, req.HallID, req.DesiredOrder)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"availability": row})
}

// Deactivate handles POST /v1/deliverers/deactivate. Rows are never
// deleted, so repeated deactivation succeeds; 404 means the user never
// activated at all.
func (h *DelivererHandler) Deactivate(c echo.Context) error {
	var req deactivateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.UserID) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id (string) is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	row, err := h.Avail.Deactivate(ctx, req.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "No availability found for user"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"availability": row})
}

// List handles GET /v1/deliverers. Active rows only, optionally filtered
// by the hall_id query parameter, most recently updated first. Each row is
// enriched best effort with the deliverer's display name and contact; a
// failed enrichment lookup is logged and the bare rows are returned.
func (h *DelivererHandler) List(c echo.Context) error {
	hallID := c.QueryParam("hall_id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Avail.ListActive(ctx, hallID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	if len(rows) == 0 {
		return c.JSON(http.StatusOK, echo.Map{"deliverers": []model.Deliverer{}})
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.UserID != "" {
			ids = append(ids, r.UserID)
		}
	}
	users, err := h.Users.GetByIDs(ctx, ids)
	if err != nil {
		log.Printf("deliverers: failed to fetch user data for enrichment: %v", err)
		users = nil
	}

	enriched := make([]model.Deliverer, 0, len(rows))
	for _, r := range rows {
		enriched = append(enriched, enrichRow(r, users))
	}
	return c.JSON(http.StatusOK, echo.Map{"deliverers": enriched})
}

// enrichRow attaches display fields from the user lookup. The name falls
// back to the local part of the email when no user_name is set; both
// fields stay nil when the user is unknown.
func enrichRow(a model.Availability, users map[string]model.User) model.Deliverer {
	d := model.Deliverer{Availability: a}
	u, ok := users[a.UserID]
	if !ok {
		return d
	}
	if u.UserName != nil && *u.UserName != "" {
		d.UserName = u.UserName
	} else if u.Email != "" {
		local := u.Email
		if i := strings.Index(u.Email, "@"); i > 0 {
			local = u.Email[:i]
		}
		d.UserName = &local
	}
	if u.Email != "" {
		email := u.Email
		d.Contact = &email
	}
	return d
}
