package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/bruindash/bruindash/internal/model"
)

// DiningHandler serves the live hall status feed the home screen polls.
// Status is derived from the compiled-in hall catalog (opening hours) plus
// an activity level computed from the count of active deliverers per hall.
// The response is a natural fit for the Redis response cache, wired in at
// route registration.
type DiningHandler struct {
	Avail AvailabilityStore
	// Now is the clock used for open/closed derivation; injectable for tests.
	Now func() time.Time
}

func NewDiningHandler(avail AvailabilityStore) *DiningHandler {
	if avail == nil {
		panic("nil store passed to NewDiningHandler")
	}
	return &DiningHandler{Avail: avail, Now: time.Now}
}

type hallStatus struct {
	ID            string `json:"id"`
	Status        string `json:"status"` // open | busy | closed
	StatusText    string `json:"status_text"`
	StatusDetail  string `json:"status_detail"`
	ActivityLevel int    `json:"activity_level"`
	IsOpen        bool   `json:"is_open"`
	LastUpdated   string `json:"last_updated"`
}

// Activity thresholds: three or more active deliverers reads as "busy" on
// the home screen.
const busyThreshold = 3

// Status handles GET /v1/dining/status and returns one entry per catalog
// hall. A failed activity count degrades to zero activity rather than
// failing the feed — the client treats the feed as best effort and keeps
// polling.
func (h *DiningHandler) Status(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	counts, err := h.Avail.CountActiveByHall(ctx)
	if err != nil {
		log.Printf("dining: failed to count active deliverers: %v", err)
		counts = map[string]int{}
	}

	now := h.Now().UTC()
	out := make([]hallStatus, 0, len(model.Halls()))
	for _, hall := range model.Halls() {
		out = append(out, buildHallStatus(hall, counts[hall.ID], now))
	}
	return c.JSON(http.StatusOK, echo.Map{"halls": out})
}

// buildHallStatus derives one feed entry. Activity level is a coarse
// percentage: each active deliverer adds 20 points, capped at 100.
func buildHallStatus(hall model.Hall, active int, now time.Time) hallStatus {
	open := hall.OpenAt(now.Hour())
	level := active * 20
	if level > 100 {
		level = 100
	}

	st := hallStatus{
		ID:            hall.ID,
		ActivityLevel: level,
		IsOpen:        open,
		LastUpdated:   now.Format(time.RFC3339),
	}
	switch {
	case !open:
		st.Status = "closed"
		st.StatusText = "Closed"
		st.StatusDetail = fmt.Sprintf("Opens at %s", formatHour(hall.OpenHour))
	case active >= busyThreshold:
		st.Status = "busy"
		st.StatusText = "Busy"
		st.StatusDetail = fmt.Sprintf("Closes at %s · %d deliverers active", formatHour(hall.CloseHour), active)
	default:
		st.Status = "open"
		st.StatusText = "Open"
		st.StatusDetail = fmt.Sprintf("Closes at %s", formatHour(hall.CloseHour))
	}
	return st
}

// formatHour renders an hour of day (possibly past midnight) as a 12-hour
// label like "9 PM" or "2 AM".
func formatHour(hour int) string {
	h := hour % 24
	switch {
	case h == 0:
		return "12 AM"
	case h < 12:
		return fmt.Sprintf("%d AM", h)
	case h == 12:
		return "12 PM"
	default:
		return fmt.Sprintf("%d PM", h-12)
	}
}
