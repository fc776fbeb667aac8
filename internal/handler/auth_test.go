package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bruindash/bruindash/internal/config"
)

func TestLogoutAll_RequiresSubject(t *testing.T) {
	// The token store is never reached when the context carries no usable
	// subject, so nil repositories are safe here.
	h := NewAuthHandler(config.Config{}, nil, nil)
	e := echo.New()

	// No user_id in context at all.
	req := httptest.NewRequest(http.MethodPost, "/v1/logout-all", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h.LogoutAll(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A non-string subject (malformed claim) is rejected the same way.
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.Set("user_id", 42)
	require.NoError(t, h.LogoutAll(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
