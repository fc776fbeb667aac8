package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework handles routing

	"github.com/bruindash/bruindash/internal/handler"    // handlers implement the business logic
	"github.com/bruindash/bruindash/internal/middleware" // JWT authentication middleware
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// The /healthz endpoint can be used by load balancers or monitoring
	// systems to verify that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout accepts a refresh token in the body and revokes that session;
	// it does not require a JWT.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
	// Logout-all kills every session the user has, so unlike plain logout
	// it authenticates with the access token rather than a refresh token.
	auth.POST("/logout-all", a.LogoutAll)
}

// RegisterDeliverers registers the availability lifecycle and match
// endpoints under /v1.  All routes require a valid access token.
func RegisterDeliverers(e *echo.Echo, d *handler.DelivererHandler, m *handler.MatchHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))

	// ---- Availability lifecycle ----
	g.POST("/deliverers/activate", d.Activate)
	g.POST("/deliverers/deactivate", d.Deactivate)
	g.GET("/deliverers", d.List)

	// ---- Matching ----
	g.POST("/matches/claim", m.Claim)
	g.GET("/matches/:id", m.Get)
	g.POST("/matches/:id/verify", m.Verify)
}

// RegisterDining registers the public dining status feed.  The feed is
// polled by logged-out clients too, so no JWT is applied; the supplied
// cache middleware (a no-op when Redis is unavailable) keeps the fan-out
// off the database.
func RegisterDining(e *echo.Echo, h *handler.DiningHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/dining/status", h.Status, cache)
}

// RegisterMessaging registers the conversation endpoints under /v1.  All
// routes require a valid access token.
func RegisterMessaging(e *echo.Echo, h *handler.MessageHandler, jwtSecret string) {
	g := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	g.POST("/conversations", h.Open)
	g.GET("/conversations", h.List)
	g.POST("/conversations/:id/messages", h.Send)
	g.GET("/conversations/:id/messages", h.History)
}
