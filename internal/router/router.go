// Package router maps the REST surface onto handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/duongquang05/marathon-portal/internal/handler"
	"github.com/duongquang05/marathon-portal/internal/middleware"
	"github.com/duongquang05/marathon-portal/internal/model"
)

// RegisterRoutes registers the health probes.
func RegisterRoutes(e *echo.Echo, health *handler.HealthHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/api/health", health.Check)
}

// RegisterAuth registers the session endpoints. None of them need an
// access token; logout reads one from the header when present.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, mw ...echo.MiddlewareFunc) {
	g := e.Group("/api/auth", mw...)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
}

// RegisterParticipant registers routes open to any signed-in account. mw
// runs after authentication, so it sees the caller's identity.
func RegisterParticipant(e *echo.Echo, h *handler.ParticipantHandler, jwtSecret string, mw ...echo.MiddlewareFunc) {
	g := e.Group("/api", authenticated(jwtSecret, []string{model.RoleParticipant, model.RoleAdmin}, mw)...)
	g.GET("/me", h.Me)
	g.PUT("/me", h.UpdateMe)
	g.GET("/marathons", h.ListMarathons)
	g.POST("/participations", h.Register)
	g.GET("/participations/my", h.ListMine)
	g.POST("/participations/:id/cancel", h.Cancel)
}

// RegisterAdmin registers /api/admin. mw runs after authentication on
// every admin route; writeMW wraps only the passing point writes,
// typically with the cache invalidator.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string, mw []echo.MiddlewareFunc, writeMW ...echo.MiddlewareFunc) {
	g := e.Group("/api/admin", authenticated(jwtSecret, []string{model.RoleAdmin}, mw)...)

	g.GET("/marathons", h.ListMarathons)
	g.POST("/marathons", h.CreateMarathon)
	g.PUT("/marathons/:id", h.UpdateMarathon)
	g.DELETE("/marathons/:id", h.DeleteMarathon)
	g.POST("/marathons/:id/cancel", h.CancelMarathon)

	g.GET("/participations", h.ListParticipations)
	g.POST("/participations/:id/accept", h.Accept)
	g.POST("/participations/:id/result", h.SetResult)
	g.POST("/participations/:id/cancel", h.CancelParticipation)

	g.GET("/participants", h.ListParticipants)
	g.PUT("/participants/:id", h.UpdateParticipant)
	g.DELETE("/participants/:id", h.DeleteParticipant)

	pp := g.Group("/passing-points", writeMW...)
	pp.POST("", h.CreatePassingPoint)
	pp.PUT("/:id", h.UpdatePassingPoint)
	pp.DELETE("/:id", h.DeletePassingPoint)
}

// RegisterPublic registers guest endpoints. mw wraps them, typically with
// the rate limiter and the response cache.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, mw ...echo.MiddlewareFunc) {
	g := e.Group("/api/passing-points", mw...)
	g.GET("", p.ListPassingPoints)
	g.GET("/:id", p.GetPassingPoint)
}

func authenticated(jwtSecret string, roles []string, mw []echo.MiddlewareFunc) []echo.MiddlewareFunc {
	chain := []echo.MiddlewareFunc{
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(roles...),
	}
	return append(chain, mw...)
}
