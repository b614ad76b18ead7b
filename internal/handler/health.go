package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/duongquang05/marathon-portal/internal/repository"
)

// Health is the liveness probe for load balancers. It does not touch
// storage.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// HealthHandler reports whether the configured store answers.
type HealthHandler struct {
	Stores *repository.Stores
	Driver string
}

// Check handles GET /api/health.
func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Stores.Ping(ctx); err != nil {
		c.Logger().Warnf("health: %s store unreachable: %v", h.Driver, err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "storage": h.Driver})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ok", "storage": h.Driver})
}
