package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/duongquang05/marathon-portal/internal/service"
)

// PublicHandler serves the passing point gallery to guests.
type PublicHandler struct {
	Points *service.PassingPointService
}

func NewPublicHandler(points *service.PassingPointService) *PublicHandler {
	return &PublicHandler{Points: points}
}

// ListPassingPoints handles GET /api/passing-points, ordered by
// display_order.
func (h *PublicHandler) ListPassingPoints(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.Points.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *PublicHandler) GetPassingPoint(c echo.Context) error {
	id, err := pathID(c, "id", "passing point")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Points.Get(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}
