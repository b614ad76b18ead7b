package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/duongquang05/marathon-portal/internal/apperr"
	"github.com/duongquang05/marathon-portal/internal/model"
	"github.com/duongquang05/marathon-portal/internal/service"
)

// ParticipantHandler serves the signed-in runner: profile, the marathon
// catalogue and their own participations.
type ParticipantHandler struct {
	Accounts       *service.ParticipantService
	Marathons      *service.MarathonService
	Participations *service.ParticipationService
	// Now is the clock cancellation deadlines are checked against.
	Now func() time.Time
}

func NewParticipantHandler(accounts *service.ParticipantService, marathons *service.MarathonService, parts *service.ParticipationService) *ParticipantHandler {
	return &ParticipantHandler{Accounts: accounts, Marathons: marathons, Participations: parts, Now: time.Now}
}

// Me handles GET /api/me.
func (h *ParticipantHandler) Me(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Accounts.Get(ctx, who.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateMe handles PUT /api/me. The role cannot be changed here.
func (h *ParticipantHandler) UpdateMe(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	var patch service.ProfilePatch
	if err := bind(c, &patch); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Accounts.UpdateProfile(ctx, who.UserID, patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// ListMarathons handles GET /api/marathons: Active marathons by race date.
func (h *ParticipantHandler) ListMarathons(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.Marathons.List(ctx, false)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

type registerParticipationReq struct {
	MarathonID int64   `json:"marathon_id"`
	Hotel      *string `json:"hotel"`
}

// Register handles POST /api/participations.
func (h *ParticipantHandler) Register(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	var req registerParticipationReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	if req.MarathonID <= 0 {
		return respondError(c, apperr.Validation("marathon_id is required"))
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Participations.Register(ctx, who.UserID, req.MarathonID, req.Hotel)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":                   model.ParticipationID(p.MarathonID, p.UserID),
		"participation":        p,
		"entry_number_display": p.EntryNumberDisplay(),
	})
}

// ListMine handles GET /api/participations/my.
func (h *ParticipantHandler) ListMine(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.Participations.ListMine(ctx, who.UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Cancel handles POST /api/participations/:id/cancel for the caller's own
// entry.
func (h *ParticipantHandler) Cancel(c echo.Context) error {
	return cancelParticipation(c, h.Participations, h.Now)
}

func cancelParticipation(c echo.Context, svc *service.ParticipationService, now func() time.Time) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	mid, uid, err := participationPath(c)
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := svc.Cancel(ctx, who, mid, uid, now()); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "participation cancelled"})
}
