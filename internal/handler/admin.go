package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/duongquang05/marathon-portal/internal/service"
)

// AdminHandler serves /api/admin. Every route sits behind
// RequireRole(ADMIN).
type AdminHandler struct {
	Accounts       *service.ParticipantService
	Marathons      *service.MarathonService
	Participations *service.ParticipationService
	Points         *service.PassingPointService
	Now            func() time.Time
}

func NewAdminHandler(accounts *service.ParticipantService, marathons *service.MarathonService, parts *service.ParticipationService, points *service.PassingPointService) *AdminHandler {
	return &AdminHandler{Accounts: accounts, Marathons: marathons, Participations: parts, Points: points, Now: time.Now}
}

// ----- marathons -----

func (h *AdminHandler) ListMarathons(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.Marathons.List(ctx, true)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

type marathonReq struct {
	RaceName *string `json:"race_name"`
	RaceDate *string `json:"race_date"`
	Status   *string `json:"status"`
}

func (h *AdminHandler) CreateMarathon(c echo.Context) error {
	var req marathonReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.Marathons.Create(ctx, deref(req.RaceName), deref(req.RaceDate))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *AdminHandler) UpdateMarathon(c echo.Context) error {
	id, err := pathID(c, "id", "marathon")
	if err != nil {
		return respondError(c, err)
	}
	var req marathonReq
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.Marathons.Update(ctx, id, service.MarathonPatch{RaceName: req.RaceName, RaceDate: req.RaceDate, Status: req.Status})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *AdminHandler) CancelMarathon(c echo.Context) error {
	id, err := pathID(c, "id", "marathon")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.Marathons.Cancel(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *AdminHandler) DeleteMarathon(c echo.Context) error {
	id, err := pathID(c, "id", "marathon")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Marathons.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- participations -----

func (h *AdminHandler) ListParticipations(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.Participations.ListAll(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Accept handles POST /api/admin/participations/:id/accept. entry_number
// may be omitted for automatic assignment.
func (h *AdminHandler) Accept(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	mid, uid, err := participationPath(c)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		EntryNumber json.RawMessage `json:"entry_number"`
	}
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Participations.Accept(ctx, who, mid, uid, looseString(req.EntryNumber))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// SetResult handles POST /api/admin/participations/:id/result.
func (h *AdminHandler) SetResult(c echo.Context) error {
	who, err := caller(c)
	if err != nil {
		return respondError(c, err)
	}
	mid, uid, err := participationPath(c)
	if err != nil {
		return respondError(c, err)
	}
	var req struct {
		TimeRecord json.RawMessage `json:"time_record"`
		Standings  json.RawMessage `json:"standings"`
	}
	if err := bind(c, &req); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Participations.SetResult(ctx, who, mid, uid, looseString(req.TimeRecord), looseString(req.Standings))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminHandler) CancelParticipation(c echo.Context) error {
	return cancelParticipation(c, h.Participations, h.Now)
}

// ----- participants -----

func (h *AdminHandler) ListParticipants(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.Accounts.List(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *AdminHandler) UpdateParticipant(c echo.Context) error {
	id, err := pathID(c, "id", "participant")
	if err != nil {
		return respondError(c, err)
	}
	var patch service.ProfilePatch
	if err := bind(c, &patch); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Accounts.UpdateProfile(ctx, id, patch)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AdminHandler) DeleteParticipant(c echo.Context) error {
	id, err := pathID(c, "id", "participant")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Accounts.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ----- passing points -----

func (h *AdminHandler) CreatePassingPoint(c echo.Context) error {
	var in service.PassingPointInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Points.Create(ctx, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *AdminHandler) UpdatePassingPoint(c echo.Context) error {
	id, err := pathID(c, "id", "passing point")
	if err != nil {
		return respondError(c, err)
	}
	var in service.PassingPointInput
	if err := bind(c, &in); err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.Points.Update(ctx, id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminHandler) DeletePassingPoint(c echo.Context) error {
	id, err := pathID(c, "id", "passing point")
	if err != nil {
		return respondError(c, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.Points.Delete(ctx, id); err != nil {
		return respondError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
