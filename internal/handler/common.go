package handler

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/duongquang05/marathon-portal/internal/apperr"
	"github.com/duongquang05/marathon-portal/internal/middleware"
	"github.com/duongquang05/marathon-portal/internal/service"
)

// requestTimeout bounds the storage work of one request.
const requestTimeout = 5 * time.Second

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// respondError writes err as {"error": message} with the status of its kind.
// Internal failures are logged with their cause and answered generically.
func respondError(c echo.Context, err error) error {
	status := apperr.HTTPStatus(err)
	if apperr.KindOf(err) == apperr.KindInternal {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, echo.Map{"error": apperr.PublicMessage(err)})
}

// caller reads the principal JWTAuth stored in the context.
func caller(c echo.Context) (service.Caller, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return service.Caller{}, apperr.Unauthorized("unauthorized")
	}
	return service.Caller{UserID: id, Role: middleware.Role(c)}, nil
}

func pathID(c echo.Context, name, what string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidArgument("invalid %s id", what)
	}
	return id, nil
}

// parseParticipationID splits "<marathon_id>-<user_id>".
func parseParticipationID(raw string) (marathonID, userID int64, err error) {
	m, u, ok := strings.Cut(raw, "-")
	if ok {
		marathonID, err = strconv.ParseInt(m, 10, 64)
		if err == nil {
			userID, err = strconv.ParseInt(u, 10, 64)
		}
	}
	if !ok || err != nil || marathonID <= 0 || userID <= 0 {
		return 0, 0, apperr.InvalidArgument("invalid participation id, expected <marathon_id>-<user_id>")
	}
	return marathonID, userID, nil
}

func participationPath(c echo.Context) (int64, int64, error) {
	return parseParticipationID(c.Param("id"))
}

// looseString renders a JSON scalar as text so clients may send numbers
// either quoted or bare. null and absent values become "".
func looseString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if strings.HasPrefix(s, `"`) {
		var out string
		if err := json.Unmarshal(raw, &out); err == nil {
			return out
		}
	}
	return s
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperr.Validation("invalid request body")
	}
	return nil
}
