package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	CtxUserID = "user_id" // int64
	CtxRole   = "role"    // string
	CtxEmail  = "email"   // string
)

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (int64, bool) {
	id, ok := c.Get(CtxUserID).(int64)
	return id, ok && id > 0
}

// Role returns the authenticated user's role, or "".
func Role(c echo.Context) string {
	r, _ := c.Get(CtxRole).(string)
	return r
}

// identity names the caller for rate limit keys: the user id, or "anon".
func identity(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatInt(id, 10)
	}
	return "anon"
}
