package middleware

// identity.go holds the context keys written by JWTAuth and helpers to read
// them back.  Requests without a token are attributed to "anon".

import (
	"github.com/labstack/echo/v4"
)

const (
	ctxSubject = "user_id"
	ctxRole    = "role"
)

// Subject returns the token subject stored by JWTAuth, or "anon".
func Subject(c echo.Context) string {
	if s, ok := c.Get(ctxSubject).(string); ok && s != "" {
		return s
	}
	return "anon"
}

// Role returns the role claim stored by JWTAuth, or "".
func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}
