package middleware

// identity.go holds the helpers that read the authenticated caller back
// out of the Echo context.

import (
	"github.com/labstack/echo/v4"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/session"
)

// Session returns the session record attached by JWTAuth or OptionalAuth.
func Session(c echo.Context) (session.Record, bool) {
	rec, ok := c.Get(KeySession).(session.Record)
	return rec, ok
}

// SessionID returns the id of the caller's session, if any.
func SessionID(c echo.Context) string {
	sid, _ := c.Get(KeySessionID).(string)
	return sid
}

// currentUserID returns the caller's user id, or "anon" for guests.
func currentUserID(c echo.Context) string {
	if s, ok := c.Get(KeyUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
