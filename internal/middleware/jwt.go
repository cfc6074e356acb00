package middleware // middleware provides shared request processing for handlers

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/valeri1383/SOLENT-APP-VAL/internal/session" // server-side session records
	"github.com/valeri1383/SOLENT-APP-VAL/internal/utils"   // access token parsing
)

// Context keys set by JWTAuth and OptionalAuth.
const (
	KeyUserID    = "user_id"
	KeyRole      = "role"
	KeySessionID = "session_id"
	KeySession   = "session"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token,
// loads the session record named by its sid claim and makes the record
// available to handlers.  A token whose session has ended (sign-out or
// expiry) is rejected even if its signature and expiry are still valid.
func JWTAuth(secret string, sessions *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			if err := authenticate(c, secret, sessions, raw); err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}
			return next(c)
		}
	}
}

// OptionalAuth attaches the session when a valid bearer token is present
// and otherwise lets the request through as a guest.  Public endpoints use
// it to personalise responses.
func OptionalAuth(secret string, sessions *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearer(c); ok {
				_ = authenticate(c, secret, sessions, raw)
			}
			return next(c)
		}
	}
}

type authError string

func (e authError) Error() string { return string(e) }

func authenticate(c echo.Context, secret string, sessions *session.Manager, raw string) error {
	claims, err := utils.ParseAccessToken(secret, raw)
	if err != nil {
		return authError("invalid token")
	}
	rec, err := sessions.Resume(c.Request().Context(), claims.SessionID)
	if err != nil || rec.UID != claims.UserID {
		return authError("session expired")
	}
	c.Set(KeyUserID, claims.UserID)
	c.Set(KeyRole, claims.Role)
	c.Set(KeySessionID, claims.SessionID)
	c.Set(KeySession, rec)
	req := c.Request()
	c.SetRequest(req.WithContext(session.WithRecord(req.Context(), rec)))
	return nil
}

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}
