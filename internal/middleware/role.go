package middleware // middleware provides shared request processing for handlers

import (
	"errors"   // errors distinguishes a missing user from a store failure
	"log"      // log records store failures during the admin check
	"net/http" // http package defines standard HTTP status codes

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/valeri1383/SOLENT-APP-VAL/internal/repository" // user documents hold the admin flag
)

// Roles carried in the access token.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// RoleFor returns the token role for an admin flag.
func RoleFor(isAdmin bool) string {
	if isAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// RequireRole returns a middleware that enforces that the authenticated
// user has one of the specified roles.  It assumes JWTAuth stored the role
// claim under "role".
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(KeyRole).(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireAdmin re-reads the caller's user document and rejects the request
// unless its admin flag is set.  The flag in the token or session may be
// stale after an admin is demoted, so the document is the authority.
func RequireAdmin(users *repository.UserRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, ok := c.Get(KeyUserID).(string)
			if !ok || uid == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			u, err := users.GetByID(c.Request().Context(), uid)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
				}
				log.Printf("admin check: load user %s: %v", uid, err)
				return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "please try again later"})
			}
			if !u.IsAdmin {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "admin access required"})
			}
			return next(c)
		}
	}
}
