package handler

import (
	"context"  // provides context with cancellation for store calls
	"errors"   // errors.Is for repository sentinels
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"     // timeouts and token lifetimes

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/valeri1383/SOLENT-APP-VAL/internal/config"     // app configuration
	"github.com/valeri1383/SOLENT-APP-VAL/internal/identity"   // account sign-up and sign-in
	"github.com/valeri1383/SOLENT-APP-VAL/internal/middleware" // session accessors and roles
	"github.com/valeri1383/SOLENT-APP-VAL/internal/repository" // user documents
	"github.com/valeri1383/SOLENT-APP-VAL/internal/session"    // server-side session records
	"github.com/valeri1383/SOLENT-APP-VAL/internal/utils"      // access token issuing
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Accounts identity.Provider
	Users    *repository.UserRepo
	Sessions *session.Manager
}

func NewAuthHandler(cfg config.Config, accounts identity.Provider, users *repository.UserRepo, sessions *session.Manager) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Accounts: accounts, Users: users, Sessions: sessions}
}

// ----- DTOs -----

type signUpReq struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	DisplayName     string `json:"display_name"`
}
type signInReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type signInResp struct {
	User   session.Record `json:"user"`
	Access tokenPart      `json:"access"`
}

// SignUp creates an account and its user document.  The caller is not
// signed in; the client is expected to sign in next.
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req signUpReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}
	if req.ConfirmPassword != req.Password {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Passwords do not match"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acc, err := h.Accounts.SignUp(ctx, req.Email, req.Password, strings.TrimSpace(req.DisplayName))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"uid":         acc.UID,
		"email":       acc.Email,
		"displayName": acc.DisplayName,
	})
}

// SignIn verifies the credentials, opens a session and returns an access
// token naming it.  The admin flag comes from the user document.
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req signInReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	acc, err := h.Accounts.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	rec := session.Record{UID: acc.UID, Email: acc.Email, DisplayName: acc.DisplayName}
	u, err := h.Users.GetByID(ctx, acc.UID)
	switch {
	case err == nil:
		rec.IsAdmin = u.IsAdmin
		if rec.DisplayName == "" {
			rec.DisplayName = u.Name
		}
	case errors.Is(err, repository.ErrUserNotFound):
		// account without a user document: sign in as a regular user
	default:
		return writeError(c, err)
	}

	sid, rec, err := h.Sessions.Start(ctx, rec)
	if err != nil {
		return writeError(c, err)
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, rec.UID, sid, middleware.RoleFor(rec.IsAdmin), time.Duration(h.Cfg.AccessTTLMin)*time.Minute)
	if err != nil {
		_ = h.Sessions.End(ctx, sid)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, signInResp{
		User:   rec,
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// SignOut ends the caller's session.  The access token stops working
// immediately even though it has not expired.
func (h *AuthHandler) SignOut(c echo.Context) error {
	if err := h.Sessions.End(c.Request().Context(), middleware.SessionID(c)); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's session record together with the ids of the
// events they have booked.
func (h *AuthHandler) Me(c echo.Context) error {
	rec, ok := middleware.Session(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	eventList := []string{}
	if u, err := h.Users.GetByID(c.Request().Context(), rec.UID); err == nil {
		eventList = append(eventList, u.EventList...)
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":       rec,
		"event_list": eventList,
	})
}
