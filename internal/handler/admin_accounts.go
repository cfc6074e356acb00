package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/identity"
)

// AdminAccountsHandler lets admins block sign-in for an account.
type AdminAccountsHandler struct {
	Accounts identity.Provider
}

func NewAdminAccountsHandler(accounts identity.Provider) *AdminAccountsHandler {
	return &AdminAccountsHandler{Accounts: accounts}
}

type disabledReq struct {
	Disabled *bool `json:"disabled"`
}

// SetDisabled handles PUT /v1/admin/accounts/:uid/disabled.  Sessions that
// are already open run until they expire or sign out.
func (h *AdminAccountsHandler) SetDisabled(c echo.Context) error {
	var req disabledReq
	if err := c.Bind(&req); err != nil || req.Disabled == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "disabled (bool) required"})
	}
	uid := c.Param("uid")
	if err := h.Accounts.SetDisabled(c.Request().Context(), uid, *req.Disabled); err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "account not found"})
		}
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"uid": uid, "disabled": *req.Disabled})
}
