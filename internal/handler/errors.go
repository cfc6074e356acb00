package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/booking"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/catalog"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/docstore"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/identity"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/repository"
)

// writeError maps a service error onto a status code and an
// echo.Map{"error": ...} body.  Unknown errors are logged and reported as
// a generic retry prompt.
func writeError(c echo.Context, err error) error {
	var authErr *identity.AuthError
	var valErr *catalog.ValidationError
	switch {
	case errors.As(err, &authErr):
		return c.JSON(authStatus(authErr.Code), echo.Map{"error": authErr.Error(), "code": authErr.Code})
	case errors.As(err, &valErr):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": valErr.Msg, "field": valErr.Field})
	case errors.Is(err, booking.ErrUserNotFound), errors.Is(err, repository.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, repository.ErrEventNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case booking.IsRuleViolation(err), errors.Is(err, catalog.ErrCapacityBelowBookings):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, catalog.ErrConfirmationRequired):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "add ?confirm=true to delete this event"})
	case errors.Is(err, repository.ErrNoChange):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "nothing to update"})
	case errors.Is(err, booking.ErrInProgress):
		return c.JSON(http.StatusTooManyRequests, echo.Map{"error": err.Error()})
	case errors.Is(err, booking.ErrConflict), errors.Is(err, docstore.ErrConflict):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": booking.ErrConflict.Error()})
	case errors.Is(err, booking.ErrBackendUnavailable):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
	}
	log.Printf("handler: %s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "please try again later"})
}

func authStatus(code string) int {
	switch code {
	case identity.CodeInvalidEmail, identity.CodeWeakPassword:
		return http.StatusBadRequest
	case identity.CodeUserNotFound, identity.CodeWrongPassword:
		return http.StatusUnauthorized
	case identity.CodeUserDisabled:
		return http.StatusForbidden
	case identity.CodeEmailAlreadyInUse:
		return http.StatusConflict
	}
	return http.StatusUnauthorized
}
