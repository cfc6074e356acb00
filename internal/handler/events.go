// Package handler exposes the HTTP handlers.  This file holds the public
// catalog endpoints: listings, a single event and the map markers.  They
// need no authentication; a valid bearer token only adds the caller's
// booked flags to the markers.

package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/catalog"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/mapview"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/middleware"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/repository"
)

// EventsHandler serves read-only catalog views.
type EventsHandler struct {
	Catalog *catalog.Manager
	Users   *repository.UserRepo
}

func NewEventsHandler(cat *catalog.Manager, users *repository.UserRepo) *EventsHandler {
	return &EventsHandler{Catalog: cat, Users: users}
}

// List handles GET /v1/events.
func (h *EventsHandler) List(c echo.Context) error {
	events, err := h.Catalog.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, events)
}

// Get handles GET /v1/events/:id.
func (h *EventsHandler) Get(c echo.Context) error {
	e, err := h.Catalog.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// Recent handles GET /v1/events/recent?limit=N.  The limit defaults to
// five and must be a positive integer when given.
func (h *EventsHandler) Recent(c echo.Context) error {
	limit := repository.DefaultRecentLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "limit must be a positive integer"})
		}
		limit = n
	}
	events, err := h.Catalog.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, events)
}

// ByType handles GET /v1/events/type/:type.
func (h *EventsHandler) ByType(c echo.Context) error {
	events, err := h.Catalog.ListByType(c.Request().Context(), c.Param("type"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, events)
}

// Markers handles GET /v1/map/markers?q=term.  Events without both
// coordinates are left off the map; q filters on the event type.
func (h *EventsHandler) Markers(c echo.Context) error {
	ctx := c.Request().Context()
	events, err := h.Catalog.List(ctx)
	if err != nil {
		return writeError(c, err)
	}
	viewer := mapview.Viewer{}
	if rec, ok := middleware.Session(c); ok {
		u, err := h.Users.GetByID(ctx, rec.UID)
		switch {
		case err == nil:
			viewer = mapview.NewViewer(u)
		case errors.Is(err, repository.ErrUserNotFound):
			viewer = mapview.Viewer{LoggedIn: true}
		default:
			return writeError(c, err)
		}
	}
	return c.JSON(http.StatusOK, mapview.Markers(mapview.Filter(events, c.QueryParam("q")), viewer))
}
