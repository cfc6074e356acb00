package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/catalog"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/model"
)

// AdminEventsHandler exposes catalog edits.  Every mutation answers with
// the refreshed catalog so the admin list never shows stale rows.
type AdminEventsHandler struct {
	Catalog *catalog.Manager
}

func NewAdminEventsHandler(cat *catalog.Manager) *AdminEventsHandler {
	if cat == nil {
		panic("nil catalog passed to NewAdminEventsHandler")
	}
	return &AdminEventsHandler{Catalog: cat}
}

// eventPatchReq is the body of PATCH: absent fields keep their value and
// "clear_location" drops both coordinates.
type eventPatchReq struct {
	Name          *string  `json:"event_name"`
	Type          *string  `json:"type"`
	Venue         *string  `json:"location"`
	Description   *string  `json:"description"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	ClearLocation bool     `json:"clear_location"`
	Capacity      *int     `json:"participants"`
}

// List handles GET /v1/admin/events.
func (h *AdminEventsHandler) List(c echo.Context) error {
	events, err := h.Catalog.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// Create handles POST /v1/admin/events.
func (h *AdminEventsHandler) Create(c echo.Context) error {
	var req model.EventFields
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	id, events, err := h.Catalog.Create(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "events": events})
}

// Replace handles PUT /v1/admin/events/:id with a complete form.
func (h *AdminEventsHandler) Replace(c echo.Context) error {
	var req model.EventFields
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	events, err := h.Catalog.Update(c.Request().Context(), c.Param("id"), catalog.FullUpdate(req))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// Patch handles PATCH /v1/admin/events/:id.
func (h *AdminEventsHandler) Patch(c echo.Context) error {
	var req eventPatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	u := catalog.Update{
		Name:          req.Name,
		Type:          req.Type,
		Venue:         req.Venue,
		Description:   req.Description,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		ClearLocation: req.ClearLocation,
		Capacity:      req.Capacity,
	}
	events, err := h.Catalog.Update(c.Request().Context(), c.Param("id"), u)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}

// Delete handles DELETE /v1/admin/events/:id?confirm=true.
func (h *AdminEventsHandler) Delete(c echo.Context) error {
	confirm, _ := strconv.ParseBool(c.QueryParam("confirm"))
	events, err := h.Catalog.Delete(c.Request().Context(), c.Param("id"), confirm)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"events": events})
}
