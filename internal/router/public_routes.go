package router

import (
	"github.com/labstack/echo/v4"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/handler"
)

// RegisterPublic registers the catalog reads.  Guests see the same data
// as signed-in users; a valid bearer token only adds booked flags to the
// map markers.  Responses are served through the response cache, which
// skips requests that carry a token.
func RegisterPublic(e *echo.Echo, h *handler.EventsHandler, g Guards) {
	g = g.withDefaults()
	v1 := e.Group("/v1", g.Limit, g.optionalAuth(), g.Cache)
	v1.GET("/events", h.List)
	// static segments win over :id in Echo's router
	v1.GET("/events/recent", h.Recent)
	v1.GET("/events/type/:type", h.ByType)
	v1.GET("/events/:id", h.Get)
	v1.GET("/map/markers", h.Markers)
}
