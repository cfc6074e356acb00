package router

import (
	"github.com/labstack/echo/v4"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/handler"
)

// RegisterBooking registers the booking endpoints.  All of them require a
// live session; book and cancel also pass the stricter booking limiter.
// Auth is attached per route: a group middleware on /v1 would also guard
// the /v1/* not-found handler and turn unknown paths into 401s.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, g Guards) {
	g = g.withDefaults()
	auth := g.auth()
	e.POST("/v1/events/:id/book", h.Book, auth, g.BookLimit)
	e.DELETE("/v1/events/:id/book", h.Cancel, auth, g.BookLimit)
	e.GET("/v1/events/:id/booked", h.Booked, auth)
	e.GET("/v1/my-events", h.MyEvents, auth)
}
