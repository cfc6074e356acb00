package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/booking"
	"github.com/valeri1383/SOLENT-APP-VAL/internal/middleware"
)

// BookingHandler relays book and cancel requests to the booking service.
// JWTAuth must run first.
type BookingHandler struct {
	Bookings *booking.Service
}

func NewBookingHandler(b *booking.Service) *BookingHandler {
	return &BookingHandler{Bookings: b}
}

func userID(c echo.Context) (string, bool) {
	uid, ok := c.Get(middleware.KeyUserID).(string)
	return uid, ok && uid != ""
}

// Book handles POST /v1/events/:id/book.
func (h *BookingHandler) Book(c echo.Context) error {
	uid, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Please sign in to book events!"})
	}
	e, err := h.Bookings.Book(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Event booked successfully!", "event": e})
}

// Cancel handles DELETE /v1/events/:id/book.
func (h *BookingHandler) Cancel(c echo.Context) error {
	uid, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	e, err := h.Bookings.Cancel(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking cancelled successfully", "event": e})
}

// Booked handles GET /v1/events/:id/booked.
func (h *BookingHandler) Booked(c echo.Context) error {
	uid, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id := c.Param("id")
	booked, err := h.Bookings.IsBooked(c.Request().Context(), uid, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"event_id": id, "booked": booked})
}

// MyEvents handles GET /v1/my-events: the events the caller has booked.
func (h *BookingHandler) MyEvents(c echo.Context) error {
	uid, ok := userID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	events, err := h.Bookings.UserEvents(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, events)
}
