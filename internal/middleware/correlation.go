package middleware

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/queue"
)

// CorrelationIDHeader carries the id that ties a request to the messages
// it publishes.
const CorrelationIDHeader = "X-Correlation-ID"

// CorrelationID extracts or generates a correlation id, echoes it in the
// response and stores it on the request context.
func CorrelationID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(CorrelationIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(CorrelationIDHeader, id)
			req := c.Request()
			c.SetRequest(req.WithContext(queue.WithCorrelationID(req.Context(), id)))
			return next(c)
		}
	}
}
