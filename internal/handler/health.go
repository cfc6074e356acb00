package handler // declare the package name; contains HTTP handlers

import (
	"context"  // context bounds the store probe
	"log"      // log records a failed probe
	"net/http" // net/http provides status codes and response helpers
	"time"     // time sets the probe timeout

	"github.com/labstack/echo/v4" // echo is the web framework used for this project

	"github.com/valeri1383/SOLENT-APP-VAL/internal/docstore"   // store probed for readiness
	"github.com/valeri1383/SOLENT-APP-VAL/internal/repository" // collection name used by the probe
)

// Health is a simple liveness endpoint used by load balancers.  It returns
// a plain text "ok" with a 200 status code.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Ready reports whether the document store answers a one-item listing.
func Ready(store docstore.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if _, err := store.List(ctx, repository.EventsCollection, docstore.Query{Limit: 1}); err != nil {
			log.Printf("ready: store probe failed: %v", err)
			return c.String(http.StatusServiceUnavailable, "store unavailable")
		}
		return c.String(http.StatusOK, "ready")
	}
}
