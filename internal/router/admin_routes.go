package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/valeri1383/SOLENT-APP-VAL/internal/handler"    // admin handlers
	"github.com/valeri1383/SOLENT-APP-VAL/internal/middleware" // admin check
)

// RegisterAdmin registers catalog and account management under /v1/admin.
// Every route requires a live session, an admin role in the token and an
// admin flag on the user document.  The role claim is checked first so
// plain users are turned away without a store read; the document check
// catches admins demoted after they signed in.
func RegisterAdmin(e *echo.Echo, a *handler.AdminEventsHandler, acc *handler.AdminAccountsHandler, g Guards) {
	g = g.withDefaults()
	// Attach middlewares at group construction time for clarity.
	adm := e.Group(
		"/v1/admin",
		g.auth(),
		middleware.RequireRole(middleware.RoleAdmin),
		middleware.RequireAdmin(g.Users),
	)

	adm.GET("/events", a.List)
	adm.POST("/events", a.Create)
	adm.PUT("/events/:id", a.Replace)
	adm.PATCH("/events/:id", a.Patch) // partial edits
	adm.DELETE("/events/:id", a.Delete)

	adm.PUT("/accounts/:uid/disabled", acc.SetDisabled)
}
