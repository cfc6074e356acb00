package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/valeri1383/SOLENT-APP-VAL/internal/docstore"   // store probed by the readiness check
	"github.com/valeri1383/SOLENT-APP-VAL/internal/handler"    // handlers that implement each endpoint
	"github.com/valeri1383/SOLENT-APP-VAL/internal/middleware" // JWT authentication and admin checks
	"github.com/valeri1383/SOLENT-APP-VAL/internal/repository" // user documents for the admin check
	"github.com/valeri1383/SOLENT-APP-VAL/internal/session"    // session records behind the tokens
)

// Guards groups the middleware shared by the route files.  Limit, BookLimit
// and Cache may be pass-through middleware when Redis is not available.
type Guards struct {
	JWTSecret string
	Sessions  *session.Manager
	Users     *repository.UserRepo
	Limit     echo.MiddlewareFunc
	BookLimit echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
}

func pass(next echo.HandlerFunc) echo.HandlerFunc { return next }

// withDefaults replaces unset middleware with pass-through.
func (g Guards) withDefaults() Guards {
	if g.Limit == nil {
		g.Limit = pass
	}
	if g.BookLimit == nil {
		g.BookLimit = pass
	}
	if g.Cache == nil {
		g.Cache = pass
	}
	return g
}

func (g Guards) auth() echo.MiddlewareFunc {
	return middleware.JWTAuth(g.JWTSecret, g.Sessions)
}

func (g Guards) optionalAuth() echo.MiddlewareFunc {
	return middleware.OptionalAuth(g.JWTSecret, g.Sessions)
}

// RegisterRoutes registers the unauthenticated health endpoints.  /healthz
// is liveness only; /readyz also probes the document store.
func RegisterRoutes(e *echo.Echo, store docstore.Store) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(store))
}

// RegisterAuth registers sign-up, sign-in, sign-out and /v1/me.  Sign-up
// and sign-in are rate limited per client; sign-out and /v1/me need a live
// session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, g Guards) {
	g = g.withDefaults()
	pub := e.Group("/v1/auth", g.Limit)
	pub.POST("/signup", a.SignUp)
	pub.POST("/signin", a.SignIn)

	e.POST("/v1/auth/signout", a.SignOut, g.auth())
	e.GET("/v1/me", a.Me, g.auth())
}
