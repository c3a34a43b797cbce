package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/fitgraph/backend/pkg/pipeline"
	"github.com/fitgraph/backend/pkg/session"
)

// App carries the shared application services. Built once at startup; no
// package-level globals.
type App struct {
	Service  *pipeline.Service
	Sessions *session.Registry
}

// AppContext wraps the echo context with the application services.
type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, app})
		}
	}
}
