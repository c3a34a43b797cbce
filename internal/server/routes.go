package server

import (
	"github.com/labstack/echo/v4"

	"github.com/fitgraph/backend/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Client routes
	apiRoutes.GET("/clients", routes.ListClientsHandler)
	apiRoutes.POST("/clients/:name/documents", routes.UploadDocumentHandler)
	apiRoutes.GET("/clients/:name/insights", routes.GetInsightsHandler)
	apiRoutes.GET("/clients/:name/fits", routes.GetFitsHandler)
	apiRoutes.GET("/clients/:name/context-pack", routes.GetContextPackHandler)
	apiRoutes.GET("/clients/:name/templates/:kind", routes.GetTemplateHandler)

	// Conversation routes
	apiRoutes.POST("/clients/:name/chat", routes.ChatHandler)
	apiRoutes.POST("/clients/:name/advise", routes.AdviseHandler)

	// Session routes
	apiRoutes.POST("/sessions", routes.CreateSessionHandler)
	apiRoutes.GET("/sessions/:id", routes.GetSessionHandler)
	apiRoutes.DELETE("/sessions/:id", routes.DeleteSessionHandler)
}
