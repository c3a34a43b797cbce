package routes

import (
	"net/http"
	"strings"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/fitgraph/backend/internal/server/middleware"
	"github.com/fitgraph/backend/pkg/contextpack"
	"github.com/fitgraph/backend/pkg/graph"
	"github.com/fitgraph/backend/pkg/logger"
	"github.com/fitgraph/backend/pkg/pipeline"
)

// ListClientsHandler returns every client with at least one processed
// document.
func ListClientsHandler(c echo.Context) error {
	type listClientsResponse struct {
		Message string   `json:"message"`
		Clients []string `json:"clients"`
	}

	svc := c.(*middleware.AppContext).App.Service
	clients, err := svc.Store().ListClients()
	if err != nil {
		logger.Error("listing clients failed", "err", err)
		return c.JSON(http.StatusInternalServerError, listClientsResponse{Message: "Internal server error"})
	}
	return c.JSON(http.StatusOK, listClientsResponse{Message: "OK", Clients: clients})
}

// GetInsightsHandler returns the client's traits, drivers and risks from the
// graph, each with its accumulated evidence.
func GetInsightsHandler(c echo.Context) error {
	type insightsParams struct {
		ClientName string `param:"name" validate:"required"`
	}

	type insightsResponse struct {
		Message    string             `json:"message"`
		ClientName string             `json:"client_name,omitempty"`
		Insights   *graph.ClientFacts `json:"insights,omitempty"`
	}

	params := new(insightsParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, insightsResponse{Message: "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, insightsResponse{Message: "Invalid request params"})
	}

	svc := c.(*middleware.AppContext).App.Service
	insights, err := svc.Insights(params.ClientName)
	if err != nil {
		logger.Error("loading insights failed", "client", params.ClientName, "err", err)
		return c.JSON(http.StatusInternalServerError, insightsResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, insightsResponse{
		Message:    "OK",
		ClientName: params.ClientName,
		Insights:   &insights,
	})
}

// GetFitsHandler ranks career or business archetypes for the client.
func GetFitsHandler(c echo.Context) error {
	type fitsParams struct {
		ClientName string `param:"name" validate:"required"`
		Kind       string `query:"kind" validate:"omitempty,oneof=career business"`
		TopN       int    `query:"top_n" validate:"omitempty,min=1,max=20"`
	}

	type fitsResponse struct {
		Message string              `json:"message"`
		Kind    string              `json:"kind,omitempty"`
		Fits    *pipeline.FitResult `json:"fits,omitempty"`
	}

	params := new(fitsParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, fitsResponse{Message: "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, fitsResponse{Message: "Invalid request params"})
	}
	kind := params.Kind
	if kind == "" {
		kind = string(pipeline.FitCareer)
	}

	svc := c.(*middleware.AppContext).App.Service
	fits, err := svc.Fits(params.ClientName, pipeline.FitKind(kind), params.TopN)
	if err != nil {
		logger.Error("fit scoring failed", "client", params.ClientName, "kind", kind, "err", err)
		return c.JSON(http.StatusInternalServerError, fitsResponse{Message: "Internal server error"})
	}

	message := "OK"
	if fits.NotEnoughSignals {
		message = "Not enough clean signals extracted; results may be unreliable"
	}
	return c.JSON(http.StatusOK, fitsResponse{
		Message: message,
		Kind:    kind,
		Fits:    &fits,
	})
}

// GetContextPackHandler returns the bounded fact pack for the client.
func GetContextPackHandler(c echo.Context) error {
	type packParams struct {
		ClientName string `param:"name" validate:"required"`
	}

	type packResponse struct {
		Message    string            `json:"message"`
		Pack       *contextpack.Pack `json:"pack,omitempty"`
		TokenCount int               `json:"token_count,omitempty"`
	}

	params := new(packParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, packResponse{Message: "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, packResponse{Message: "Invalid request params"})
	}

	svc := c.(*middleware.AppContext).App.Service
	pack, err := svc.ContextPack(params.ClientName)
	if err != nil {
		logger.Error("context pack build failed", "client", params.ClientName, "err", err)
		return c.JSON(http.StatusInternalServerError, packResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, packResponse{
		Message:    "OK",
		Pack:       &pack,
		TokenCount: pack.TokenCount(),
	})
}

// GetTemplateHandler renders one deterministic artifact for the client:
// call_plan, summary or followup_email.
func GetTemplateHandler(c echo.Context) error {
	type templateParams struct {
		ClientName string `param:"name" validate:"required"`
		Kind       string `param:"kind" validate:"required,oneof=call_plan summary followup_email"`
		Stage      string `query:"stage"`
		Profile    string `query:"profile"`
		Outcome    string `query:"outcome"`
	}

	type templateResponse struct {
		Message string `json:"message"`
		Kind    string `json:"kind,omitempty"`
		Text    string `json:"text,omitempty"`
	}

	params := new(templateParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, templateResponse{Message: "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, templateResponse{Message: "Invalid request params"})
	}

	svc := c.(*middleware.AppContext).App.Service
	text, err := svc.RenderTemplate(
		params.ClientName,
		params.Kind,
		strings.TrimSpace(params.Stage),
		strings.TrimSpace(params.Profile),
		strings.TrimSpace(params.Outcome),
	)
	if err != nil {
		logger.Error("template rendering failed", "client", params.ClientName, "kind", params.Kind, "err", err)
		return c.JSON(http.StatusInternalServerError, templateResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, templateResponse{
		Message: "OK",
		Kind:    params.Kind,
		Text:    text,
	})
}
