package routes

import (
	"errors"
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/fitgraph/backend/internal/server/middleware"
	"github.com/fitgraph/backend/pkg/advisor"
	"github.com/fitgraph/backend/pkg/logger"
	"github.com/fitgraph/backend/pkg/session"
)

// ChatHandler answers one of the supported client questions. When a session
// id is supplied the question and answer are appended to that session's
// transcript.
func ChatHandler(c echo.Context) error {
	type chatBody struct {
		ClientName   string `param:"name" validate:"required"`
		Question     string `json:"question" validate:"required"`
		SessionID    string `json:"session_id"`
		BusinessType string `json:"business_type"`
		Polish       bool   `json:"polish"`
	}

	type chatResponse struct {
		Message string `json:"message"`
		Answer  string `json:"answer,omitempty"`
	}

	body := new(chatBody)
	if err := c.Bind(body); err != nil {
		return c.JSON(http.StatusBadRequest, chatResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(body); err != nil {
		return c.JSON(http.StatusBadRequest, chatResponse{Message: "Invalid request body"})
	}

	app := c.(*middleware.AppContext).App
	if body.SessionID != "" {
		if err := app.Sessions.SetClient(body.SessionID, body.ClientName); err != nil {
			if errors.Is(err, session.ErrNotFound) {
				return c.JSON(http.StatusNotFound, chatResponse{Message: "Session not found"})
			}
			return c.JSON(http.StatusInternalServerError, chatResponse{Message: "Internal server error"})
		}
	}

	answer, err := app.Service.Chat(c.Request().Context(), body.ClientName, body.BusinessType, body.Question, body.Polish)
	if err != nil {
		logger.Error("chat answer failed", "client", body.ClientName, "err", err)
		return c.JSON(http.StatusInternalServerError, chatResponse{Message: "Internal server error"})
	}

	if body.SessionID != "" {
		_ = app.Sessions.Append(body.SessionID, session.Message{Role: "user", Content: body.Question})
		_ = app.Sessions.Append(body.SessionID, session.Message{Role: "assistant", Content: answer})
	}

	return c.JSON(http.StatusOK, chatResponse{Message: "OK", Answer: answer})
}

// AdviseHandler answers a free-text strategy question from the client's
// context pack.
func AdviseHandler(c echo.Context) error {
	type adviseBody struct {
		ClientName string `param:"name" validate:"required"`
		Question   string `json:"question" validate:"required"`
	}

	type adviseResponse struct {
		Message string          `json:"message"`
		Advice  *advisor.Advice `json:"advice,omitempty"`
	}

	body := new(adviseBody)
	if err := c.Bind(body); err != nil {
		return c.JSON(http.StatusBadRequest, adviseResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(body); err != nil {
		return c.JSON(http.StatusBadRequest, adviseResponse{Message: "Invalid request body"})
	}

	svc := c.(*middleware.AppContext).App.Service
	advice, err := svc.Advise(body.ClientName, body.Question)
	if err != nil {
		logger.Error("advisor failed", "client", body.ClientName, "err", err)
		return c.JSON(http.StatusInternalServerError, adviseResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, adviseResponse{Message: "OK", Advice: &advice})
}
