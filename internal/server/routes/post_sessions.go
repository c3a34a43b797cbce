package routes

import (
	"errors"
	"net/http"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/fitgraph/backend/internal/server/middleware"
	"github.com/fitgraph/backend/pkg/session"
)

// CreateSessionHandler opens a chat session, optionally pre-bound to a
// client.
func CreateSessionHandler(c echo.Context) error {
	type createSessionBody struct {
		ClientName   string `json:"client_name"`
		BusinessType string `json:"business_type"`
	}

	type createSessionResponse struct {
		Message string           `json:"message"`
		Session *session.Session `json:"session,omitempty"`
	}

	body := new(createSessionBody)
	if err := c.Bind(body); err != nil {
		return c.JSON(http.StatusBadRequest, createSessionResponse{Message: "Invalid request body"})
	}

	sessions := c.(*middleware.AppContext).App.Sessions
	s, err := sessions.Create(body.ClientName, body.BusinessType)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createSessionResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, createSessionResponse{Message: "Session created", Session: s})
}

// GetSessionHandler returns a session snapshot including its transcript.
func GetSessionHandler(c echo.Context) error {
	type getSessionParams struct {
		ID string `param:"id" validate:"required"`
	}

	type getSessionResponse struct {
		Message string           `json:"message"`
		Session *session.Session `json:"session,omitempty"`
	}

	params := new(getSessionParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getSessionResponse{Message: "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getSessionResponse{Message: "Invalid request params"})
	}

	sessions := c.(*middleware.AppContext).App.Sessions
	s, err := sessions.Get(params.ID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return c.JSON(http.StatusNotFound, getSessionResponse{Message: "Session not found"})
		}
		return c.JSON(http.StatusInternalServerError, getSessionResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, getSessionResponse{Message: "OK", Session: s})
}

// DeleteSessionHandler drops a session. Persisted facts and the graph are
// never touched by a session reset.
func DeleteSessionHandler(c echo.Context) error {
	type deleteSessionParams struct {
		ID string `param:"id" validate:"required"`
	}

	type deleteSessionResponse struct {
		Message string `json:"message"`
	}

	params := new(deleteSessionParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteSessionResponse{Message: "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteSessionResponse{Message: "Invalid request params"})
	}

	sessions := c.(*middleware.AppContext).App.Sessions
	sessions.Delete(params.ID)

	return c.JSON(http.StatusOK, deleteSessionResponse{Message: "Session deleted"})
}
