package routes

import (
	"io"
	"net/http"
	"strings"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"github.com/fitgraph/backend/internal/server/middleware"
	"github.com/fitgraph/backend/pkg/logger"
	"github.com/fitgraph/backend/pkg/pipeline"
)

// UploadDocumentHandler ingests one personality report PDF for a client from
// multipart/form-data and runs the full processing pipeline. `?vision=true`
// routes the document through the vision extractor instead of the text layer.
func UploadDocumentHandler(c echo.Context) error {
	type uploadParams struct {
		ClientName string `param:"name" validate:"required"`
		Vision     bool   `query:"vision"`
	}

	type uploadResponse struct {
		Message string                  `json:"message"`
		Result  *pipeline.ProcessResult `json:"result,omitempty"`
	}

	params := new(uploadParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, uploadResponse{Message: "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, uploadResponse{Message: "Invalid request params"})
	}
	clientName := strings.TrimSpace(params.ClientName)
	if clientName == "" {
		return c.JSON(http.StatusBadRequest, uploadResponse{Message: "Invalid request params"})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, uploadResponse{Message: "Missing file upload"})
	}
	src, err := file.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, uploadResponse{Message: "Invalid request body"})
	}
	defer src.Close()

	pdfBytes, err := io.ReadAll(src)
	if err != nil || len(pdfBytes) == 0 {
		return c.JSON(http.StatusBadRequest, uploadResponse{Message: "Invalid request body"})
	}

	svc := c.(*middleware.AppContext).App.Service
	result, err := svc.ProcessDocument(c.Request().Context(), clientName, file.Filename, pdfBytes, params.Vision)
	if err != nil {
		logger.Error("document processing failed", "client", clientName, "err", err)
		return c.JSON(http.StatusInternalServerError, uploadResponse{Message: "Internal server error"})
	}

	if result.Duplicate {
		return c.JSON(http.StatusOK, uploadResponse{
			Message: "Document already processed for this client",
			Result:  result,
		})
	}
	if len(result.Extraction.Facts) == 0 {
		message := result.Extraction.ExtractionMessage
		if message == "" {
			message = "No facts could be extracted from this document"
		}
		return c.JSON(http.StatusUnprocessableEntity, uploadResponse{
			Message: message,
			Result:  result,
		})
	}

	return c.JSON(http.StatusOK, uploadResponse{
		Message: "Document processed",
		Result:  result,
	})
}
