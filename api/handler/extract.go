package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/glimpse/models"
)

// ContentExtractor runs one extraction request. *pipeline.Pipeline
// implements it.
type ContentExtractor interface {
	Run(ctx context.Context, req *models.ExtractContentRequest) (*models.ExtractContentResponse, error)
}

// ExtractContent returns the handler for POST /extract-content.
//
// URL validation happens here, before the pipeline, so the error
// messages stay exactly as the API contract fixes them.
func ExtractContent(p ContentExtractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ExtractContentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: models.MsgURLRequired})
			return
		}

		if strings.TrimSpace(req.URL) == "" {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: models.MsgURLRequired})
			return
		}

		resp, err := p.Run(c.Request.Context(), &req)
		if err != nil {
			status, msg := mapError(err)
			c.JSON(status, models.ErrorResponse{Error: msg})
			return
		}

		c.JSON(http.StatusOK, resp)
	}
}

// mapError picks the HTTP status for a pipeline error. Invalid input is
// the client's fault; everything else surfaces as 500.
func mapError(err error) (int, string) {
	var ee *models.ExtractError
	if errors.As(err, &ee) {
		if ee.Code == models.ErrCodeInvalidInput {
			return http.StatusBadRequest, ee.Message
		}
		return http.StatusInternalServerError, ee.Message
	}
	return http.StatusInternalServerError, err.Error()
}
