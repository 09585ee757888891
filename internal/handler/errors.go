package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonathanw33/mrsa-kds/internal/client"
	"github.com/jonathanw33/mrsa-kds/internal/fasta"
	"github.com/jonathanw33/mrsa-kds/internal/model"
	"github.com/jonathanw33/mrsa-kds/internal/service"
)

func writeError(c *gin.Context, err error) {
	var apiErr *client.APIError
	switch {
	case errors.Is(err, fasta.ErrInvalidUpload), errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "not found"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized"})
	case errors.Is(err, service.ErrExplainUnavailable):
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{Error: err.Error()})
	case errors.As(err, &apiErr):
		// Upstream validation errors reach the caller as-is.
		if apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			c.JSON(apiErr.StatusCode, model.ErrorResponse{Error: apiErr.Detail})
			return
		}
		c.JSON(http.StatusBadGateway, model.ErrorResponse{Error: "analysis server error"})
	case errors.Is(err, service.ErrUpstream):
		c.JSON(http.StatusBadGateway, model.ErrorResponse{Error: "analysis server unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "internal error"})
	}
}
