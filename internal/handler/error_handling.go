package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ecosort-server/shared/models"
)

// handleServiceError переводит доменные ошибки сервисного слоя в HTTP-коды.
func handleServiceError(c *gin.Context, err error, logger *zap.Logger) {
	var statusCode int
	var errResp models.ErrorResponse

	switch {
	case errors.Is(err, models.ErrSessionNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Error: "No active game session; start one first"}
	case errors.Is(err, models.ErrCatalogNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Error: "Catalog entry not found"}
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		errResp = models.ErrorResponse{Error: "Resource not found"}
	case errors.Is(err, models.ErrUnknownGameKind):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Error: "Unknown game kind"}
	case errors.Is(err, models.ErrBadRequest), errors.Is(err, models.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		errResp = models.ErrorResponse{Error: err.Error()}
	case errors.Is(err, models.ErrSessionAlreadyOver):
		statusCode = http.StatusConflict
		errResp = models.ErrorResponse{Error: "Game session is already over"}
	case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrTokenInvalid),
		errors.Is(err, models.ErrTokenMalformed), errors.Is(err, models.ErrTokenExpired):
		statusCode = http.StatusUnauthorized
		errResp = models.ErrorResponse{Error: "Unauthorized"}
	case errors.Is(err, models.ErrForbidden):
		statusCode = http.StatusForbidden
		errResp = models.ErrorResponse{Error: "Forbidden"}
	default:
		logger.Error("Unhandled internal error in handleServiceError", zap.Error(err), zap.String("path", c.Request.URL.Path))
		statusCode = http.StatusInternalServerError
		errResp = models.ErrorResponse{Error: "An unexpected internal error occurred"}
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}
