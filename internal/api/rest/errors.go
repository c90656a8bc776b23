package rest

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apierrors "github.com/feral-file/ff-marketplace/internal/api/shared/errors"
	"github.com/feral-file/ff-marketplace/internal/domain"
	"github.com/feral-file/ff-marketplace/internal/logger"
)

// respondWithError sends a standardized error response
func respondWithError(c *gin.Context, statusCode int, apiErr *apierrors.APIError) {
	c.JSON(statusCode, apierrors.Response{Error: apiErr})
}

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	respondWithError(c, http.StatusBadRequest, apierrors.NewBadRequestError(message, details...))
}

// respondError maps a workflow error to its status code and error envelope
func respondError(c *gin.Context, err error, message string) {
	statusCode, apiErr := toAPIError(err, message)
	if statusCode >= http.StatusInternalServerError {
		logger.ErrorCtx(c.Request.Context(), err, zap.String("path", c.Request.URL.Path))
	}
	respondWithError(c, statusCode, apiErr)
}

func toAPIError(err error, message string) (int, *apierrors.APIError) {
	var (
		validationErr *domain.ValidationError
		uploadErr     *domain.UploadError
		mintErr       *domain.MintError
		maxBytesErr   *http.MaxBytesError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity, apierrors.NewValidationError("missing fields: " + strings.Join(validationErr.Fields, ", "))
	case errors.Is(err, domain.ErrInvalidAddress):
		return http.StatusBadRequest, apierrors.NewBadRequestError("Invalid address", err.Error())
	case errors.Is(err, domain.ErrSignerRequired):
		return http.StatusUnauthorized, apierrors.NewSignerRequiredError(err.Error())
	case errors.Is(err, domain.ErrTokenNotFound):
		return http.StatusNotFound, apierrors.NewNotFoundError("Token not found", err.Error())
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, apierrors.NewPayloadTooLargeError("Request body too large", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, apierrors.NewTimeoutError(message, err.Error())
	case errors.As(err, &uploadErr):
		return http.StatusBadGateway, apierrors.NewUploadError("Failed to upload to content storage", uploadErr.Error())
	case errors.As(err, &mintErr):
		details := mintErr.Message
		if details == "" {
			details = mintErr.Error()
		}
		return http.StatusBadGateway, apierrors.NewMintError("Failed to mint token", details)
	default:
		return http.StatusInternalServerError, apierrors.NewInternalError(message)
	}
}
