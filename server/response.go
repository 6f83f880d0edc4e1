package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/portalgpt/errors"
	"github.com/kbukum/portalgpt/logger"
)

// DataResponse is the standard success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// ErrorEnvelope is the error body with the request id, so a client report
// can be matched to the server log line.
type ErrorEnvelope struct {
	apperrors.ErrorResponse
	RequestID string `json:"request_id,omitempty"`
}

// retryAfterSeconds is advertised on retryable 503 and 504 answers: a busy
// completion slot or a backend that timed out.
const retryAfterSeconds = "1"

// RespondWithError renders err as an AppError body, wrapping anything else
// as internal. Server-side failures are logged with the request id.
func RespondWithError(c *gin.Context, err error) {
	appErr := apperrors.From(err)
	ctx := c.Request.Context()

	if appErr.HTTPStatus >= http.StatusInternalServerError {
		fields := logger.Fields("code", string(appErr.Code), "status", appErr.HTTPStatus, "path", c.FullPath())
		if err != nil {
			fields[logger.FieldError] = err.Error()
		}
		logger.WithContext(ctx).Error("request failed", fields)
	}
	if appErr.Retryable && (appErr.HTTPStatus == http.StatusServiceUnavailable || appErr.HTTPStatus == http.StatusGatewayTimeout) {
		c.Header("Retry-After", retryAfterSeconds)
	}
	c.JSON(appErr.HTTPStatus, ErrorEnvelope{
		ErrorResponse: appErr.ToResponse(),
		RequestID:     logger.RequestIDFromContext(ctx),
	})
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}
