package httputil

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Code    int         `json:"code,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Status: StatusSuccess,
		Data:   data,
	})
}

// RespondWithError renders err. AppErrors keep their message and status;
// anything else is reported as an internal error without details.
func RespondWithError(c *gin.Context, err error, traceID string) {
	status, message, code := Describe(err)
	c.AbortWithStatusJSON(status, Response{
		Status:  StatusError,
		Message: message,
		Code:    code,
		TraceID: traceID,
	})
}

// RespondWithValidation sends a 400 with per-field details.
func RespondWithValidation(c *gin.Context, details interface{}, traceID string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, Response{
		Status:  StatusError,
		Message: "validation failed",
		Code:    int(apperrors.ErrBadRequest),
		Errors:  details,
		TraceID: traceID,
	})
}

// Describe maps err to an HTTP status, a client-safe message and an error code.
func Describe(err error) (status int, message string, code int) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode(), appErr.Message, int(appErr.Code)
	}
	return http.StatusInternalServerError, "internal server error", int(apperrors.ErrInternal)
}
