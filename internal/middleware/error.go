package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/booking-api/pkg/httputil"
)

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		traceID := c.GetString(ContextRequestID)
		lastErr := c.Errors.Last().Err

		var verrs validator.ValidationErrors
		if errors.As(lastErr, &verrs) {
			httputil.RespondWithValidation(c, validationDetails(verrs), traceID)
			return
		}
		if c.Errors.Last().IsType(gin.ErrorTypeBind) {
			httputil.RespondWithValidation(c, []ValidationError{{Message: lastErr.Error()}}, traceID)
			return
		}

		status, _, _ := httputil.Describe(lastErr)
		if status >= http.StatusInternalServerError {
			log.Error().
				Err(lastErr).
				Str("request_id", traceID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("Request error")
		}
		httputil.RespondWithError(c, lastErr, traceID)
	}
}
