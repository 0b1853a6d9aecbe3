// Package handler holds the helpers shared by the HTTP handlers. Handlers
// report failures with c.Error and the error middleware renders them.
package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/model"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
	"github.com/jwalitptl/booking-api/pkg/httputil"
)

func OK(c *gin.Context, data interface{}) {
	httputil.RespondWithSuccess(c, http.StatusOK, data)
}

func Created(c *gin.Context, data interface{}) {
	httputil.RespondWithSuccess(c, http.StatusCreated, data)
}

func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
}

// BindJSON binds the body into req and records a bind error on failure.
func BindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		_ = c.Error(err).SetType(gin.ErrorTypeBind)
		return false
	}
	return true
}

// DateParam parses a YYYY-MM-DD path parameter in loc.
func DateParam(c *gin.Context, name string, loc *time.Location) (time.Time, bool) {
	value := c.Param(name)
	d, err := model.ParseDate(value, loc)
	if err != nil {
		Fail(c, apperrors.NewBadRequest(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", value), err))
		return time.Time{}, false
	}
	return d, true
}

// IsAdmin reports whether the caller carries the admin role.
func IsAdmin(c *gin.Context) bool {
	return middleware.Role(c) == middleware.RoleAdmin
}

// SelfOrAdmin allows staff members to manage their own resources.
func SelfOrAdmin(c *gin.Context, ownerID string) error {
	if IsAdmin(c) || middleware.UserID(c) == ownerID {
		return nil
	}
	return apperrors.Forbidden("permission denied")
}
