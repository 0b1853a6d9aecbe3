package waitlist

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-api/internal/handler"
	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/service/waitlist"
)

type Handler struct {
	service *waitlist.Service
}

func NewHandler(service *waitlist.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	wl := r.Group("/waitlist")
	{
		wl.POST("", h.Join)
		wl.GET("", h.List)
		wl.DELETE("/:id", h.Cancel)
	}
}

func (h *Handler) Join(c *gin.Context) {
	var req model.JoinWaitlistRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	entry, err := h.service.Join(c.Request.Context(), middleware.UserID(c), &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.Created(c, entry)
}

func (h *Handler) List(c *gin.Context) {
	entries, err := h.service.ListForUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		handler.Fail(c, err)
		return
	}
	if entries == nil {
		entries = []*model.WaitlistEntry{}
	}
	handler.OK(c, entries)
}

func (h *Handler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), middleware.UserID(c), c.Param("id")); err != nil {
		handler.Fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
