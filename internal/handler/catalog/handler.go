package catalog

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-api/internal/handler"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/service/catalog"
	"github.com/jwalitptl/booking-api/internal/service/scheduler"
)

type Handler struct {
	service      *catalog.Service
	scheduler    *scheduler.Scheduler
	requireAdmin gin.HandlerFunc
}

// NewHandler wires the catalog routes. Writes go through requireAdmin.
func NewHandler(service *catalog.Service, scheduler *scheduler.Scheduler, requireAdmin gin.HandlerFunc) *Handler {
	return &Handler{service: service, scheduler: scheduler, requireAdmin: requireAdmin}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	services := r.Group("/services")
	{
		services.GET("", h.ListServices)
		services.GET("/:id", h.GetService)
		services.GET("/:id/availability/:date", h.GetAvailability)
		services.POST("", h.requireAdmin, h.CreateService)
		services.PUT("/:id", h.requireAdmin, h.UpdateService)
	}
}

func (h *Handler) CreateService(c *gin.Context) {
	var req model.CreateServiceRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	svc, err := h.service.CreateService(c.Request.Context(), &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.Created(c, svc)
}

func (h *Handler) GetService(c *gin.Context) {
	svc, err := h.service.GetService(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, svc)
}

func (h *Handler) UpdateService(c *gin.Context) {
	var req model.UpdateServiceRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	svc, err := h.service.UpdateService(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, svc)
}

func (h *Handler) ListServices(c *gin.Context) {
	filters := &model.ServiceFilters{
		ActiveOnly: c.Query("active") == "true",
		StaffID:    c.Query("staff_id"),
	}

	services, err := h.service.ListServices(c.Request.Context(), filters)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, services)
}

// GetAvailability returns open slots for one staff member when staff_id is
// given, otherwise for every staff member assigned to the service.
func (h *Handler) GetAvailability(c *gin.Context) {
	date, ok := handler.DateParam(c, "date", h.scheduler.Location())
	if !ok {
		return
	}
	serviceID := c.Param("id")

	if staffID := c.Query("staff_id"); staffID != "" {
		slots, err := h.scheduler.FindOpenSlots(c.Request.Context(), serviceID, staffID, date)
		if err != nil {
			handler.Fail(c, err)
			return
		}
		handler.OK(c, gin.H{
			"service_id": serviceID,
			"date":       date.Format(model.DateLayout),
			"staff_id":   staffID,
			"slots":      slots,
		})
		return
	}

	staff, err := h.scheduler.FindServiceAvailability(c.Request.Context(), serviceID, date)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, gin.H{
		"service_id": serviceID,
		"date":       date.Format(model.DateLayout),
		"staff":      staff,
	})
}
