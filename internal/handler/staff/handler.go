package staff

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-api/internal/handler"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/service/availability"
)

type Handler struct {
	availability *availability.Service
}

func NewHandler(availability *availability.Service) *Handler {
	return &Handler{availability: availability}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	staff := r.Group("/staff/:id")
	{
		staff.GET("/availability", h.GetAvailability)
		staff.PUT("/availability", h.SetAvailability)
		staff.GET("/shifts/:date", h.GetShifts)
		staff.POST("/time-off", h.AddTimeOff)
	}
}

func (h *Handler) GetAvailability(c *gin.Context) {
	av, err := h.availability.GetAvailability(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, av)
}

// SetAvailability replaces the weekly template and overrides. Staff may
// only edit their own schedule.
func (h *Handler) SetAvailability(c *gin.Context) {
	staffID := c.Param("id")
	if err := handler.SelfOrAdmin(c, staffID); err != nil {
		handler.Fail(c, err)
		return
	}

	var req model.SetAvailabilityRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	av, err := h.availability.SetAvailability(c.Request.Context(), staffID, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, av)
}

func (h *Handler) GetShifts(c *gin.Context) {
	date, ok := handler.DateParam(c, "date", h.availability.Location())
	if !ok {
		return
	}

	shifts, err := h.availability.GetShiftsFor(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	if shifts == nil {
		shifts = []model.TimeSlot{}
	}
	handler.OK(c, gin.H{
		"staff_id": c.Param("id"),
		"date":     date.Format(model.DateLayout),
		"shifts":   shifts,
	})
}

func (h *Handler) AddTimeOff(c *gin.Context) {
	staffID := c.Param("id")
	if err := handler.SelfOrAdmin(c, staffID); err != nil {
		handler.Fail(c, err)
		return
	}

	var req model.TimeOffRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	av, err := h.availability.AddTimeOff(c.Request.Context(), staffID, &req)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, av)
}
