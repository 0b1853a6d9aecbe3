package appointment

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-api/internal/handler"
	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/internal/model"
	"github.com/jwalitptl/booking-api/internal/service/ledger"
	"github.com/jwalitptl/booking-api/internal/service/scheduler"
	apperrors "github.com/jwalitptl/booking-api/pkg/errors"
)

const maxListLimit = 500

type Handler struct {
	scheduler *scheduler.Scheduler
	ledger    *ledger.Service
}

func NewHandler(scheduler *scheduler.Scheduler, ledger *ledger.Service) *Handler {
	return &Handler{scheduler: scheduler, ledger: ledger}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.PATCH("/:id/status", h.UpdateStatus)
	}
}

// CreateAppointment books a single appointment, or a whole series when
// is_recurring is set.
func (h *Handler) CreateAppointment(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if !handler.BindJSON(c, &req) {
		return
	}
	userID := middleware.UserID(c)

	if req.IsRecurring {
		if req.RecurrencePattern == nil {
			handler.Fail(c, apperrors.NewInvalidRecurrencePattern("recurrence_pattern is required", nil))
			return
		}
		result, err := h.scheduler.BookRecurring(c.Request.Context(), scheduler.RecurringBookingRequest{
			UserID:    userID,
			ServiceID: req.ServiceID,
			StaffID:   req.StaffID,
			Start:     req.StartTime,
			Notes:     req.Notes,
			Pattern:   *req.RecurrencePattern,
		})
		if err != nil {
			handler.Fail(c, err)
			return
		}
		handler.Created(c, result)
		return
	}

	apt, err := h.scheduler.Book(c.Request.Context(), scheduler.BookingRequest{
		UserID:    userID,
		ServiceID: req.ServiceID,
		StaffID:   req.StaffID,
		Start:     req.StartTime,
		Notes:     req.Notes,
	})
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.Created(c, apt)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	apt, err := h.ledger.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.Fail(c, err)
		return
	}
	if !canView(c, apt) {
		handler.Fail(c, apperrors.Forbidden("appointment belongs to another user"))
		return
	}
	handler.OK(c, apt)
}

// ListAppointments lists the caller's appointments. Staff see the
// appointments assigned to them; admins may filter by any user or staff.
func (h *Handler) ListAppointments(c *gin.Context) {
	filters := &model.AppointmentFilters{
		StaffID: c.Query("staff_id"),
		Status:  model.AppointmentStatus(c.Query("status")),
	}

	switch {
	case handler.IsAdmin(c):
		filters.UserID = c.Query("user_id")
	case middleware.Role(c) == middleware.RoleStaff:
		filters.StaffID = middleware.UserID(c)
	default:
		filters.UserID = middleware.UserID(c)
	}

	if filters.Status != "" && !filters.Status.Valid() {
		handler.Fail(c, apperrors.NewBadRequest("unknown status "+string(filters.Status), nil))
		return
	}

	var err error
	if filters.From, err = parseInstant(c.Query("from")); err != nil {
		handler.Fail(c, err)
		return
	}
	if filters.To, err = parseInstant(c.Query("to")); err != nil {
		handler.Fail(c, err)
		return
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 || limit > maxListLimit {
			handler.Fail(c, apperrors.NewBadRequest("limit must be between 1 and 500", err))
			return
		}
		filters.Limit = limit
	}

	appointments, err := h.ledger.List(c.Request.Context(), filters)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	if appointments == nil {
		appointments = []*model.Appointment{}
	}
	handler.OK(c, appointments)
}

// UpdateStatus moves an appointment through its lifecycle. Customers may
// only cancel their own appointments.
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req model.UpdateStatusRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	apt, err := h.ledger.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.Fail(c, err)
		return
	}
	if !canView(c, apt) {
		handler.Fail(c, apperrors.Forbidden("appointment belongs to another user"))
		return
	}
	if !handler.IsAdmin(c) && apt.StaffID != middleware.UserID(c) && req.Status != model.AppointmentStatusCancelled {
		handler.Fail(c, apperrors.Forbidden("customers can only cancel appointments"))
		return
	}

	updated, err := h.scheduler.UpdateStatus(c.Request.Context(), apt.ID, req.Status)
	if err != nil {
		handler.Fail(c, err)
		return
	}
	handler.OK(c, updated)
}

func canView(c *gin.Context, apt *model.Appointment) bool {
	caller := middleware.UserID(c)
	return handler.IsAdmin(c) || apt.UserID == caller || apt.StaffID == caller
}

func parseInstant(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperrors.NewBadRequest("invalid instant "+strconv.Quote(value)+", expected RFC 3339", err)
	}
	return t, nil
}
