package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medibook/models"
	"medibook/services/booking"
	"medibook/utils"
)

type BookingHandler struct {
	Service booking.SchedulingService
}

func NewBookingHandler(service booking.SchedulingService) *BookingHandler {
	return &BookingHandler{Service: service}
}

// statusFor maps scheduling error codes to HTTP statuses.
func statusFor(code booking.ErrorCode) int {
	switch code {
	case booking.CodeNotFound:
		return http.StatusNotFound
	case booking.CodeUnauthenticated:
		return http.StatusUnauthorized
	case booking.CodePermissionDenied:
		return http.StatusForbidden
	case booking.CodeInvalidState, booking.CodeTransactionConflict:
		return http.StatusConflict
	case booking.CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := booking.CodeOf(err)
	message := err.Error()
	var details string
	var se *booking.SchedulingError
	if errors.As(err, &se) {
		message = se.Message
		if se.Err != nil && code != booking.CodeInternal {
			details = se.Err.Error()
		}
	}
	if code == booking.CodeInternal {
		getLogger(c).Error("scheduling request failed", zap.Error(err))
		message = "Internal Server Error"
	}
	utils.JSONError(c, getLogger(c), statusFor(code), string(code), message, details)
}

func badRequest(c *gin.Context, err error) {
	utils.JSONError(c, getLogger(c), http.StatusBadRequest, string(booking.CodeInvalidArgument), "Invalid request payload", err.Error())
}

// BookAppointment handles POST /api/appointments.
func (h *BookingHandler) BookAppointment(c *gin.Context) {
	var req models.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	appt, err := h.Service.BookAppointment(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appt)
}

// GetAppointment handles GET /api/appointments/:id.
func (h *BookingHandler) GetAppointment(c *gin.Context) {
	appt, err := h.Service.GetAppointment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// ListAppointments handles GET /api/appointments?role=doctor|patient&from&to&status.
func (h *BookingHandler) ListAppointments(c *gin.Context) {
	userID := c.GetString(utils.UserIDKey)
	filter := models.AppointmentFilter{
		From:   c.Query("from"),
		To:     c.Query("to"),
		Status: models.AppointmentStatus(c.Query("status")),
	}
	switch c.DefaultQuery("role", "patient") {
	case "doctor":
		filter.DoctorID = userID
	case "patient":
		filter.PatientID = userID
	default:
		utils.JSONError(c, getLogger(c), http.StatusBadRequest, string(booking.CodeInvalidArgument), "role must be doctor or patient", "")
		return
	}

	appts, err := h.Service.ListAppointments(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": appts})
}

// ConfirmAppointment handles POST /api/appointments/:id/confirm.
func (h *BookingHandler) ConfirmAppointment(c *gin.Context) {
	appt, err := h.Service.ConfirmAppointment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// CancelAppointment handles POST /api/appointments/:id/cancel.
func (h *BookingHandler) CancelAppointment(c *gin.Context) {
	appt, err := h.Service.CancelAppointment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// RescheduleAppointment handles POST /api/appointments/:id/reschedule.
func (h *BookingHandler) RescheduleAppointment(c *gin.Context) {
	var req models.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	appt, err := h.Service.RescheduleAppointment(c.Request.Context(), c.Param("id"), req.Date, *req.Time)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}
