package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medibook/models"
	"medibook/services/booking"
	"medibook/utils"
)

// UpdateAvailability handles PUT /api/doctors/me/availability.
func (h *BookingHandler) UpdateAvailability(c *gin.Context) {
	var req models.UpdateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	windows, err := h.Service.UpdateAvailabilities(c.Request.Context(), req.Dates, *req.StartTime, *req.EndTime)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"availability": windows})
}

// GetAvailability handles GET /api/doctors/:doctorId/availability/:date?bucket=30.
func (h *BookingHandler) GetAvailability(c *gin.Context) {
	bucket := 0
	if raw := c.Query("bucket"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			utils.JSONError(c, getLogger(c), http.StatusBadRequest, string(booking.CodeInvalidArgument), "bucket must be a number of minutes", err.Error())
			return
		}
		bucket = n
	}
	resp, err := h.Service.GetDoctorAvailability(c.Request.Context(), c.Param("doctorId"), c.Param("date"), bucket)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// StreamAvailability handles GET /api/doctors/:doctorId/availability/:date/stream as
// server-sent events. The subscription is closed when the client disconnects.
func (h *BookingHandler) StreamAvailability(c *gin.Context) {
	doctorID, date := c.Param("doctorId"), c.Param("date")
	sub, err := h.Service.WatchDoctorAvailability(c.Request.Context(), doctorID, date)
	if err != nil {
		respondError(c, err)
		return
	}
	defer func() {
		if err := sub.Close(); err != nil {
			getLogger(c).Warn("availability stream ended with error",
				zap.String("doctorId", doctorID), zap.String("date", date), zap.Error(err))
		}
	}()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case window, ok := <-sub.Updates():
			if !ok {
				return false
			}
			c.SSEvent("availability", window)
			return true
		}
	})
}

// Earnings handles GET /api/doctors/me/earnings?from&to.
func (h *BookingHandler) Earnings(c *gin.Context) {
	summary, err := h.Service.Earnings(c.Request.Context(), c.GetString(utils.UserIDKey), c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
