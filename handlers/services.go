package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetAppointmentTypes lists the bookable appointment types with duration and price.
func (h *BookingHandler) GetAppointmentTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"appointmentTypes": h.Service.AppointmentTypes()})
}
