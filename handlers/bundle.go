// File: medibook/handlers/bundle.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"medibook/services/identity"
	"medibook/utils"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	Identity identity.Provider
	Health   *utils.HealthMonitor

	// Availability endpoints
	UpdateAvailabilityHandler gin.HandlerFunc
	GetAvailabilityHandler    gin.HandlerFunc
	StreamAvailabilityHandler gin.HandlerFunc
	EarningsHandler           gin.HandlerFunc

	// Appointment endpoints
	BookAppointmentHandler       gin.HandlerFunc
	GetAppointmentHandler        gin.HandlerFunc
	ListAppointmentsHandler      gin.HandlerFunc
	ConfirmAppointmentHandler    gin.HandlerFunc
	CancelAppointmentHandler     gin.HandlerFunc
	RescheduleAppointmentHandler gin.HandlerFunc
	AppointmentTypesHandler      gin.HandlerFunc
}

// NewHandlerBundle wires every handler of h into a bundle.
func NewHandlerBundle(h *BookingHandler, provider identity.Provider, health *utils.HealthMonitor) *HandlerBundle {
	return &HandlerBundle{
		Identity: provider,
		Health:   health,

		UpdateAvailabilityHandler: h.UpdateAvailability,
		GetAvailabilityHandler:    h.GetAvailability,
		StreamAvailabilityHandler: h.StreamAvailability,
		EarningsHandler:           h.Earnings,

		BookAppointmentHandler:       h.BookAppointment,
		GetAppointmentHandler:        h.GetAppointment,
		ListAppointmentsHandler:      h.ListAppointments,
		ConfirmAppointmentHandler:    h.ConfirmAppointment,
		CancelAppointmentHandler:     h.CancelAppointment,
		RescheduleAppointmentHandler: h.RescheduleAppointment,
		AppointmentTypesHandler:      h.GetAppointmentTypes,
	}
}
