package routes

import (
	"github.com/gin-gonic/gin"

	"medibook/handlers"
	"medibook/middleware"
)

// RegisterAvailabilityRoutes registers doctor availability and earnings endpoints.
func RegisterAvailabilityRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	doctors := r.Group("/api/doctors")
	{
		doctors.Use(middleware.AuthMiddleware(hb.Identity))
		doctors.PUT("/me/availability", hb.UpdateAvailabilityHandler)
		doctors.GET("/me/earnings", hb.EarningsHandler)
		doctors.GET("/:doctorId/availability/:date", hb.GetAvailabilityHandler)
		doctors.GET("/:doctorId/availability/:date/stream", hb.StreamAvailabilityHandler)
	}
}

// RegisterBookingRoutes registers all endpoints for the appointment lifecycle.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/api/appointment-types", hb.AppointmentTypesHandler)

	appointments := r.Group("/api/appointments")
	{
		appointments.Use(middleware.AuthMiddleware(hb.Identity))
		appointments.POST("", hb.BookAppointmentHandler)
		appointments.GET("", hb.ListAppointmentsHandler)
		appointments.GET("/:id", hb.GetAppointmentHandler)
		appointments.POST("/:id/confirm", hb.ConfirmAppointmentHandler)
		appointments.POST("/:id/cancel", hb.CancelAppointmentHandler)
		appointments.POST("/:id/reschedule", hb.RescheduleAppointmentHandler)
	}
}
