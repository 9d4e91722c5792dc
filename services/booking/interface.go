package booking

import (
	"context"

	schedulerRepo "medibook/database/repository/scheduler"
	"medibook/models"
)

// SchedulingService is the availability and booking API. The acting user is read from
// ctx (see identity.WithUserID).
type SchedulingService interface {
	// UpdateAvailabilities sets the caller's working hours on each date, preserving booked slots.
	UpdateAvailabilities(ctx context.Context, dates []string, start, end models.TimePoint) ([]models.AvailabilityWindow, error)
	GetDoctorAvailability(ctx context.Context, doctorID, date string, bucketMinutes int) (*models.AvailabilityResponse, error)
	WatchDoctorAvailability(ctx context.Context, doctorID, date string) (schedulerRepo.Subscription, error)

	BookAppointment(ctx context.Context, req models.BookingRequest) (*models.Appointment, error)
	CancelAppointment(ctx context.Context, appointmentID string) (*models.Appointment, error)
	RescheduleAppointment(ctx context.Context, appointmentID, newDate string, newTime models.TimePoint) (*models.Appointment, error)
	ConfirmAppointment(ctx context.Context, appointmentID string) (*models.Appointment, error)

	GetAppointment(ctx context.Context, appointmentID string) (*models.Appointment, error)
	ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
	Earnings(ctx context.Context, doctorID, from, to string) (*models.EarningsSummary, error)
	AppointmentTypes() []models.AppointmentType
}
