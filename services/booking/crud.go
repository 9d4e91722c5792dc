package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	schedulerRepo "medibook/database/repository/scheduler"
	"medibook/models"
)

// GetDoctorAvailability serves a window from the cache when possible. bucketMinutes > 0
// adds display buckets; it must be a multiple of the slot quantum.
func (se *DefaultSchedulingEngine) GetDoctorAvailability(
	ctx context.Context,
	doctorID, date string,
	bucketMinutes int,
) (resp *models.AvailabilityResponse, err error) {
	defer se.track("get_availability", time.Now(), &err)

	if _, err := callerID(ctx); err != nil {
		return nil, err
	}
	if err := validateWindowKey(doctorID, date); err != nil {
		return nil, err
	}
	if bucketMinutes < 0 || bucketMinutes%models.SlotQuantumMinutes != 0 {
		return nil, newError(CodeInvalidArgument, "bucket must be a multiple of %d minutes", models.SlotQuantumMinutes)
	}

	window, err := se.Cache.Get(ctx, doctorID, date)
	if err != nil {
		se.logger().Warn("availability cache read failed", zap.String("doctorId", doctorID), zap.Error(err))
		window = nil
	}
	if window == nil {
		window, err = se.Repo.GetAvailability(ctx, doctorID, date)
		if err != nil {
			return nil, translate(notFoundAs(err, "doctor %s has no availability on %s", doctorID, date))
		}
		if _, err := se.Cache.Set(ctx, *window); err != nil {
			se.logger().Warn("availability cache write failed", zap.String("doctorId", doctorID), zap.Error(err))
		}
	}

	resp = &models.AvailabilityResponse{AvailabilityWindow: *window}
	if bucketMinutes > 0 {
		resp.DisplaySlots = BucketSlots(*window, bucketMinutes)
	}
	return resp, nil
}

// WatchDoctorAvailability streams committed versions of a window until the caller
// closes the subscription or ctx ends.
func (se *DefaultSchedulingEngine) WatchDoctorAvailability(ctx context.Context, doctorID, date string) (sub schedulerRepo.Subscription, err error) {
	defer se.track("watch_availability", time.Now(), &err)

	if _, err := callerID(ctx); err != nil {
		return nil, err
	}
	if err := validateWindowKey(doctorID, date); err != nil {
		return nil, err
	}
	sub, err = se.Repo.WatchAvailability(ctx, doctorID, date)
	if err != nil {
		return nil, translate(notFoundAs(err, "doctor %s has no availability on %s", doctorID, date))
	}
	return sub, nil
}

// GetAppointment is limited to the appointment's doctor and patient.
func (se *DefaultSchedulingEngine) GetAppointment(ctx context.Context, appointmentID string) (appt *models.Appointment, err error) {
	defer se.track("get_appointment", time.Now(), &err)

	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	appt, err = se.Repo.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, translate(notFoundAs(err, "appointment %s not found", appointmentID))
	}
	if !appt.IsParticipant(userID) {
		return nil, newError(CodePermissionDenied, "appointment %s belongs to other users", appointmentID)
	}
	return appt, nil
}

// ListAppointments lists the caller's appointments as doctor or as patient.
func (se *DefaultSchedulingEngine) ListAppointments(ctx context.Context, filter models.AppointmentFilter) (appts []models.Appointment, err error) {
	defer se.track("list_appointments", time.Now(), &err)

	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	switch {
	case filter.DoctorID == "" && filter.PatientID == "":
		return nil, newError(CodeInvalidArgument, "a doctorId or patientId filter is required")
	case filter.DoctorID != "" && filter.DoctorID != userID,
		filter.PatientID != "" && filter.PatientID != userID:
		return nil, newError(CodePermissionDenied, "appointments may only be listed for yourself")
	}
	if err := validateRange(filter.From, filter.To); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, newError(CodeInvalidArgument, "unknown status %q", filter.Status)
	}

	appts, err = se.Repo.ListAppointments(ctx, filter)
	if err != nil {
		return nil, translate(err)
	}
	return appts, nil
}

func (se *DefaultSchedulingEngine) AppointmentTypes() []models.AppointmentType {
	return se.Catalog.List()
}

func validateWindowKey(doctorID, date string) error {
	if doctorID == "" {
		return newError(CodeInvalidArgument, "doctorId is required")
	}
	if err := models.ValidateDate(date); err != nil {
		return &SchedulingError{Code: CodeInvalidArgument, Message: err.Error()}
	}
	return nil
}

// validateRange checks optional inclusive date bounds.
func validateRange(from, to string) error {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if err := models.ValidateDate(d); err != nil {
			return &SchedulingError{Code: CodeInvalidArgument, Message: err.Error()}
		}
	}
	if from != "" && to != "" && from > to {
		return newError(CodeInvalidArgument, "from %s is after to %s", from, to)
	}
	return nil
}
