package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	schedulerRepo "medibook/database/repository/scheduler"
	"medibook/models"
)

// BookAppointment reserves [time, time+duration) for the calling patient. All points of
// the interval must be free; they are removed from the window in the same transaction
// that creates the appointment.
func (se *DefaultSchedulingEngine) BookAppointment(ctx context.Context, req models.BookingRequest) (appt *models.Appointment, err error) {
	defer se.track("book_appointment", time.Now(), &err)

	patientID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	apptType, err := se.validateBooking(req)
	if err != nil {
		return nil, err
	}

	appointmentID := strings.TrimSpace(req.AppointmentID)
	idempotent := appointmentID != ""
	if !idempotent {
		appointmentID = uuid.New().String()
	}
	at := *req.Time
	end := at.Add(apptType.DurationMinutes)

	var booked *models.Appointment
	var written *models.AvailabilityWindow
	txErr := se.Repo.RunTransaction(ctx, func(ctx context.Context, tx schedulerRepo.Txn) error {
		booked, written = nil, nil
		if idempotent {
			existing, err := tx.GetAppointment(ctx, appointmentID)
			switch {
			case err == nil:
				if !sameBooking(*existing, req, patientID) {
					return newError(CodeInvalidState, "appointment id %s is already used by a different booking", appointmentID)
				}
				booked = existing
				return nil
			case !errors.Is(err, schedulerRepo.ErrNotFound):
				return err
			}
		}

		window, err := tx.GetAvailability(ctx, req.DoctorID, req.Date)
		if err != nil {
			return notFoundAs(err, "doctor %s has no availability on %s", req.DoctorID, req.Date)
		}
		if !allAvailable(*window, IntervalPoints(at, apptType.DurationMinutes)) {
			return newError(CodeInvalidState, "%s at %s is no longer available", req.Date, at)
		}

		window.AvailableSlots = removeInterval(window.AvailableSlots, at, end)
		now := se.now()
		booked = &models.Appointment{
			ID:              appointmentID,
			DoctorID:        req.DoctorID,
			PatientID:       patientID,
			Date:            req.Date,
			Time:            at,
			DurationMinutes: apptType.DurationMinutes,
			Status:          models.StatusPending,
			Type:            apptType.Code,
			Price:           apptType.Price,
			Comments:        req.Comments,
			Address:         req.Address,
			DoctorName:      req.DoctorName,
			PatientName:     req.PatientName,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		tx.PutAvailability(window)
		tx.PutAppointment(booked)
		written = window
		return nil
	})
	if txErr != nil {
		se.logger().Warn("BookAppointment failed",
			zap.String("doctorId", req.DoctorID), zap.String("date", req.Date),
			zap.Stringer("time", at), zap.Error(txErr))
		return nil, translate(txErr)
	}

	se.refresh(ctx, written)
	se.logger().Info("Appointment booked",
		zap.String("appointmentId", booked.ID), zap.String("doctorId", booked.DoctorID),
		zap.String("date", booked.Date), zap.Stringer("time", booked.Time))
	return booked, nil
}

func (se *DefaultSchedulingEngine) validateBooking(req models.BookingRequest) (models.AppointmentType, error) {
	if strings.TrimSpace(req.DoctorID) == "" {
		return models.AppointmentType{}, newError(CodeInvalidArgument, "doctorId is required")
	}
	if err := models.ValidateDate(req.Date); err != nil {
		return models.AppointmentType{}, &SchedulingError{Code: CodeInvalidArgument, Message: err.Error()}
	}
	if req.Time == nil {
		return models.AppointmentType{}, newError(CodeInvalidArgument, "time is required")
	}
	if !onGrid(*req.Time) {
		return models.AppointmentType{}, newError(CodeInvalidArgument, "time %s is not on a %d-minute boundary", *req.Time, models.SlotQuantumMinutes)
	}
	apptType, ok := se.Catalog.Lookup(req.Type)
	if !ok {
		return models.AppointmentType{}, newError(CodeInvalidArgument, "unknown appointment type %q", req.Type)
	}
	if apptType.DurationMinutes <= 0 || apptType.DurationMinutes%models.SlotQuantumMinutes != 0 {
		return models.AppointmentType{}, newError(CodeInternal, "appointment type %q has an invalid duration", req.Type)
	}
	return apptType, nil
}

// sameBooking decides whether a replayed request with an existing id is the same booking.
func sameBooking(existing models.Appointment, req models.BookingRequest, patientID string) bool {
	return existing.PatientID == patientID &&
		existing.DoctorID == req.DoctorID &&
		existing.Date == req.Date &&
		existing.Time == *req.Time &&
		existing.Type == req.Type
}
