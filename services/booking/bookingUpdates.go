package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	schedulerRepo "medibook/database/repository/scheduler"
	"medibook/models"
)

// CancelAppointment frees the appointment's slots (clipped to the window's current
// hours) and deletes the appointment record. The returned copy has status Cancelled.
func (se *DefaultSchedulingEngine) CancelAppointment(ctx context.Context, appointmentID string) (appt *models.Appointment, err error) {
	defer se.track("cancel_appointment", time.Now(), &err)

	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if appointmentID == "" {
		return nil, newError(CodeInvalidArgument, "appointmentId is required")
	}

	var cancelled *models.Appointment
	var restored *models.AvailabilityWindow
	txErr := se.Repo.RunTransaction(ctx, func(ctx context.Context, tx schedulerRepo.Txn) error {
		restored = nil
		a, err := tx.GetAppointment(ctx, appointmentID)
		if err != nil {
			return notFoundAs(err, "appointment %s not found", appointmentID)
		}
		if !a.IsParticipant(userID) {
			return newError(CodePermissionDenied, "only the doctor or patient may cancel appointment %s", appointmentID)
		}
		window, err := tx.GetAvailability(ctx, a.DoctorID, a.Date)
		if err != nil {
			return notFoundAs(err, "availability for %s on %s not found", a.DoctorID, a.Date)
		}

		if a.Status.IsActive() {
			window.AvailableSlots = restoreInterval(*window, a.Time, a.End())
			tx.PutAvailability(window)
			restored = window
		}
		tx.DeleteAppointment(a)

		result := *a
		result.Status = models.StatusCancelled
		result.UpdatedAt = se.now()
		cancelled = &result
		return nil
	})
	if txErr != nil {
		se.logger().Warn("CancelAppointment failed", zap.String("appointmentId", appointmentID), zap.Error(txErr))
		return nil, translate(txErr)
	}

	se.refresh(ctx, restored)
	se.logger().Info("Appointment cancelled",
		zap.String("appointmentId", appointmentID), zap.String("cancelledBy", userID))
	return cancelled, nil
}

// RescheduleAppointment moves an active appointment in one transaction: the old interval
// is restored (clipped to the old window's hours) and the new one must be fully free.
func (se *DefaultSchedulingEngine) RescheduleAppointment(
	ctx context.Context,
	appointmentID, newDate string,
	newTime models.TimePoint,
) (appt *models.Appointment, err error) {
	defer se.track("reschedule_appointment", time.Now(), &err)

	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if appointmentID == "" {
		return nil, newError(CodeInvalidArgument, "appointmentId is required")
	}
	if err := models.ValidateDate(newDate); err != nil {
		return nil, &SchedulingError{Code: CodeInvalidArgument, Message: err.Error()}
	}
	if !onGrid(newTime) {
		return nil, newError(CodeInvalidArgument, "time %s is not on a %d-minute boundary", newTime, models.SlotQuantumMinutes)
	}

	var moved *models.Appointment
	var written []*models.AvailabilityWindow
	txErr := se.Repo.RunTransaction(ctx, func(ctx context.Context, tx schedulerRepo.Txn) error {
		written = nil
		a, err := tx.GetAppointment(ctx, appointmentID)
		if err != nil {
			return notFoundAs(err, "appointment %s not found", appointmentID)
		}
		if !a.IsParticipant(userID) {
			return newError(CodePermissionDenied, "only the doctor or patient may reschedule appointment %s", appointmentID)
		}
		if !a.Status.IsActive() {
			return newError(CodeInvalidState, "appointment %s is %s", appointmentID, a.Status)
		}
		if a.Date == newDate && a.Time == newTime {
			moved = a
			return nil
		}

		oldWindow, err := tx.GetAvailability(ctx, a.DoctorID, a.Date)
		if err != nil {
			return notFoundAs(err, "availability for %s on %s not found", a.DoctorID, a.Date)
		}
		newWindow := oldWindow
		sameDate := newDate == a.Date
		if !sameDate {
			newWindow, err = tx.GetAvailability(ctx, a.DoctorID, newDate)
			if err != nil {
				return notFoundAs(err, "doctor %s has no availability on %s", a.DoctorID, newDate)
			}
		}

		oldWindow.AvailableSlots = restoreInterval(*oldWindow, a.Time, a.End())
		if !allAvailable(*newWindow, IntervalPoints(newTime, a.DurationMinutes)) {
			return newError(CodeInvalidState, "%s at %s is not available", newDate, newTime)
		}
		newEnd := newTime.Add(a.DurationMinutes)
		newWindow.AvailableSlots = removeInterval(newWindow.AvailableSlots, newTime, newEnd)

		tx.PutAvailability(oldWindow)
		written = append(written, oldWindow)
		if !sameDate {
			tx.PutAvailability(newWindow)
			written = append(written, newWindow)
		}

		a.Date = newDate
		a.Time = newTime
		a.UpdatedAt = se.now()
		tx.PutAppointment(a)
		moved = a
		return nil
	})
	if txErr != nil {
		se.logger().Warn("RescheduleAppointment failed",
			zap.String("appointmentId", appointmentID), zap.String("newDate", newDate),
			zap.Stringer("newTime", newTime), zap.Error(txErr))
		return nil, translate(txErr)
	}

	se.refresh(ctx, written...)
	se.logger().Info("Appointment rescheduled",
		zap.String("appointmentId", appointmentID), zap.String("date", moved.Date), zap.Stringer("time", moved.Time))
	return moved, nil
}
