package booking

import (
	"context"
	"time"

	"go.uber.org/zap"

	schedulerRepo "medibook/database/repository/scheduler"
	"medibook/models"
)

// ConfirmAppointment moves a Pending appointment to Confirmed. Only the doctor may
// confirm; confirming twice is a no-op.
func (se *DefaultSchedulingEngine) ConfirmAppointment(ctx context.Context, appointmentID string) (appt *models.Appointment, err error) {
	defer se.track("confirm_appointment", time.Now(), &err)

	doctorID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}

	var confirmed *models.Appointment
	txErr := se.Repo.RunTransaction(ctx, func(ctx context.Context, tx schedulerRepo.Txn) error {
		a, err := tx.GetAppointment(ctx, appointmentID)
		if err != nil {
			return notFoundAs(err, "appointment %s not found", appointmentID)
		}
		if a.DoctorID != doctorID {
			return newError(CodePermissionDenied, "only the doctor may confirm appointment %s", appointmentID)
		}
		switch a.Status {
		case models.StatusConfirmed:
		case models.StatusPending:
			a.Status = models.StatusConfirmed
			a.UpdatedAt = se.now()
			tx.PutAppointment(a)
		default:
			return newError(CodeInvalidState, "appointment %s is %s", appointmentID, a.Status)
		}
		confirmed = a
		return nil
	})
	if txErr != nil {
		return nil, translate(txErr)
	}

	se.logger().Info("Appointment confirmed", zap.String("appointmentId", appointmentID))
	return confirmed, nil
}
