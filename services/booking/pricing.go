package booking

import (
	"context"
	"time"

	"medibook/models"
)

// SummarizeEarnings sums the prices of confirmed appointments.
func SummarizeEarnings(doctorID, from, to string, appts []models.Appointment) *models.EarningsSummary {
	summary := &models.EarningsSummary{
		DoctorID: doctorID,
		From:     from,
		To:       to,
		ByDate:   map[string]float64{},
		ByType:   map[string]float64{},
	}
	for _, a := range appts {
		if a.Status != models.StatusConfirmed {
			continue
		}
		summary.Total += a.Price
		summary.Appointments++
		summary.ByDate[a.Date] += a.Price
		summary.ByType[a.Type] += a.Price
	}
	return summary
}

// Earnings is read-only and restricted to the doctor themselves.
func (se *DefaultSchedulingEngine) Earnings(ctx context.Context, doctorID, from, to string) (summary *models.EarningsSummary, err error) {
	defer se.track("earnings", time.Now(), &err)

	userID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if doctorID == "" {
		doctorID = userID
	}
	if doctorID != userID {
		return nil, newError(CodePermissionDenied, "earnings are only visible to the doctor")
	}
	if err := validateRange(from, to); err != nil {
		return nil, err
	}

	appts, err := se.Repo.ListAppointments(ctx, models.AppointmentFilter{
		DoctorID: doctorID,
		From:     from,
		To:       to,
		Status:   models.StatusConfirmed,
	})
	if err != nil {
		return nil, translate(err)
	}
	return SummarizeEarnings(doctorID, from, to, appts), nil
}
