package booking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	schedulerRepo "medibook/database/repository/scheduler"
	"medibook/models"
)

// MergeAvailability computes the available slots for new hours [newStart, newEnd).
// Booked points are those missing from the existing window plus every point occupied
// by an active appointment; they are never offered again. Existing free points outside
// the new hours are dropped.
func MergeAvailability(existing *models.AvailabilityWindow, active []models.Appointment, newStart, newEnd models.TimePoint) []models.TimePoint {
	newSlots := GenerateSlots(newStart, newEnd, models.SlotQuantumMinutes)
	if existing == nil && len(active) == 0 {
		return newSlots
	}

	booked := make(map[models.TimePoint]bool)
	candidates := append([]models.TimePoint(nil), newSlots...)
	if existing != nil {
		for _, p := range OccupiedSlots(*existing) {
			booked[p] = true
		}
		candidates = append(candidates, existing.AvailableSlots...)
	}
	for _, a := range active {
		for _, p := range IntervalPoints(a.Time, a.DurationMinutes) {
			booked[p] = true
		}
	}

	merged := make([]models.TimePoint, 0, len(candidates))
	for _, p := range candidates {
		if p < newStart || p >= newEnd || booked[p] {
			continue
		}
		merged = append(merged, p)
	}
	return models.SortTimePoints(merged)
}

func validateHours(start, end models.TimePoint) error {
	if start >= end {
		return newError(CodeInvalidArgument, "start time %s must be before end time %s", start, end)
	}
	if !onGrid(start) || !onGrid(end) {
		return newError(CodeInvalidArgument, "start and end times must be on a %d-minute boundary", models.SlotQuantumMinutes)
	}
	return nil
}

// UpdateAvailabilities applies the same hours to each date. Each date commits in its
// own transaction; on error, dates that already committed stay updated.
func (se *DefaultSchedulingEngine) UpdateAvailabilities(
	ctx context.Context,
	dates []string,
	start, end models.TimePoint,
) (windows []models.AvailabilityWindow, err error) {
	defer se.track("update_availabilities", time.Now(), &err)

	doctorID, err := callerID(ctx)
	if err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, newError(CodeInvalidArgument, "at least one date is required")
	}
	if err := validateHours(start, end); err != nil {
		return nil, err
	}
	unique := make([]string, 0, len(dates))
	seen := make(map[string]bool, len(dates))
	for _, d := range dates {
		if err := models.ValidateDate(d); err != nil {
			return nil, &SchedulingError{Code: CodeInvalidArgument, Message: err.Error()}
		}
		if !seen[d] {
			seen[d] = true
			unique = append(unique, d)
		}
	}

	limit := se.DateConcurrency
	if limit <= 0 {
		limit = defaultDateConcurrency
	}
	results := make([]models.AvailabilityWindow, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, date := range unique {
		g.Go(func() error {
			w, err := se.updateAvailability(gctx, doctorID, date, start, end)
			if err != nil {
				return err
			}
			results[i] = *w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		se.logger().Error("UpdateAvailabilities failed",
			zap.String("doctorId", doctorID), zap.Strings("dates", unique), zap.Error(err))
		return nil, translate(err)
	}

	se.logger().Info("Availability updated",
		zap.String("doctorId", doctorID), zap.Strings("dates", unique),
		zap.Stringer("start", start), zap.Stringer("end", end))
	return results, nil
}

func (se *DefaultSchedulingEngine) updateAvailability(
	ctx context.Context,
	doctorID, date string,
	start, end models.TimePoint,
) (*models.AvailabilityWindow, error) {
	var window *models.AvailabilityWindow
	err := se.Repo.RunTransaction(ctx, func(ctx context.Context, tx schedulerRepo.Txn) error {
		existing, err := tx.GetAvailability(ctx, doctorID, date)
		if err != nil && !errors.Is(err, schedulerRepo.ErrNotFound) {
			return err
		}
		if err != nil {
			existing = nil
		}

		active, err := tx.ListActiveAppointments(ctx, doctorID, date)
		if err != nil {
			return err
		}

		window = &models.AvailabilityWindow{
			DoctorID:       doctorID,
			Date:           date,
			StartTime:      start,
			EndTime:        end,
			AvailableSlots: MergeAvailability(existing, active, start, end),
		}
		if existing != nil {
			window.Version = existing.Version
		}
		tx.PutAvailability(window)
		return nil
	})
	if err != nil {
		return nil, err
	}
	se.refresh(ctx, window)
	return window, nil
}
