package booking

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	schedulerRepo "medibook/database/repository/scheduler"
	"medibook/models"
	"medibook/services/identity"
	"medibook/utils"
)

// defaultDateConcurrency bounds the per-date fan-out of UpdateAvailabilities.
const defaultDateConcurrency = 4

// DefaultSchedulingEngine implements SchedulingService. It is the only writer of
// availability windows; all slot math it applies is pure (see slotBuilder.go).
type DefaultSchedulingEngine struct {
	Repo            schedulerRepo.SchedulerRepository
	Catalog         Catalog
	Cache           *utils.AvailabilityCache
	Metrics         *utils.SchedulingMetrics
	Logger          *zap.Logger
	DateConcurrency int
	Now             func() time.Time
}

// NewDefaultSchedulingEngine wires an engine; cache and metrics may be nil.
func NewDefaultSchedulingEngine(
	repo schedulerRepo.SchedulerRepository,
	catalog Catalog,
	cache *utils.AvailabilityCache,
	metrics *utils.SchedulingMetrics,
	logger *zap.Logger,
) *DefaultSchedulingEngine {
	if logger == nil {
		logger = utils.GetLogger()
	}
	return &DefaultSchedulingEngine{
		Repo:            repo,
		Catalog:         catalog,
		Cache:           cache,
		Metrics:         metrics,
		Logger:          logger,
		DateConcurrency: defaultDateConcurrency,
		Now:             time.Now,
	}
}

func (se *DefaultSchedulingEngine) now() time.Time {
	if se.Now != nil {
		return se.Now().UTC()
	}
	return time.Now().UTC()
}

func (se *DefaultSchedulingEngine) logger() *zap.Logger {
	if se.Logger != nil {
		return se.Logger
	}
	return zap.NewNop()
}

// track is deferred by every operation: it turns panics into INTERNAL errors and
// records the outcome.
func (se *DefaultSchedulingEngine) track(operation string, started time.Time, errp *error) {
	if r := recover(); r != nil {
		se.logger().Error("panic recovered",
			zap.String("operation", operation), zap.Any("panic", r), zap.Stack("stack"))
		*errp = &SchedulingError{
			Code:    CodeInternal,
			Message: "internal error occurred during " + operation,
			Err:     fmt.Errorf("panic: %v", r),
		}
	}
	outcome := "ok"
	if *errp != nil {
		outcome = string(CodeOf(*errp))
	}
	se.Metrics.ObserveOperation(operation, outcome, time.Since(started))
}

func callerID(ctx context.Context) (string, error) {
	id, ok := identity.UserIDFromContext(ctx)
	if !ok {
		return "", newError(CodeUnauthenticated, "authentication required")
	}
	return id, nil
}

// refresh caches the windows a commit wrote, at their committed versions. A window
// that cannot be cached is dropped instead so readers go back to the store.
func (se *DefaultSchedulingEngine) refresh(ctx context.Context, windows ...*models.AvailabilityWindow) {
	for _, w := range windows {
		if w == nil {
			continue
		}
		if _, err := se.Cache.Set(ctx, *w); err == nil {
			continue
		}
		if err := se.Cache.Invalidate(ctx, w.DoctorID, w.Date); err != nil {
			se.logger().Warn("availability cache refresh failed",
				zap.String("doctorId", w.DoctorID), zap.String("date", w.Date), zap.Error(err))
		}
	}
}
