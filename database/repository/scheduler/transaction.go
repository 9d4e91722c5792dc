package schedulerRepo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"medibook/models"
)

// RunTransaction runs fn inside a MongoDB session transaction, retrying on write
// conflicts and stale window versions.
func (repo *MongoSchedulerRepo) RunTransaction(ctx context.Context, fn TxnFunc) error {
	return retryTransaction(ctx, repo.maxAttempts, repo.onConflict, func() error {
		return repo.runOnce(ctx, fn)
	})
}

func (repo *MongoSchedulerRepo) runOnce(ctx context.Context, fn TxnFunc) error {
	sess, err := repo.client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	tx := &mongoTxn{repo: repo, pending: newPendingWrites()}
	err = mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := fn(sc, tx); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		if err := tx.flush(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	})
	if err != nil {
		if isMongoConflict(err) {
			repo.logger.Debug("mongo transaction conflict", zap.Error(err))
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return err
	}
	tx.pending.markCommitted()
	return nil
}

// isMongoConflict recognises errors that a fresh attempt may not hit again.
func isMongoConflict(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorLabel("TransientTransactionError") ||
			se.HasErrorLabel("UnknownTransactionCommitResult") ||
			se.HasErrorCode(112) // WriteConflict
	}
	return false
}

type mongoTxn struct {
	repo    *MongoSchedulerRepo
	pending *pendingWrites
}

func (t *mongoTxn) GetAvailability(ctx context.Context, doctorID, date string) (*models.AvailabilityWindow, error) {
	if w, ok := t.pending.window(doctorID, date); ok {
		return w, nil
	}
	return t.repo.findWindow(ctx, doctorID, date)
}

func (t *mongoTxn) PutAvailability(w *models.AvailabilityWindow) {
	t.pending.putWindow(w)
}

func (t *mongoTxn) GetAppointment(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	if a, found := t.pending.appointment(appointmentID); found {
		if a == nil {
			return nil, ErrNotFound
		}
		return a, nil
	}
	return t.repo.findAppointment(ctx, appointmentID)
}

func (t *mongoTxn) PutAppointment(a *models.Appointment) {
	t.pending.putAppointment(a)
}

func (t *mongoTxn) DeleteAppointment(a *models.Appointment) {
	t.pending.deleteAppointment(a)
}

func (t *mongoTxn) ListActiveAppointments(ctx context.Context, doctorID, date string) ([]models.Appointment, error) {
	stored, err := t.repo.findAppointments(ctx, activeAppointmentQuery(doctorID, date))
	if err != nil {
		return nil, err
	}
	return t.pending.overlayActive(stored, doctorID, date), nil
}

// versionFilter matches the window at the version it was read at. Version 0 covers both
// a window created in this transaction and a stored document without a version field;
// the upsert then fails with a duplicate key if another writer got there first.
func versionFilter(id string, version int64) bson.M {
	if version == 0 {
		return bson.M{"_id": id, "version": bson.M{"$in": bson.A{nil, int64(0)}}}
	}
	return bson.M{"_id": id, "version": version}
}

// flush applies buffered writes. Windows are written with a version compare-and-set.
func (t *mongoTxn) flush(ctx context.Context) error {
	for _, key := range t.pending.windowKeys() {
		w := t.pending.windows[key]
		doc := toAvailabilityDoc(w)
		doc.Version = w.Version + 1

		res, err := t.repo.availabilityCol.ReplaceOne(ctx, versionFilter(doc.ID, w.Version), doc,
			options.Replace().SetUpsert(w.Version == 0))
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return fmt.Errorf("%w: availability %s created concurrently", ErrConflict, key)
			}
			return fmt.Errorf("failed to write availability %s: %w", key, err)
		}
		if res.MatchedCount == 0 && res.UpsertedCount == 0 {
			return fmt.Errorf("%w: availability %s changed since version %d", ErrConflict, key, w.Version)
		}
	}

	for _, id := range t.pending.appointmentKeys() {
		doc := toAppointmentDoc(t.pending.appointments[id])
		_, err := t.repo.appointmentCol.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
		if err != nil {
			return fmt.Errorf("failed to write appointment %s: %w", id, err)
		}
	}

	for _, id := range t.pending.deletedKeys() {
		if _, err := t.repo.appointmentCol.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
			return fmt.Errorf("failed to delete appointment %s: %w", id, err)
		}
	}
	return nil
}
