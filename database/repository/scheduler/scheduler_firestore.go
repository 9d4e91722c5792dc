package schedulerRepo

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"medibook/models"
)

// FirestoreSchedulerRepo keeps the users/{doctorId}/availability/{date} and
// appointments/{appointmentId} layout natively. Firestore retries aborted
// transactions itself, bounded by maxAttempts.
type FirestoreSchedulerRepo struct {
	client      *firestore.Client
	maxAttempts int
	onConflict  func()
	logger      *zap.Logger
}

func NewFirestoreSchedulerRepo(client *firestore.Client, opts ...Option) *FirestoreSchedulerRepo {
	o := applyOptions(opts)
	return &FirestoreSchedulerRepo{
		client:      client,
		maxAttempts: o.maxAttempts,
		onConflict:  o.conflictHook("firestore"),
		logger:      o.logger,
	}
}

func (repo *FirestoreSchedulerRepo) availabilityRef(doctorID, date string) *firestore.DocumentRef {
	return repo.client.Doc(availabilityPath(doctorID, date))
}

func (repo *FirestoreSchedulerRepo) appointmentRef(appointmentID string) *firestore.DocumentRef {
	return repo.client.Collection("appointments").Doc(appointmentID)
}

func decodeWindowSnapshot(snap *firestore.DocumentSnapshot) (*models.AvailabilityWindow, error) {
	var doc availabilityDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("error decoding availability %s: %w", snap.Ref.Path, err)
	}
	return doc.toModel()
}

func decodeAppointmentSnapshot(snap *firestore.DocumentSnapshot) (*models.Appointment, error) {
	var doc appointmentDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("error decoding appointment %s: %w", snap.Ref.ID, err)
	}
	doc.ID = snap.Ref.ID
	return doc.toModel()
}

func isFirestoreNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (repo *FirestoreSchedulerRepo) GetAvailability(ctx context.Context, doctorID, date string) (*models.AvailabilityWindow, error) {
	snap, err := repo.availabilityRef(doctorID, date).Get(ctx)
	if isFirestoreNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching availability %s/%s: %w", doctorID, date, err)
	}
	return decodeWindowSnapshot(snap)
}

func (repo *FirestoreSchedulerRepo) GetAppointment(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	snap, err := repo.appointmentRef(appointmentID).Get(ctx)
	if isFirestoreNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching appointment %s: %w", appointmentID, err)
	}
	return decodeAppointmentSnapshot(snap)
}

func (repo *FirestoreSchedulerRepo) appointmentsQuery(f models.AppointmentFilter) firestore.Query {
	q := repo.client.Collection("appointments").Query
	if f.DoctorID != "" {
		q = q.Where("doctorId", "==", f.DoctorID)
	}
	if f.PatientID != "" {
		q = q.Where("patientId", "==", f.PatientID)
	}
	if f.From != "" {
		q = q.Where("date", ">=", f.From)
	}
	if f.To != "" {
		q = q.Where("date", "<=", f.To)
	}
	if f.Status != "" {
		q = q.Where("status", "==", string(f.Status))
	}
	return q
}

func collectAppointments(iter *firestore.DocumentIterator) ([]models.Appointment, error) {
	defer iter.Stop()
	appts := []models.Appointment{}
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error iterating appointments: %w", err)
		}
		a, err := decodeAppointmentSnapshot(snap)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *a)
	}
	sortAppointments(appts)
	return appts, nil
}

func (repo *FirestoreSchedulerRepo) ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	return collectAppointments(repo.appointmentsQuery(filter).Documents(ctx))
}

// RunTransaction delegates retries to the Firestore client; writes are applied after
// all reads, as Firestore requires.
func (repo *FirestoreSchedulerRepo) RunTransaction(ctx context.Context, fn TxnFunc) error {
	attempt := 0
	var pending *pendingWrites
	err := repo.client.RunTransaction(ctx, func(ctx context.Context, ftx *firestore.Transaction) error {
		if attempt > 0 {
			repo.onConflict()
		}
		attempt++

		pending = newPendingWrites()
		tx := &firestoreTxn{repo: repo, ftx: ftx, pending: pending}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.flush()
	}, firestore.MaxAttempts(repo.maxAttempts))
	if err != nil {
		if status.Code(err) == codes.Aborted {
			return fmt.Errorf("%w after %d attempts: %v", ErrTransactionConflict, attempt, err)
		}
		return err
	}
	pending.markCommitted()
	return nil
}

// WatchAvailability streams document snapshots; the first snapshot is the current state.
func (repo *FirestoreSchedulerRepo) WatchAvailability(ctx context.Context, doctorID, date string) (Subscription, error) {
	if _, err := repo.GetAvailability(ctx, doctorID, date); err != nil {
		return nil, err
	}

	return newWindowSubscription(ctx, func(ctx context.Context, emit emitFunc) error {
		snaps := repo.availabilityRef(doctorID, date).Snapshots(ctx)
		defer snaps.Stop()
		for {
			snap, err := snaps.Next()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, iterator.Done) {
					return nil
				}
				return fmt.Errorf("availability snapshot stream: %w", err)
			}
			if !snap.Exists() {
				continue
			}
			w, err := decodeWindowSnapshot(snap)
			if err != nil {
				return err
			}
			if !emit(*w) {
				return nil
			}
		}
	}), nil
}

func (repo *FirestoreSchedulerRepo) Ping(ctx context.Context) error {
	iter := repo.client.Collection("appointments").Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return err
	}
	return nil
}

func (repo *FirestoreSchedulerRepo) Close(context.Context) error {
	return repo.client.Close()
}

type firestoreTxn struct {
	repo    *FirestoreSchedulerRepo
	ftx     *firestore.Transaction
	pending *pendingWrites
}

func (t *firestoreTxn) GetAvailability(_ context.Context, doctorID, date string) (*models.AvailabilityWindow, error) {
	if w, ok := t.pending.window(doctorID, date); ok {
		return w, nil
	}
	snap, err := t.ftx.Get(t.repo.availabilityRef(doctorID, date))
	if isFirestoreNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching availability %s/%s: %w", doctorID, date, err)
	}
	return decodeWindowSnapshot(snap)
}

func (t *firestoreTxn) PutAvailability(w *models.AvailabilityWindow) {
	t.pending.putWindow(w)
}

func (t *firestoreTxn) GetAppointment(_ context.Context, appointmentID string) (*models.Appointment, error) {
	if a, found := t.pending.appointment(appointmentID); found {
		if a == nil {
			return nil, ErrNotFound
		}
		return a, nil
	}
	snap, err := t.ftx.Get(t.repo.appointmentRef(appointmentID))
	if isFirestoreNotFound(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching appointment %s: %w", appointmentID, err)
	}
	return decodeAppointmentSnapshot(snap)
}

func (t *firestoreTxn) PutAppointment(a *models.Appointment) {
	t.pending.putAppointment(a)
}

func (t *firestoreTxn) DeleteAppointment(a *models.Appointment) {
	t.pending.deleteAppointment(a)
}

func (t *firestoreTxn) ListActiveAppointments(_ context.Context, doctorID, date string) ([]models.Appointment, error) {
	q := t.repo.client.Collection("appointments").
		Where("doctorId", "==", doctorID).
		Where("date", "==", date)
	all, err := collectAppointments(t.ftx.Documents(q))
	if err != nil {
		return nil, err
	}
	return t.pending.overlayActive(all, doctorID, date), nil
}

func (t *firestoreTxn) flush() error {
	for _, key := range t.pending.windowKeys() {
		w := t.pending.windows[key]
		doc := toAvailabilityDoc(w)
		doc.Version++
		if err := t.ftx.Set(t.repo.availabilityRef(w.DoctorID, w.Date), doc); err != nil {
			return fmt.Errorf("failed to write availability %s: %w", key, err)
		}
	}
	for _, id := range t.pending.appointmentKeys() {
		if err := t.ftx.Set(t.repo.appointmentRef(id), toAppointmentDoc(t.pending.appointments[id])); err != nil {
			return fmt.Errorf("failed to write appointment %s: %w", id, err)
		}
	}
	for _, id := range t.pending.deletedKeys() {
		if err := t.ftx.Delete(t.repo.appointmentRef(id)); err != nil {
			return fmt.Errorf("failed to delete appointment %s: %w", id, err)
		}
	}
	return nil
}
