package schedulerRepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"medibook/models"
)

// availabilityChannelPrefix names the pub/sub channel carrying committed windows.
const availabilityChannelPrefix = "availability-updates:"

// RedisSchedulerRepo stores documents as JSON strings keyed by their document path and
// uses WATCH/MULTI/EXEC for optimistic transactions.
type RedisSchedulerRepo struct {
	client      *redis.Client
	maxAttempts int
	onConflict  func()
	logger      *zap.Logger
}

func NewRedisSchedulerRepo(client *redis.Client, opts ...Option) *RedisSchedulerRepo {
	o := applyOptions(opts)
	return &RedisSchedulerRepo{
		client:      client,
		maxAttempts: o.maxAttempts,
		onConflict:  o.conflictHook("redis"),
		logger:      o.logger,
	}
}

func userAppointmentsKey(userID string) string {
	return "users/" + userID + "/appointments"
}

func availabilityChannel(doctorID, date string) string {
	return availabilityChannelPrefix + doctorID + ":" + date
}

// redisReader is satisfied by both *redis.Client and *redis.Tx.
type redisReader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
}

func readWindow(ctx context.Context, r redisReader, doctorID, date string) (*models.AvailabilityWindow, error) {
	raw, err := r.Get(ctx, availabilityPath(doctorID, date)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching availability %s/%s: %w", doctorID, date, err)
	}
	var doc availabilityDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("error decoding availability %s/%s: %w", doctorID, date, err)
	}
	return doc.toModel()
}

func readAppointment(ctx context.Context, r redisReader, appointmentID string) (*models.Appointment, error) {
	raw, err := r.Get(ctx, appointmentPath(appointmentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching appointment %s: %w", appointmentID, err)
	}
	var doc appointmentDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("error decoding appointment %s: %w", appointmentID, err)
	}
	return doc.toModel()
}

func (repo *RedisSchedulerRepo) GetAvailability(ctx context.Context, doctorID, date string) (*models.AvailabilityWindow, error) {
	return readWindow(ctx, repo.client, doctorID, date)
}

func (repo *RedisSchedulerRepo) GetAppointment(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	return readAppointment(ctx, repo.client, appointmentID)
}

// ListAppointments walks the doctor's or patient's appointment index.
func (repo *RedisSchedulerRepo) ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	owner := filter.DoctorID
	if owner == "" {
		owner = filter.PatientID
	}
	if owner == "" {
		return nil, errors.New("appointment listing requires a doctor or patient id")
	}

	ids, err := repo.client.SMembers(ctx, userAppointmentsKey(owner)).Result()
	if err != nil {
		return nil, fmt.Errorf("error reading appointment index for %s: %w", owner, err)
	}
	appts := []models.Appointment{}
	for _, id := range ids {
		a, err := readAppointment(ctx, repo.client, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if filter.Matches(*a) {
			appts = append(appts, *a)
		}
	}
	sortAppointments(appts)
	return appts, nil
}

// RunTransaction watches every key read by fn and commits its writes in one MULTI/EXEC.
func (repo *RedisSchedulerRepo) RunTransaction(ctx context.Context, fn TxnFunc) error {
	return retryTransaction(ctx, repo.maxAttempts, repo.onConflict, func() error {
		return repo.runOnce(ctx, fn)
	})
}

func (repo *RedisSchedulerRepo) runOnce(ctx context.Context, fn TxnFunc) error {
	pending := newPendingWrites()
	err := repo.client.Watch(ctx, func(rtx *redis.Tx) error {
		tx := &redisTxn{rtx: rtx, pending: pending}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if pending.empty() {
			return nil
		}
		_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return tx.flush(ctx, pipe)
		})
		return err
	})
	if errors.Is(err, redis.TxFailedErr) {
		repo.logger.Debug("redis transaction conflict", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	if err != nil {
		return err
	}

	pending.markCommitted()
	repo.publish(ctx, pending)
	return nil
}

// publish notifies watchers of committed windows. Failures only delay watchers.
func (repo *RedisSchedulerRepo) publish(ctx context.Context, pending *pendingWrites) {
	for _, key := range pending.windowKeys() {
		w := pending.windows[key]
		raw, err := json.Marshal(toAvailabilityDoc(w))
		if err != nil {
			continue
		}
		if err := repo.client.Publish(ctx, availabilityChannel(w.DoctorID, w.Date), raw).Err(); err != nil {
			repo.logger.Warn("failed to publish availability update",
				zap.String("doctorId", w.DoctorID), zap.String("date", w.Date), zap.Error(err))
		}
	}
}

// WatchAvailability subscribes before reading the current window so no commit is missed.
func (repo *RedisSchedulerRepo) WatchAvailability(ctx context.Context, doctorID, date string) (Subscription, error) {
	pubsub := repo.client.Subscribe(ctx, availabilityChannel(doctorID, date))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to availability updates: %w", err)
	}

	current, err := repo.GetAvailability(ctx, doctorID, date)
	if err != nil {
		_ = pubsub.Close()
		return nil, err
	}

	return newWindowSubscription(ctx, func(ctx context.Context, emit emitFunc) error {
		defer pubsub.Close()
		if !emit(*current) {
			return nil
		}
		last := current.Version
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return nil
			case msg, ok := <-messages:
				if !ok {
					return nil
				}
				var doc availabilityDoc
				if err := json.Unmarshal([]byte(msg.Payload), &doc); err != nil {
					return fmt.Errorf("error decoding availability update: %w", err)
				}
				w, err := doc.toModel()
				if err != nil {
					return err
				}
				if w.Version <= last {
					continue
				}
				last = w.Version
				if !emit(*w) {
					return nil
				}
			}
		}
	}), nil
}

func (repo *RedisSchedulerRepo) Ping(ctx context.Context) error {
	return repo.client.Ping(ctx).Err()
}

func (repo *RedisSchedulerRepo) Close(context.Context) error {
	return repo.client.Close()
}

type redisTxn struct {
	rtx     *redis.Tx
	pending *pendingWrites
}

func (t *redisTxn) watch(ctx context.Context, keys ...string) error {
	if err := t.rtx.Watch(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to watch %v: %w", keys, err)
	}
	return nil
}

func (t *redisTxn) GetAvailability(ctx context.Context, doctorID, date string) (*models.AvailabilityWindow, error) {
	if w, ok := t.pending.window(doctorID, date); ok {
		return w, nil
	}
	if err := t.watch(ctx, availabilityPath(doctorID, date)); err != nil {
		return nil, err
	}
	return readWindow(ctx, t.rtx, doctorID, date)
}

func (t *redisTxn) PutAvailability(w *models.AvailabilityWindow) {
	t.pending.putWindow(w)
}

func (t *redisTxn) GetAppointment(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	if a, found := t.pending.appointment(appointmentID); found {
		if a == nil {
			return nil, ErrNotFound
		}
		return a, nil
	}
	if err := t.watch(ctx, appointmentPath(appointmentID)); err != nil {
		return nil, err
	}
	return readAppointment(ctx, t.rtx, appointmentID)
}

func (t *redisTxn) PutAppointment(a *models.Appointment) {
	t.pending.putAppointment(a)
}

func (t *redisTxn) DeleteAppointment(a *models.Appointment) {
	t.pending.deleteAppointment(a)
}

func (t *redisTxn) ListActiveAppointments(ctx context.Context, doctorID, date string) ([]models.Appointment, error) {
	indexKey := userAppointmentsKey(doctorID)
	if err := t.watch(ctx, indexKey); err != nil {
		return nil, err
	}
	ids, err := t.rtx.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("error reading appointment index for %s: %w", doctorID, err)
	}

	var stored []models.Appointment
	for _, id := range ids {
		if err := t.watch(ctx, appointmentPath(id)); err != nil {
			return nil, err
		}
		a, err := readAppointment(ctx, t.rtx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if a.Date == date && a.Status.IsActive() {
			stored = append(stored, *a)
		}
	}
	return t.pending.overlayActive(stored, doctorID, date), nil
}

// flush queues buffered writes on the MULTI pipeline.
func (t *redisTxn) flush(ctx context.Context, pipe redis.Pipeliner) error {
	for _, key := range t.pending.windowKeys() {
		doc := toAvailabilityDoc(t.pending.windows[key])
		doc.Version++
		raw, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode availability %s: %w", key, err)
		}
		pipe.Set(ctx, key, raw, 0)
	}

	for _, id := range t.pending.appointmentKeys() {
		a := t.pending.appointments[id]
		raw, err := json.Marshal(toAppointmentDoc(a))
		if err != nil {
			return fmt.Errorf("failed to encode appointment %s: %w", id, err)
		}
		pipe.Set(ctx, appointmentPath(id), raw, 0)
		pipe.SAdd(ctx, userAppointmentsKey(a.DoctorID), id)
		pipe.SAdd(ctx, userAppointmentsKey(a.PatientID), id)
	}

	for _, id := range t.pending.deletedKeys() {
		a := t.pending.deleted[id]
		pipe.Del(ctx, appointmentPath(id))
		pipe.SRem(ctx, userAppointmentsKey(a.DoctorID), id)
		pipe.SRem(ctx, userAppointmentsKey(a.PatientID), id)
	}
	return nil
}
