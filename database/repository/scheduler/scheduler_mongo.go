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

// MongoSchedulerRepo implements SchedulerRepository using MongoDB multi-document
// transactions. Requires a replica set.
type MongoSchedulerRepo struct {
	client          *mongo.Client
	availabilityCol *mongo.Collection
	appointmentCol  *mongo.Collection
	maxAttempts     int
	onConflict      func()
	logger          *zap.Logger
}

// NewMongoSchedulerRepo constructs a new instance of MongoSchedulerRepo.
func NewMongoSchedulerRepo(db *mongo.Database, opts ...Option) *MongoSchedulerRepo {
	o := applyOptions(opts)
	return &MongoSchedulerRepo{
		client:          db.Client(),
		availabilityCol: db.Collection("availability"),
		appointmentCol:  db.Collection("appointments"),
		maxAttempts:     o.maxAttempts,
		onConflict:      o.conflictHook("mongo"),
		logger:          o.logger,
	}
}

// GetAvailability reads a window outside any transaction.
func (repo *MongoSchedulerRepo) GetAvailability(ctx context.Context, doctorID, date string) (*models.AvailabilityWindow, error) {
	return repo.findWindow(ctx, doctorID, date)
}

func (repo *MongoSchedulerRepo) findWindow(ctx context.Context, doctorID, date string) (*models.AvailabilityWindow, error) {
	var doc availabilityDoc
	err := repo.availabilityCol.FindOne(ctx, bson.M{"_id": availabilityPath(doctorID, date)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching availability %s/%s: %w", doctorID, date, err)
	}
	return doc.toModel()
}

// GetAppointment reads an appointment outside any transaction.
func (repo *MongoSchedulerRepo) GetAppointment(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	return repo.findAppointment(ctx, appointmentID)
}

func (repo *MongoSchedulerRepo) findAppointment(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	var doc appointmentDoc
	err := repo.appointmentCol.FindOne(ctx, bson.M{"_id": appointmentID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching appointment %s: %w", appointmentID, err)
	}
	return doc.toModel()
}

// ListAppointments returns appointments matching filter ordered by date and time.
func (repo *MongoSchedulerRepo) ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error) {
	return repo.findAppointments(ctx, appointmentQuery(filter))
}

func (repo *MongoSchedulerRepo) findAppointments(ctx context.Context, query bson.M) ([]models.Appointment, error) {
	cursor, err := repo.appointmentCol.Find(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error finding appointments: %w", err)
	}
	defer cursor.Close(ctx)

	appts := []models.Appointment{}
	for cursor.Next(ctx) {
		var doc appointmentDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("error decoding appointment: %w", err)
		}
		a, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		appts = append(appts, *a)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}
	sortAppointments(appts)
	return appts, nil
}

func appointmentQuery(f models.AppointmentFilter) bson.M {
	query := bson.M{}
	if f.DoctorID != "" {
		query["doctorId"] = f.DoctorID
	}
	if f.PatientID != "" {
		query["patientId"] = f.PatientID
	}
	dateRange := bson.M{}
	if f.From != "" {
		dateRange["$gte"] = f.From
	}
	if f.To != "" {
		dateRange["$lte"] = f.To
	}
	if len(dateRange) > 0 {
		query["date"] = dateRange
	}
	if f.Status != "" {
		query["status"] = string(f.Status)
	}
	return query
}

func activeAppointmentQuery(doctorID, date string) bson.M {
	return bson.M{
		"doctorId": doctorID,
		"date":     date,
		"status":   bson.M{"$in": bson.A{string(models.StatusPending), string(models.StatusConfirmed)}},
	}
}

// WatchAvailability opens a change stream on one window document.
func (repo *MongoSchedulerRepo) WatchAvailability(ctx context.Context, doctorID, date string) (Subscription, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: availabilityPath(doctorID, date)}}}},
	}
	stream, err := repo.availabilityCol.Watch(ctx, pipeline, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return nil, fmt.Errorf("failed to open availability change stream: %w", err)
	}

	current, err := repo.findWindow(ctx, doctorID, date)
	if err != nil {
		_ = stream.Close(ctx)
		return nil, err
	}

	return newWindowSubscription(ctx, func(ctx context.Context, emit emitFunc) error {
		defer stream.Close(context.Background())
		if !emit(*current) {
			return nil
		}
		for stream.Next(ctx) {
			var event struct {
				FullDocument *availabilityDoc `bson:"fullDocument"`
			}
			if err := stream.Decode(&event); err != nil {
				return fmt.Errorf("error decoding change event: %w", err)
			}
			if event.FullDocument == nil {
				continue
			}
			w, err := event.FullDocument.toModel()
			if err != nil {
				return err
			}
			if !emit(*w) {
				return nil
			}
		}
		return stream.Err()
	}), nil
}

func (repo *MongoSchedulerRepo) Ping(ctx context.Context) error {
	return repo.client.Ping(ctx, nil)
}

func (repo *MongoSchedulerRepo) Close(ctx context.Context) error {
	return repo.client.Disconnect(ctx)
}
