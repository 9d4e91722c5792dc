package schedulerRepo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"medibook/models"
)

func TestMongoRepo_GetAvailability(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes stored window", func(mt *mtest.T) {
		repo := NewMongoSchedulerRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(1, "medibook.availability", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "users/doc-1/availability/2024-06-10"},
			{Key: "doctorId", Value: "doc-1"},
			{Key: "date", Value: "2024-06-10"},
			{Key: "startTime", Value: "9:00 AM"},
			{Key: "endTime", Value: "11:00 AM"},
			{Key: "availableSlots", Value: bson.A{"9:15 AM", "9:00 AM"}},
			{Key: "version", Value: int64(4)},
		}))

		w, err := repo.GetAvailability(context.Background(), "doc-1", "2024-06-10")
		require.NoError(t, err)
		assert.Equal(t, models.NewTimePoint(9, 0), w.StartTime)
		assert.Equal(t, []models.TimePoint{models.NewTimePoint(9, 0), models.NewTimePoint(9, 15)}, w.AvailableSlots)
		assert.Equal(t, int64(4), w.Version)
	})

	mt.Run("missing window", func(mt *mtest.T) {
		repo := NewMongoSchedulerRepo(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "medibook.availability", mtest.FirstBatch))

		_, err := repo.GetAvailability(context.Background(), "doc-1", "2024-06-10")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMongoRepo_ListAppointments(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("orders by date and time", func(mt *mtest.T) {
		repo := NewMongoSchedulerRepo(mt.DB)
		appt := func(id, date, at string) bson.D {
			return bson.D{
				{Key: "_id", Value: id},
				{Key: "doctorId", Value: "doc-1"},
				{Key: "patientId", Value: "pat-1"},
				{Key: "date", Value: date},
				{Key: "time", Value: at},
				{Key: "durationMinutes", Value: 30},
				{Key: "status", Value: "Confirmed"},
				{Key: "type", Value: "consultation"},
				{Key: "price", Value: 50.0},
			}
		}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "medibook.appointments", mtest.FirstBatch,
			appt("a-3", "2024-06-11", "9:00 AM"),
			appt("a-2", "2024-06-10", "2:00 PM"),
			appt("a-1", "2024-06-10", "10:00 AM"),
		))

		list, err := repo.ListAppointments(context.Background(), models.AppointmentFilter{DoctorID: "doc-1"})
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"a-1", "a-2", "a-3"}, []string{list[0].ID, list[1].ID, list[2].ID})
		assert.Equal(t, models.StatusConfirmed, list[0].Status)
	})
}

func TestAppointmentQuery(t *testing.T) {
	q := appointmentQuery(models.AppointmentFilter{
		PatientID: "pat-1",
		From:      "2024-06-01",
		To:        "2024-06-30",
		Status:    models.StatusPending,
	})
	assert.Equal(t, bson.M{
		"patientId": "pat-1",
		"date":      bson.M{"$gte": "2024-06-01", "$lte": "2024-06-30"},
		"status":    "Pending",
	}, q)
}

func TestIsMongoConflict(t *testing.T) {
	assert.True(t, isMongoConflict(ErrConflict))
	assert.True(t, isMongoConflict(mtestWriteConflict()))
	assert.False(t, isMongoConflict(assert.AnError))
}

func mtestWriteConflict() error {
	return mongo.CommandError{Code: 112, Name: "WriteConflict", Labels: []string{"TransientTransactionError"}}
}

const testWindowID = "users/doc-1/availability/2024-06-10"

func storedWindowDoc(version int64) bson.D {
	doc := bson.D{
		{Key: "_id", Value: testWindowID},
		{Key: "doctorId", Value: "doc-1"},
		{Key: "date", Value: "2024-06-10"},
		{Key: "startTime", Value: "9:00 AM"},
		{Key: "endTime", Value: "11:00 AM"},
		{Key: "availableSlots", Value: bson.A{"9:00 AM", "9:15 AM", "9:30 AM"}},
	}
	if version > 0 {
		doc = append(doc, bson.E{Key: "version", Value: version})
	}
	return doc
}

func windowCursor(docs ...bson.D) bson.D {
	return mtest.CreateCursorResponse(0, "medibook.availability", mtest.FirstBatch, docs...)
}

func replaced(n int) bson.D {
	return mtest.CreateSuccessResponse(bson.E{Key: "n", Value: n}, bson.E{Key: "nModified", Value: n})
}

func upserted() bson.D {
	return mtest.CreateSuccessResponse(
		bson.E{Key: "n", Value: 1},
		bson.E{Key: "nModified", Value: 0},
		bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: testWindowID}}}},
	)
}

// takeFirstSlot is a booking-shaped transaction: read the window, drop its first slot,
// write it back. A missing window is created.
func takeFirstSlot(attempts *int, result **models.AvailabilityWindow) TxnFunc {
	return func(ctx context.Context, tx Txn) error {
		*attempts++
		w, err := tx.GetAvailability(ctx, "doc-1", "2024-06-10")
		if errors.Is(err, ErrNotFound) {
			w = testWindow()
		} else if err != nil {
			return err
		}
		w.AvailableSlots = w.AvailableSlots[1:]
		tx.PutAvailability(w)
		*result = w
		return nil
	}
}

func commandNames(mt *mtest.T) []string {
	var names []string
	for _, evt := range mt.GetAllStartedEvents() {
		if evt.CommandName == "endSessions" {
			continue
		}
		names = append(names, evt.CommandName)
	}
	return names
}

// updateFilter returns the "q" document of the first update command sent.
func updateFilter(mt *mtest.T) bson.Raw {
	for _, evt := range mt.GetAllStartedEvents() {
		if evt.CommandName != "update" {
			continue
		}
		first, err := evt.Command.Lookup("updates").Array().IndexErr(0)
		require.NoError(mt, err)
		return first.Value().Document().Lookup("q").Document()
	}
	mt.Fatal("no update command sent")
	return nil
}

func TestMongoRepo_RunTransaction(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("version match commits and bumps the version", func(mt *mtest.T) {
		repo := NewMongoSchedulerRepo(mt.DB)
		mt.AddMockResponses(windowCursor(storedWindowDoc(4)), replaced(1), mtest.CreateSuccessResponse())

		var attempts int
		var written *models.AvailabilityWindow
		require.NoError(mt, repo.RunTransaction(context.Background(), takeFirstSlot(&attempts, &written)))

		assert.Equal(mt, 1, attempts)
		assert.Equal(mt, int64(5), written.Version)
		assert.Equal(mt, []string{"find", "update", "commitTransaction"}, commandNames(mt))
		assert.Equal(mt, int64(4), updateFilter(mt).Lookup("version").Int64())
	})

	mt.Run("stale version is retried", func(mt *mtest.T) {
		repo := NewMongoSchedulerRepo(mt.DB, WithMaxAttempts(3))
		mt.AddMockResponses(
			windowCursor(storedWindowDoc(4)), replaced(0), mtest.CreateSuccessResponse(), // conflict, abort
			windowCursor(storedWindowDoc(5)), replaced(1), mtest.CreateSuccessResponse(), // commit
		)

		var attempts int
		var written *models.AvailabilityWindow
		require.NoError(mt, repo.RunTransaction(context.Background(), takeFirstSlot(&attempts, &written)))

		assert.Equal(mt, 2, attempts)
		assert.Equal(mt, int64(6), written.Version)
		assert.Equal(mt, []string{
			"find", "update", "abortTransaction",
			"find", "update", "commitTransaction",
		}, commandNames(mt))
	})

	mt.Run("exhausted attempts", func(mt *mtest.T) {
		repo := NewMongoSchedulerRepo(mt.DB, WithMaxAttempts(2))
		mt.AddMockResponses(
			windowCursor(storedWindowDoc(4)), replaced(0), mtest.CreateSuccessResponse(),
			windowCursor(storedWindowDoc(4)), replaced(0), mtest.CreateSuccessResponse(),
		)

		var attempts int
		var written *models.AvailabilityWindow
		err := repo.RunTransaction(context.Background(), takeFirstSlot(&attempts, &written))

		assert.ErrorIs(mt, err, ErrTransactionConflict)
		assert.Equal(mt, 2, attempts)
	})

	mt.Run("new window is upserted", func(mt *mtest.T) {
		repo := NewMongoSchedulerRepo(mt.DB)
		mt.AddMockResponses(windowCursor(), upserted(), mtest.CreateSuccessResponse())

		var attempts int
		var written *models.AvailabilityWindow
		require.NoError(mt, repo.RunTransaction(context.Background(), takeFirstSlot(&attempts, &written)))

		assert.Equal(mt, int64(1), written.Version)
		assert.Equal(mt, []string{"find", "update", "commitTransaction"}, commandNames(mt))
	})

	mt.Run("concurrent create is retried", func(mt *mtest.T) {
		repo := NewMongoSchedulerRepo(mt.DB, WithMaxAttempts(3))
		mt.AddMockResponses(
			windowCursor(),
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "E11000 duplicate key error"}),
			mtest.CreateSuccessResponse(),
			windowCursor(storedWindowDoc(1)), replaced(1), mtest.CreateSuccessResponse(),
		)

		var attempts int
		var written *models.AvailabilityWindow
		require.NoError(mt, repo.RunTransaction(context.Background(), takeFirstSlot(&attempts, &written)))

		assert.Equal(mt, 2, attempts)
		assert.Equal(mt, int64(2), written.Version)
	})

	mt.Run("window without a version field stays writable", func(mt *mtest.T) {
		repo := NewMongoSchedulerRepo(mt.DB)
		mt.AddMockResponses(windowCursor(storedWindowDoc(0)), replaced(1), mtest.CreateSuccessResponse())

		var attempts int
		var written *models.AvailabilityWindow
		require.NoError(mt, repo.RunTransaction(context.Background(), takeFirstSlot(&attempts, &written)))

		assert.Equal(mt, 1, attempts)
		assert.Equal(mt, int64(1), written.Version)
		assert.Equal(mt, bson.TypeEmbeddedDocument, updateFilter(mt).Lookup("version").Type)
	})

	mt.Run("errors from fn abort without retry", func(mt *mtest.T) {
		repo := NewMongoSchedulerRepo(mt.DB)
		mt.AddMockResponses(windowCursor(storedWindowDoc(4)), mtest.CreateSuccessResponse())

		attempts := 0
		err := repo.RunTransaction(context.Background(), func(ctx context.Context, tx Txn) error {
			attempts++
			if _, err := tx.GetAvailability(ctx, "doc-1", "2024-06-10"); err != nil {
				return err
			}
			return assert.AnError
		})

		assert.ErrorIs(mt, err, assert.AnError)
		assert.Equal(mt, 1, attempts)
		assert.Equal(mt, []string{"find", "abortTransaction"}, commandNames(mt))
	})
}

func TestVersionFilter(t *testing.T) {
	assert.Equal(t, bson.M{"_id": testWindowID, "version": int64(3)}, versionFilter(testWindowID, 3))
	assert.Equal(t, bson.M{"_id": testWindowID, "version": bson.M{"$in": bson.A{nil, int64(0)}}}, versionFilter(testWindowID, 0))
}
