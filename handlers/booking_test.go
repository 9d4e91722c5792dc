package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	schedulerRepo "medibook/database/repository/scheduler"
	"medibook/models"
	"medibook/services/booking"
	"medibook/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockScheduler struct {
	mock.Mock
}

func (m *mockScheduler) UpdateAvailabilities(ctx context.Context, dates []string, start, end models.TimePoint) ([]models.AvailabilityWindow, error) {
	args := m.Called(ctx, dates, start, end)
	w, _ := args.Get(0).([]models.AvailabilityWindow)
	return w, args.Error(1)
}

func (m *mockScheduler) GetDoctorAvailability(ctx context.Context, doctorID, date string, bucket int) (*models.AvailabilityResponse, error) {
	args := m.Called(ctx, doctorID, date, bucket)
	r, _ := args.Get(0).(*models.AvailabilityResponse)
	return r, args.Error(1)
}

func (m *mockScheduler) WatchDoctorAvailability(ctx context.Context, doctorID, date string) (schedulerRepo.Subscription, error) {
	args := m.Called(ctx, doctorID, date)
	s, _ := args.Get(0).(schedulerRepo.Subscription)
	return s, args.Error(1)
}

func (m *mockScheduler) BookAppointment(ctx context.Context, req models.BookingRequest) (*models.Appointment, error) {
	args := m.Called(ctx, req)
	a, _ := args.Get(0).(*models.Appointment)
	return a, args.Error(1)
}

func (m *mockScheduler) CancelAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*models.Appointment)
	return a, args.Error(1)
}

func (m *mockScheduler) RescheduleAppointment(ctx context.Context, id, date string, at models.TimePoint) (*models.Appointment, error) {
	args := m.Called(ctx, id, date, at)
	a, _ := args.Get(0).(*models.Appointment)
	return a, args.Error(1)
}

func (m *mockScheduler) ConfirmAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*models.Appointment)
	return a, args.Error(1)
}

func (m *mockScheduler) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*models.Appointment)
	return a, args.Error(1)
}

func (m *mockScheduler) ListAppointments(ctx context.Context, f models.AppointmentFilter) ([]models.Appointment, error) {
	args := m.Called(ctx, f)
	a, _ := args.Get(0).([]models.Appointment)
	return a, args.Error(1)
}

func (m *mockScheduler) Earnings(ctx context.Context, doctorID, from, to string) (*models.EarningsSummary, error) {
	args := m.Called(ctx, doctorID, from, to)
	s, _ := args.Get(0).(*models.EarningsSummary)
	return s, args.Error(1)
}

func (m *mockScheduler) AppointmentTypes() []models.AppointmentType {
	return models.DefaultAppointmentTypes
}

// newTestRouter mounts h with a fixed authenticated user instead of token auth.
func newTestRouter(h *BookingHandler, userID string) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(utils.UserIDKey, userID)
		c.Next()
	})
	r.POST("/api/appointments", h.BookAppointment)
	r.GET("/api/appointments", h.ListAppointments)
	r.POST("/api/appointments/:id/reschedule", h.RescheduleAppointment)
	r.POST("/api/appointments/:id/cancel", h.CancelAppointment)
	r.PUT("/api/doctors/me/availability", h.UpdateAvailability)
	r.GET("/api/doctors/me/earnings", h.Earnings)
	r.GET("/api/doctors/:doctorId/availability/:date", h.GetAvailability)
	r.GET("/api/doctors/:doctorId/availability/:date/stream", h.StreamAvailability)
	r.GET("/api/appointment-types", h.GetAppointmentTypes)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBookAppointmentHandler(t *testing.T) {
	svc := new(mockScheduler)
	r := newTestRouter(NewBookingHandler(svc), "pat-1")

	at := models.NewTimePoint(9, 30)
	want := models.BookingRequest{DoctorID: "doc-1", Date: "2024-06-10", Time: &at, Type: "consultation"}
	svc.On("BookAppointment", mock.Anything, want).Return(&models.Appointment{
		ID: "a-1", DoctorID: "doc-1", PatientID: "pat-1", Date: "2024-06-10",
		Time: models.NewTimePoint(9, 30), DurationMinutes: 30, Status: models.StatusPending,
	}, nil).Once()

	w := do(r, http.MethodPost, "/api/appointments",
		`{"doctorId":"doc-1","date":"2024-06-10","time":"9:30 AM","type":"consultation"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"appointmentId":"a-1"`)
	assert.Contains(t, w.Body.String(), `"time":"9:30 AM"`)
	svc.AssertExpectations(t)
}

func TestBookAppointmentHandler_BadPayload(t *testing.T) {
	svc := new(mockScheduler)
	r := newTestRouter(NewBookingHandler(svc), "pat-1")

	w := do(r, http.MethodPost, "/api/appointments", `{"doctorId":"doc-1","date":"2024-06-10","time":"half past nine","type":"consultation"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodPost, "/api/appointments", `{"date":"2024-06-10","time":"9:30 AM","type":"consultation"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "BookAppointment", mock.Anything, mock.Anything)
}

func TestOmittedTimesAreRejected(t *testing.T) {
	tests := []struct {
		name, method, path, body string
	}{
		{"booking without time", http.MethodPost, "/api/appointments",
			`{"doctorId":"doc-1","date":"2024-06-10","type":"consultation"}`},
		{"booking with null time", http.MethodPost, "/api/appointments",
			`{"doctorId":"doc-1","date":"2024-06-10","time":null,"type":"consultation"}`},
		{"reschedule without time", http.MethodPost, "/api/appointments/a-1/reschedule",
			`{"date":"2024-06-11"}`},
		{"availability without start", http.MethodPut, "/api/doctors/me/availability",
			`{"dates":["2024-06-10"],"endTime":"11:00 AM"}`},
		{"availability without end", http.MethodPut, "/api/doctors/me/availability",
			`{"dates":["2024-06-10"],"startTime":"9:00 AM"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockScheduler)
			r := newTestRouter(NewBookingHandler(svc), "doc-1")

			w := do(r, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), string(booking.CodeInvalidArgument))
			assert.Empty(t, svc.Calls)
		})
	}
}

func TestMidnightIsAnExplicitTime(t *testing.T) {
	svc := new(mockScheduler)
	r := newTestRouter(NewBookingHandler(svc), "pat-1")
	svc.On("RescheduleAppointment", mock.Anything, "a-1", "2024-06-11", models.NewTimePoint(0, 0)).
		Return(&models.Appointment{ID: "a-1", Date: "2024-06-11"}, nil).Once()

	w := do(r, http.MethodPost, "/api/appointments/a-1/reschedule", `{"date":"2024-06-11","time":"12:00 AM"}`)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	svc.AssertExpectations(t)
}

func TestErrorCodesMapToStatuses(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&booking.SchedulingError{Code: booking.CodeNotFound, Message: "appointment a-1 not found"}, http.StatusNotFound},
		{&booking.SchedulingError{Code: booking.CodeUnauthenticated, Message: "authentication required"}, http.StatusUnauthorized},
		{&booking.SchedulingError{Code: booking.CodePermissionDenied, Message: "nope"}, http.StatusForbidden},
		{&booking.SchedulingError{Code: booking.CodeInvalidState, Message: "taken"}, http.StatusConflict},
		{&booking.SchedulingError{Code: booking.CodeInvalidArgument, Message: "bad"}, http.StatusBadRequest},
		{&booking.SchedulingError{Code: booking.CodeTransactionConflict, Message: "retry"}, http.StatusConflict},
		{&booking.SchedulingError{Code: booking.CodeInternal, Message: "boom"}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(booking.CodeOf(tt.err)), func(t *testing.T) {
			svc := new(mockScheduler)
			r := newTestRouter(NewBookingHandler(svc), "pat-1")
			svc.On("CancelAppointment", mock.Anything, "a-1").Return(nil, tt.err).Once()

			w := do(r, http.MethodPost, "/api/appointments/a-1/cancel", "")
			assert.Equal(t, tt.want, w.Code)
			assert.Contains(t, w.Body.String(), string(booking.CodeOf(tt.err)))
		})
	}
}

func TestRescheduleHandler(t *testing.T) {
	svc := new(mockScheduler)
	r := newTestRouter(NewBookingHandler(svc), "pat-1")
	svc.On("RescheduleAppointment", mock.Anything, "a-1", "2024-06-11", models.NewTimePoint(14, 0)).
		Return(&models.Appointment{ID: "a-1", Date: "2024-06-11", Time: models.NewTimePoint(14, 0)}, nil).Once()

	w := do(r, http.MethodPost, "/api/appointments/a-1/reschedule", `{"date":"2024-06-11","time":"14:00"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"time":"2:00 PM"`)
	svc.AssertExpectations(t)
}

func TestListAppointmentsHandler(t *testing.T) {
	svc := new(mockScheduler)
	r := newTestRouter(NewBookingHandler(svc), "doc-1")
	svc.On("ListAppointments", mock.Anything, models.AppointmentFilter{
		DoctorID: "doc-1", From: "2024-06-01", Status: models.StatusConfirmed,
	}).Return([]models.Appointment{{ID: "a-1"}}, nil).Once()

	w := do(r, http.MethodGet, "/api/appointments?role=doctor&from=2024-06-01&status=Confirmed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"appointmentId":"a-1"`)

	w = do(r, http.MethodGet, "/api/appointments?role=admin", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestUpdateAvailabilityHandler(t *testing.T) {
	svc := new(mockScheduler)
	r := newTestRouter(NewBookingHandler(svc), "doc-1")
	svc.On("UpdateAvailabilities", mock.Anything, []string{"2024-06-10", "2024-06-11"}, models.NewTimePoint(9, 0), models.NewTimePoint(11, 0)).
		Return([]models.AvailabilityWindow{{DoctorID: "doc-1", Date: "2024-06-10"}}, nil).Once()

	w := do(r, http.MethodPut, "/api/doctors/me/availability",
		`{"dates":["2024-06-10","2024-06-11"],"startTime":"9:00 AM","endTime":"11:00 AM"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(r, http.MethodPut, "/api/doctors/me/availability", `{"dates":[],"startTime":"9:00 AM","endTime":"11:00 AM"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestGetAvailabilityHandler(t *testing.T) {
	svc := new(mockScheduler)
	r := newTestRouter(NewBookingHandler(svc), "pat-1")
	svc.On("GetDoctorAvailability", mock.Anything, "doc-1", "2024-06-10", 30).Return(&models.AvailabilityResponse{
		AvailabilityWindow: models.AvailabilityWindow{
			DoctorID: "doc-1", Date: "2024-06-10",
			StartTime: models.NewTimePoint(9, 0), EndTime: models.NewTimePoint(10, 0),
			AvailableSlots: []models.TimePoint{models.NewTimePoint(9, 0)},
		},
	}, nil).Once()

	w := do(r, http.MethodGet, "/api/doctors/doc-1/availability/2024-06-10?bucket=30", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"availableSlots":["9:00 AM"]`)

	w = do(r, http.MethodGet, "/api/doctors/doc-1/availability/2024-06-10?bucket=half", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

type fakeSubscription struct {
	updates chan models.AvailabilityWindow
	closed  bool
}

func (f *fakeSubscription) Updates() <-chan models.AvailabilityWindow { return f.updates }

func (f *fakeSubscription) Close() error {
	f.closed = true
	return nil
}

// streamRecorder adds the CloseNotifier that gin's Context.Stream requires.
type streamRecorder struct {
	*httptest.ResponseRecorder
	gone chan bool
}

func (r *streamRecorder) CloseNotify() <-chan bool { return r.gone }

func TestStreamAvailabilityHandler(t *testing.T) {
	svc := new(mockScheduler)
	r := newTestRouter(NewBookingHandler(svc), "pat-1")

	sub := &fakeSubscription{updates: make(chan models.AvailabilityWindow, 2)}
	sub.updates <- models.AvailabilityWindow{DoctorID: "doc-1", Date: "2024-06-10", Version: 1}
	sub.updates <- models.AvailabilityWindow{DoctorID: "doc-1", Date: "2024-06-10", Version: 2}
	close(sub.updates)
	svc.On("WatchDoctorAvailability", mock.Anything, "doc-1", "2024-06-10").Return(sub, nil).Once()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/doctors/doc-1/availability/2024-06-10/stream", nil).WithContext(ctx)
	w := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), gone: make(chan bool, 1)}
	r.ServeHTTP(w, req)

	body := w.Body.String()
	assert.Equal(t, 2, strings.Count(body, "event:availability"))
	assert.Contains(t, body, `"version":2`)
	assert.True(t, sub.closed)
}

func TestEarningsHandler(t *testing.T) {
	svc := new(mockScheduler)
	r := newTestRouter(NewBookingHandler(svc), "doc-1")
	svc.On("Earnings", mock.Anything, "doc-1", "2024-06-01", "2024-06-30").
		Return(&models.EarningsSummary{DoctorID: "doc-1", Total: 220, Appointments: 3}, nil).Once()

	w := do(r, http.MethodGet, "/api/doctors/me/earnings?from=2024-06-01&to=2024-06-30", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":220`)
	svc.AssertExpectations(t)
}

func TestAppointmentTypesHandler(t *testing.T) {
	r := newTestRouter(NewBookingHandler(new(mockScheduler)), "pat-1")
	w := do(r, http.MethodGet, "/api/appointment-types", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"consultation"`)
}
