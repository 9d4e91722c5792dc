package schedulerRepo

import (
	"context"
	"errors"

	"medibook/models"
)

var (
	// ErrNotFound is returned when a window or appointment document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrConflict marks a single transaction attempt that lost an optimistic race.
	ErrConflict = errors.New("concurrent modification detected")
	// ErrTransactionConflict is returned once every retry attempt has conflicted.
	ErrTransactionConflict = errors.New("transaction retries exhausted")
)

// Txn is the view of the store inside one transaction. Reads go to the store (or
// to this transaction's own buffered writes); writes are buffered and applied at commit.
type Txn interface {
	// GetAvailability returns ErrNotFound when the doctor has no window for the date.
	GetAvailability(ctx context.Context, doctorID, date string) (*models.AvailabilityWindow, error)
	PutAvailability(w *models.AvailabilityWindow)
	GetAppointment(ctx context.Context, appointmentID string) (*models.Appointment, error)
	PutAppointment(a *models.Appointment)
	DeleteAppointment(a *models.Appointment)
	// ListActiveAppointments returns the Pending and Confirmed appointments of a doctor's date.
	ListActiveAppointments(ctx context.Context, doctorID, date string) ([]models.Appointment, error)
}

// TxnFunc may run more than once; it must not have side effects outside tx.
type TxnFunc func(ctx context.Context, tx Txn) error

// Subscription streams committed versions of one availability window. The current
// state is delivered first. Updates is closed after Close or when the stream fails.
type Subscription interface {
	Updates() <-chan models.AvailabilityWindow
	Close() error
}

// SchedulerRepository defines the data access used by the scheduling coordinators.
type SchedulerRepository interface {
	// RunTransaction runs fn with optimistic-concurrency retries. Exhausted retries
	// yield ErrTransactionConflict.
	RunTransaction(ctx context.Context, fn TxnFunc) error
	GetAvailability(ctx context.Context, doctorID, date string) (*models.AvailabilityWindow, error)
	GetAppointment(ctx context.Context, appointmentID string) (*models.Appointment, error)
	ListAppointments(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, error)
	WatchAvailability(ctx context.Context, doctorID, date string) (Subscription, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
