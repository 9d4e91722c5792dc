package models

import "time"

// AppointmentStatus values are persisted using their display names.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "Pending"
	StatusConfirmed AppointmentStatus = "Confirmed"
	StatusCancelled AppointmentStatus = "Cancelled"
)

// IsActive reports whether the status still occupies slots.
func (s AppointmentStatus) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Valid reports whether s is one of the known statuses.
func (s AppointmentStatus) Valid() bool {
	return s.IsActive() || s == StatusCancelled
}

// Appointment represents a patient's reservation of a doctor's time.
type Appointment struct {
	ID              string            `json:"appointmentId"`
	DoctorID        string            `json:"doctorId"`
	PatientID       string            `json:"patientId"`
	Date            string            `json:"date"` // "yyyy-MM-dd"
	Time            TimePoint         `json:"time"` // start of the occupied interval
	DurationMinutes int               `json:"durationMinutes"`
	Status          AppointmentStatus `json:"status"`
	Type            string            `json:"type"` // service code from the appointment type catalog
	Price           float64           `json:"price"`
	Comments        string            `json:"comments,omitempty"`
	Address         string            `json:"address,omitempty"`
	DoctorName      string            `json:"doctorName,omitempty"`
	PatientName     string            `json:"patientName,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// End is the exclusive end of the occupied interval.
func (a Appointment) End() TimePoint {
	return a.Time.Add(a.DurationMinutes)
}

// IsParticipant reports whether userID is the doctor or the patient.
func (a Appointment) IsParticipant(userID string) bool {
	return userID != "" && (userID == a.DoctorID || userID == a.PatientID)
}

// BookingRequest is the input to the booking coordinator.
type BookingRequest struct {
	AppointmentID string     `json:"appointmentId,omitempty"` // optional idempotency key
	DoctorID      string     `json:"doctorId" binding:"required"`
	Date          string     `json:"date" binding:"required"`
	Time          *TimePoint `json:"time" binding:"required"`
	Type          string     `json:"type" binding:"required"`
	Comments      string     `json:"comments,omitempty"`
	Address       string     `json:"address,omitempty"`
	DoctorName    string     `json:"doctorName,omitempty"`
	PatientName   string     `json:"patientName,omitempty"`
}

// RescheduleRequest moves an appointment to a new date and time.
type RescheduleRequest struct {
	Date string     `json:"date" binding:"required"`
	Time *TimePoint `json:"time" binding:"required"`
}

// AppointmentFilter narrows appointment listings. One of DoctorID or PatientID is required.
type AppointmentFilter struct {
	DoctorID  string
	PatientID string
	From      string // inclusive "yyyy-MM-dd", optional
	To        string // inclusive "yyyy-MM-dd", optional
	Status    AppointmentStatus
}

// Matches applies the date range and status parts of the filter.
func (f AppointmentFilter) Matches(a Appointment) bool {
	if f.DoctorID != "" && a.DoctorID != f.DoctorID {
		return false
	}
	if f.PatientID != "" && a.PatientID != f.PatientID {
		return false
	}
	if f.From != "" && a.Date < f.From {
		return false
	}
	if f.To != "" && a.Date > f.To {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return true
}
