package models

// AppointmentType is a read-only catalog entry for a bookable service.
type AppointmentType struct {
	Code            string  `json:"code" mapstructure:"code"`                       // e.g., "consultation"
	Name            string  `json:"name" mapstructure:"name"`                       // display name
	DurationMinutes int     `json:"durationMinutes" mapstructure:"durationMinutes"` // length of the occupied interval
	Price           float64 `json:"price" mapstructure:"price"`
}

// DefaultAppointmentTypes is used when configuration does not supply a catalog.
var DefaultAppointmentTypes = []AppointmentType{
	{Code: "consultation", Name: "General Consultation", DurationMinutes: 30, Price: 50},
	{Code: "follow_up", Name: "Follow-up Visit", DurationMinutes: 15, Price: 25},
	{Code: "checkup", Name: "Full Checkup", DurationMinutes: 60, Price: 120},
	{Code: "gynecology", Name: "Gynecology Appointment", DurationMinutes: 45, Price: 90},
}
