package models

// EarningsSummary aggregates confirmed appointments for a doctor.
type EarningsSummary struct {
	DoctorID     string             `json:"doctorId"`
	From         string             `json:"from,omitempty"`
	To           string             `json:"to,omitempty"`
	Total        float64            `json:"total"`
	Appointments int                `json:"appointments"`
	ByDate       map[string]float64 `json:"byDate"`
	ByType       map[string]float64 `json:"byType"`
}
