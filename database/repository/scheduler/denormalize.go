package schedulerRepo

import (
	"fmt"
	"sort"
	"time"

	"medibook/models"
)

// Document paths shared by every backend.
func availabilityPath(doctorID, date string) string {
	return "users/" + doctorID + "/availability/" + date
}

func appointmentPath(appointmentID string) string {
	return "appointments/" + appointmentID
}

// availabilityDoc is the persisted form of an AvailabilityWindow; times are "h:mm a".
type availabilityDoc struct {
	ID             string   `bson:"_id" json:"-" firestore:"-"`
	DoctorID       string   `bson:"doctorId" json:"doctorId" firestore:"doctorId"`
	Date           string   `bson:"date" json:"date" firestore:"date"`
	StartTime      string   `bson:"startTime" json:"startTime" firestore:"startTime"`
	EndTime        string   `bson:"endTime" json:"endTime" firestore:"endTime"`
	AvailableSlots []string `bson:"availableSlots" json:"availableSlots" firestore:"availableSlots"`
	Version        int64    `bson:"version" json:"version" firestore:"version"`
}

type appointmentDoc struct {
	ID              string    `bson:"_id" json:"appointmentId" firestore:"appointmentId"`
	DoctorID        string    `bson:"doctorId" json:"doctorId" firestore:"doctorId"`
	PatientID       string    `bson:"patientId" json:"patientId" firestore:"patientId"`
	Date            string    `bson:"date" json:"date" firestore:"date"`
	Time            string    `bson:"time" json:"time" firestore:"time"`
	DurationMinutes int       `bson:"durationMinutes" json:"durationMinutes" firestore:"durationMinutes"`
	Status          string    `bson:"status" json:"status" firestore:"status"`
	Type            string    `bson:"type" json:"type" firestore:"type"`
	Price           float64   `bson:"price" json:"price" firestore:"price"`
	Comments        string    `bson:"comments,omitempty" json:"comments,omitempty" firestore:"comments"`
	Address         string    `bson:"address,omitempty" json:"address,omitempty" firestore:"address"`
	DoctorName      string    `bson:"doctorName,omitempty" json:"doctorName,omitempty" firestore:"doctorName"`
	PatientName     string    `bson:"patientName,omitempty" json:"patientName,omitempty" firestore:"patientName"`
	CreatedAt       time.Time `bson:"createdAt" json:"createdAt" firestore:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt" json:"updatedAt" firestore:"updatedAt"`
}

func toAvailabilityDoc(w *models.AvailabilityWindow) availabilityDoc {
	return availabilityDoc{
		ID:             availabilityPath(w.DoctorID, w.Date),
		DoctorID:       w.DoctorID,
		Date:           w.Date,
		StartTime:      w.StartTime.String(),
		EndTime:        w.EndTime.String(),
		AvailableSlots: models.FormatTimePoints(models.SortTimePoints(w.AvailableSlots)),
		Version:        w.Version,
	}
}

func (d availabilityDoc) toModel() (*models.AvailabilityWindow, error) {
	start, err := models.ParseTimePoint(d.StartTime)
	if err != nil {
		return nil, fmt.Errorf("availability %s/%s startTime: %w", d.DoctorID, d.Date, err)
	}
	end, err := models.ParseTimePoint(d.EndTime)
	if err != nil {
		return nil, fmt.Errorf("availability %s/%s endTime: %w", d.DoctorID, d.Date, err)
	}
	slots, err := models.ParseTimePoints(d.AvailableSlots)
	if err != nil {
		return nil, fmt.Errorf("availability %s/%s availableSlots: %w", d.DoctorID, d.Date, err)
	}
	return &models.AvailabilityWindow{
		DoctorID:       d.DoctorID,
		Date:           d.Date,
		StartTime:      start,
		EndTime:        end,
		AvailableSlots: models.SortTimePoints(slots),
		Version:        d.Version,
	}, nil
}

func toAppointmentDoc(a *models.Appointment) appointmentDoc {
	return appointmentDoc{
		ID:              a.ID,
		DoctorID:        a.DoctorID,
		PatientID:       a.PatientID,
		Date:            a.Date,
		Time:            a.Time.String(),
		DurationMinutes: a.DurationMinutes,
		Status:          string(a.Status),
		Type:            a.Type,
		Price:           a.Price,
		Comments:        a.Comments,
		Address:         a.Address,
		DoctorName:      a.DoctorName,
		PatientName:     a.PatientName,
		CreatedAt:       a.CreatedAt.UTC(),
		UpdatedAt:       a.UpdatedAt.UTC(),
	}
}

func (d appointmentDoc) toModel() (*models.Appointment, error) {
	start, err := models.ParseTimePoint(d.Time)
	if err != nil {
		return nil, fmt.Errorf("appointment %s time: %w", d.ID, err)
	}
	status := models.AppointmentStatus(d.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("appointment %s: unknown status %q", d.ID, d.Status)
	}
	return &models.Appointment{
		ID:              d.ID,
		DoctorID:        d.DoctorID,
		PatientID:       d.PatientID,
		Date:            d.Date,
		Time:            start,
		DurationMinutes: d.DurationMinutes,
		Status:          status,
		Type:            d.Type,
		Price:           d.Price,
		Comments:        d.Comments,
		Address:         d.Address,
		DoctorName:      d.DoctorName,
		PatientName:     d.PatientName,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}, nil
}

// sortAppointments orders by date then start time.
func sortAppointments(appts []models.Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		if appts[i].Date != appts[j].Date {
			return appts[i].Date < appts[j].Date
		}
		return appts[i].Time < appts[j].Time
	})
}
