package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SlotQuantumMinutes is the granularity at which availability is stored.
const SlotQuantumMinutes = 15

// Layouts used for persisted and API-facing dates and times.
const (
	DateLayout    = "2006-01-02"
	TimeLayout    = "3:04 PM"
	Time24hLayout = "15:04"
)

// TimePoint is a time of day expressed in minutes from midnight (e.g., 570 for 9:30 AM).
type TimePoint int

// NewTimePoint builds a TimePoint from an hour and minute.
func NewTimePoint(hour, minute int) TimePoint {
	return TimePoint(hour*60 + minute)
}

// ParseTimePoint accepts "h:mm a" ("9:30 AM") and 24-hour "HH:mm" ("09:30").
func ParseTimePoint(s string) (TimePoint, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{TimeLayout, "3:04PM", Time24hLayout} {
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return NewTimePoint(t.Hour(), t.Minute()), nil
		}
	}
	return 0, fmt.Errorf("invalid time %q: expected h:mm AM/PM or HH:mm", s)
}

// MustTimePoint is ParseTimePoint for literals known to be valid.
func MustTimePoint(s string) TimePoint {
	tp, err := ParseTimePoint(s)
	if err != nil {
		panic(err)
	}
	return tp
}

// Add returns the point shifted by the given number of minutes.
func (tp TimePoint) Add(minutes int) TimePoint {
	return tp + TimePoint(minutes)
}

func (tp TimePoint) String() string {
	return time.Date(0, 1, 1, 0, int(tp), 0, 0, time.UTC).Format(TimeLayout)
}

func (tp TimePoint) MarshalText() ([]byte, error) {
	return []byte(tp.String()), nil
}

func (tp *TimePoint) UnmarshalText(b []byte) error {
	parsed, err := ParseTimePoint(string(b))
	if err != nil {
		return err
	}
	*tp = parsed
	return nil
}

// FormatTimePoints renders points in their persisted "h:mm a" form.
func FormatTimePoints(points []TimePoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.String()
	}
	return out
}

// ParseTimePoints is the inverse of FormatTimePoints.
func ParseTimePoints(raw []string) ([]TimePoint, error) {
	out := make([]TimePoint, 0, len(raw))
	for _, s := range raw {
		tp, err := ParseTimePoint(s)
		if err != nil {
			return nil, err
		}
		out = append(out, tp)
	}
	return out, nil
}

// SortTimePoints sorts ascending and drops duplicates.
func SortTimePoints(points []TimePoint) []TimePoint {
	if len(points) == 0 {
		return []TimePoint{}
	}
	sorted := append([]TimePoint(nil), points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	out := sorted[:1]
	for _, p := range sorted[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

// ValidateDate checks the "yyyy-MM-dd" form used for availability and appointment dates.
func ValidateDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q: expected yyyy-MM-dd", date)
	}
	return nil
}

// AvailabilityWindow is a doctor's declared working hours for one date plus the
// still-free slot points. Occupied points are Generate(StartTime, EndTime) minus AvailableSlots.
type AvailabilityWindow struct {
	DoctorID       string      `json:"doctorId"`
	Date           string      `json:"date"`      // e.g., "2024-06-10"
	StartTime      TimePoint   `json:"startTime"` // inclusive
	EndTime        TimePoint   `json:"endTime"`   // exclusive
	AvailableSlots []TimePoint `json:"availableSlots"`
	Version        int64       `json:"version"` // bumped on every committed write
}

// Contains reports whether p lies inside the configured hours.
func (w AvailabilityWindow) Contains(p TimePoint) bool {
	return p >= w.StartTime && p < w.EndTime
}

// DisplaySlot is a coarser UI bucket derived from the 15-minute grid.
type DisplaySlot struct {
	Start TimePoint `json:"start"`
	End   TimePoint `json:"end"`
	Label string    `json:"label"` // e.g., "9:00 AM - 9:30 AM"
}

// AvailabilityResponse is the read model served to clients.
type AvailabilityResponse struct {
	AvailabilityWindow
	DisplaySlots []DisplaySlot `json:"displaySlots,omitempty"`
}

// UpdateAvailabilityRequest declares the same working hours across several dates.
type UpdateAvailabilityRequest struct {
	Dates     []string   `json:"dates" binding:"required,min=1"`
	StartTime *TimePoint `json:"startTime" binding:"required"`
	EndTime   *TimePoint `json:"endTime" binding:"required"`
}
