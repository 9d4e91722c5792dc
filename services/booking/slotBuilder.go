package booking

import (
	"medibook/models"
)

// GenerateSlots returns every start + k*quantum with start <= t < end.
func GenerateSlots(start, end models.TimePoint, quantum int) []models.TimePoint {
	if quantum <= 0 || end <= start {
		return []models.TimePoint{}
	}
	slots := make([]models.TimePoint, 0, int(end-start)/quantum+1)
	for t := start; t < end; t = t.Add(quantum) {
		slots = append(slots, t)
	}
	return slots
}

// IntervalPoints are the quantum points occupied by [start, start+durationMinutes).
func IntervalPoints(start models.TimePoint, durationMinutes int) []models.TimePoint {
	return GenerateSlots(start, start.Add(durationMinutes), models.SlotQuantumMinutes)
}

// OccupiedSlots is the configured range minus the available points.
func OccupiedSlots(w models.AvailabilityWindow) []models.TimePoint {
	free := toSet(w.AvailableSlots)
	occupied := []models.TimePoint{}
	for _, p := range GenerateSlots(w.StartTime, w.EndTime, models.SlotQuantumMinutes) {
		if !free[p] {
			occupied = append(occupied, p)
		}
	}
	return occupied
}

// allAvailable reports whether every point is currently free in w.
func allAvailable(w models.AvailabilityWindow, points []models.TimePoint) bool {
	if len(points) == 0 {
		return false
	}
	free := toSet(w.AvailableSlots)
	for _, p := range points {
		if !free[p] {
			return false
		}
	}
	return true
}

// removeInterval drops every slot s with start <= s < end.
func removeInterval(slots []models.TimePoint, start, end models.TimePoint) []models.TimePoint {
	out := make([]models.TimePoint, 0, len(slots))
	for _, s := range slots {
		if s >= start && s < end {
			continue
		}
		out = append(out, s)
	}
	return out
}

// restoreInterval returns the points of [start, end) that lie inside the window's
// configured hours to the available list, sorted and deduplicated.
func restoreInterval(w models.AvailabilityWindow, start, end models.TimePoint) []models.TimePoint {
	restored := append([]models.TimePoint(nil), w.AvailableSlots...)
	for _, p := range GenerateSlots(start, end, models.SlotQuantumMinutes) {
		if w.Contains(p) {
			restored = append(restored, p)
		}
	}
	return models.SortTimePoints(restored)
}

// BucketSlots re-buckets the window into display slots of bucketMinutes starting at
// StartTime. A bucket is offered when every quantum point of it inside the window is free.
func BucketSlots(w models.AvailabilityWindow, bucketMinutes int) []models.DisplaySlot {
	if bucketMinutes <= 0 {
		return nil
	}
	free := toSet(w.AvailableSlots)
	buckets := []models.DisplaySlot{}
	for start := w.StartTime; start < w.EndTime; start = start.Add(bucketMinutes) {
		end := start.Add(bucketMinutes)
		if end > w.EndTime {
			end = w.EndTime
		}
		offered := true
		for _, p := range GenerateSlots(start, end, models.SlotQuantumMinutes) {
			if !free[p] {
				offered = false
				break
			}
		}
		if offered {
			buckets = append(buckets, models.DisplaySlot{
				Start: start,
				End:   end,
				Label: start.String() + " - " + end.String(),
			})
		}
	}
	return buckets
}

func onGrid(p models.TimePoint) bool {
	return int(p)%models.SlotQuantumMinutes == 0
}

func toSet(points []models.TimePoint) map[models.TimePoint]bool {
	set := make(map[models.TimePoint]bool, len(points))
	for _, p := range points {
		set[p] = true
	}
	return set
}
