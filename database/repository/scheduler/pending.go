package schedulerRepo

import (
	"sort"

	"medibook/models"
)

// pendingWrites buffers a transaction's writes until commit and serves them back to
// later reads in the same transaction.
type pendingWrites struct {
	windows      map[string]*models.AvailabilityWindow
	appointments map[string]*models.Appointment
	deleted      map[string]*models.Appointment
}

func newPendingWrites() *pendingWrites {
	return &pendingWrites{
		windows:      make(map[string]*models.AvailabilityWindow),
		appointments: make(map[string]*models.Appointment),
		deleted:      make(map[string]*models.Appointment),
	}
}

func (p *pendingWrites) putWindow(w *models.AvailabilityWindow) {
	p.windows[availabilityPath(w.DoctorID, w.Date)] = w
}

func (p *pendingWrites) putAppointment(a *models.Appointment) {
	delete(p.deleted, a.ID)
	p.appointments[a.ID] = a
}

func (p *pendingWrites) deleteAppointment(a *models.Appointment) {
	delete(p.appointments, a.ID)
	p.deleted[a.ID] = a
}

// window returns a copy of a buffered window.
func (p *pendingWrites) window(doctorID, date string) (*models.AvailabilityWindow, bool) {
	w, ok := p.windows[availabilityPath(doctorID, date)]
	if !ok {
		return nil, false
	}
	cp := *w
	cp.AvailableSlots = append([]models.TimePoint(nil), w.AvailableSlots...)
	return &cp, true
}

// appointment reports a buffered write for id: found is false when nothing is buffered,
// and a nil appointment with found=true means it was deleted in this transaction.
func (p *pendingWrites) appointment(id string) (appt *models.Appointment, found bool) {
	if _, gone := p.deleted[id]; gone {
		return nil, true
	}
	if a, ok := p.appointments[id]; ok {
		cp := *a
		return &cp, true
	}
	return nil, false
}

// overlayActive merges buffered writes into the active appointments read from the store.
func (p *pendingWrites) overlayActive(stored []models.Appointment, doctorID, date string) []models.Appointment {
	seen := make(map[string]bool, len(stored))
	out := make([]models.Appointment, 0, len(stored))
	for _, a := range stored {
		seen[a.ID] = true
		if _, gone := p.deleted[a.ID]; gone {
			continue
		}
		if buffered, ok := p.appointments[a.ID]; ok {
			a = *buffered
		}
		if a.DoctorID == doctorID && a.Date == date && a.Status.IsActive() {
			out = append(out, a)
		}
	}
	for id, a := range p.appointments {
		if seen[id] {
			continue
		}
		if a.DoctorID == doctorID && a.Date == date && a.Status.IsActive() {
			out = append(out, *a)
		}
	}
	sortAppointments(out)
	return out
}

func (p *pendingWrites) empty() bool {
	return len(p.windows) == 0 && len(p.appointments) == 0 && len(p.deleted) == 0
}

func (p *pendingWrites) windowKeys() []string {
	return sortedKeys(p.windows)
}

func (p *pendingWrites) appointmentKeys() []string {
	return sortedKeys(p.appointments)
}

func (p *pendingWrites) deletedKeys() []string {
	return sortedKeys(p.deleted)
}

// markCommitted bumps every written window to the version stored by the commit.
func (p *pendingWrites) markCommitted() {
	for _, w := range p.windows {
		w.Version++
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
