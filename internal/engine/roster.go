package engine

import "NetGuardEngine/internal/models"

// roster holds the set of device MACs known as of the last applied poll.
// It is owned by the Poller and only touched from apply steps, which are
// serialized, so it carries no lock of its own.
type roster struct {
	known map[string]struct{}
}

func newRoster() *roster {
	return &roster{known: make(map[string]struct{})}
}

// Diff reports at most one newly arrived device per cycle: the first device
// in snapshot order whose MAC was absent from the previous snapshot. The
// very first non-empty observation seeds the set and reports nothing, since
// there is nothing to compare against. The stored snapshot is replaced
// wholesale regardless of whether an arrival was found.
//
// If several devices join between two polls only the first is surfaced; the
// rest are absorbed into the new snapshot and never reported.
func (r *roster) Diff(current []models.Device) *models.Device {
	var arrival *models.Device

	if len(r.known) > 0 {
		for i := range current {
			if _, seen := r.known[current[i].MAC]; !seen {
				arrival = &current[i]
				break
			}
		}
	}

	next := make(map[string]struct{}, len(current))
	for i := range current {
		next[current[i].MAC] = struct{}{}
	}
	r.known = next

	return arrival
}

// Snapshot returns a copy of the currently known MAC set.
func (r *roster) Snapshot() map[string]struct{} {
	out := make(map[string]struct{}, len(r.known))
	for mac := range r.known {
		out[mac] = struct{}{}
	}
	return out
}
