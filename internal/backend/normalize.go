package backend

import (
	"fmt"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
)

// Stats turns the overview payload into counter values.
func (r OverviewResponse) Stats() (domain.OverviewStats, error) {
	if r.Intersections < 0 {
		return domain.OverviewStats{}, &ValidationError{Op: "stats overview", Reason: "negative intersection count"}
	}
	return domain.AggregateOverview(r.Intersections, r.IntersectionStatuses), nil
}

// StatusFor finds the overview entry of one intersection.
func (r OverviewResponse) StatusFor(id string) (domain.IntersectionStatus, bool) {
	for _, st := range r.IntersectionStatuses {
		if st.IntersectionID == id {
			return st, true
		}
	}
	return domain.IntersectionStatus{}, false
}

// NormalizeIntersections checks ids and camera keys.
func NormalizeIntersections(in []IntersectionPayload) ([]domain.Intersection, error) {
	seen := make(map[string]bool, len(in))
	out := make([]domain.Intersection, 0, len(in))
	for _, p := range in {
		if p.ID == "" {
			return nil, &ValidationError{Op: "intersections", Reason: "empty intersection id"}
		}
		if seen[p.ID] {
			return nil, &ValidationError{Op: "intersections", Reason: fmt.Sprintf("duplicate intersection id %q", p.ID)}
		}
		seen[p.ID] = true

		it := domain.Intersection{
			ID:        p.ID,
			Name:      p.Name,
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Cameras:   make(map[domain.Direction]string, len(p.Cameras)),
		}
		for k, url := range p.Cameras {
			dir, err := domain.ParseDirection(k)
			if err != nil {
				return nil, &ValidationError{Op: "intersections", Reason: err.Error()}
			}
			it.Cameras[dir] = url
		}
		out = append(out, it)
	}
	return out, nil
}

// ParseSignals maps the four approaches to colors. Missing approaches are red.
func ParseSignals(raw map[string]string) (map[domain.Direction]domain.LightColor, error) {
	out := make(map[domain.Direction]domain.LightColor, 4)
	for _, d := range domain.Directions() {
		out[d] = domain.Red
	}
	for k, v := range raw {
		dir, err := domain.ParseDirection(k)
		if err != nil {
			return nil, &ValidationError{Op: "signals", Reason: err.Error()}
		}
		color, err := domain.ParseLightColor(v)
		if err != nil {
			return nil, &ValidationError{Op: "signals", Reason: err.Error()}
		}
		out[dir] = color
	}
	return out, nil
}

// Normalize builds a full SignalState. Counts and the emergency flag come from
// the response when it carries them, else from status (the intersection's
// entry in the latest live overview), else zero.
func (r SignalStateResponse) Normalize(id string, status *domain.IntersectionStatus) (domain.SignalState, error) {
	lights, err := ParseSignals(r.Signals)
	if err != nil {
		return domain.SignalState{}, err
	}
	st := domain.SignalState{
		IntersectionID: id,
		PerDirection:   lights,
		VehicleCounts:  make(map[domain.Direction]int, 4),
	}
	for _, d := range domain.Directions() {
		st.VehicleCounts[d] = 0
	}

	counts := r.VehicleCounts
	if counts == nil && status != nil {
		counts = status.VehicleCounts
	}
	for k, n := range counts {
		dir, err := domain.ParseDirection(k)
		if err != nil {
			// class-keyed counts have no approach to attach to
			continue
		}
		if n < 0 {
			return domain.SignalState{}, &ValidationError{Op: "signals", Reason: fmt.Sprintf("negative count for %s", dir)}
		}
		st.VehicleCounts[dir] = n
	}

	switch {
	case r.EmergencyMode != nil:
		st.EmergencyMode = *r.EmergencyMode
	case status != nil:
		st.EmergencyMode = status.EmergencyMode
	}
	return st, nil
}
