package domain

// IntersectionStatus is one entry of the backend's overview payload.
type IntersectionStatus struct {
	IntersectionID string         `json:"intersection_id,omitempty"`
	VehicleCounts  map[string]int `json:"vehicle_counts"`
	EmergencyMode  bool           `json:"emergency_mode"`
}

// AggregateOverview folds per-intersection statuses into the counter cards.
// Every vehicle_counts value is summed regardless of key, so class-keyed and
// direction-keyed counts both contribute.
func AggregateOverview(intersections int, statuses []IntersectionStatus) OverviewStats {
	stats := OverviewStats{ActiveIntersections: max(intersections, 0)}
	for _, st := range statuses {
		for _, n := range st.VehicleCounts {
			if n > 0 {
				stats.TotalVehicles += n
			}
		}
		if st.EmergencyMode {
			stats.EmergencyVehicles++
		}
	}

	stats.SystemHealthPct = 100
	if stats.ActiveIntersections > 0 {
		pct := float64(len(statuses)) / float64(stats.ActiveIntersections) * 100
		stats.SystemHealthPct = min(max(pct, 0), 100)
	}
	return stats
}
