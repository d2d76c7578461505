package domain

import "time"

// OverviewSample is one persisted overview reading.
type OverviewSample struct {
	ID                  int64     `db:"id" json:"id"`
	Seq                 int64     `db:"seq" json:"seq"`
	RecordedAt          time.Time `db:"recorded_at" json:"recorded_at"`
	Source              Source    `db:"source" json:"source"`
	ActiveIntersections int       `db:"active_intersections" json:"active_intersections"`
	TotalVehicles       int       `db:"total_vehicles" json:"total_vehicles"`
	EmergencyVehicles   int       `db:"emergency_vehicles" json:"emergency_vehicles"`
	SystemHealthPct     float64   `db:"system_health_pct" json:"system_health_pct"`
}

type ModeChange struct {
	ID        int64     `db:"id" json:"id"`
	Seq       int64     `db:"seq" json:"seq"`
	ChangedAt time.Time `db:"changed_at" json:"changed_at"`
	Mode      Mode      `db:"mode" json:"mode"`
}
