package backend

import (
	"time"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
)

type HealthResponse struct {
	Status      string `json:"status"`
	Environment string `json:"environment"`
}

type OverviewResponse struct {
	Intersections        int                         `json:"intersections"`
	IntersectionStatuses []domain.IntersectionStatus `json:"intersection_statuses"`
}

type IntersectionPayload struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Latitude  float64           `json:"latitude"`
	Longitude float64           `json:"longitude"`
	Cameras   map[string]string `json:"cameras"`
}

// SignalStateResponse is the signal poll payload. Vehicle counts and the
// emergency flag are optional; older backends only send signals.
type SignalStateResponse struct {
	IntersectionID string            `json:"intersection_id"`
	Signals        map[string]string `json:"signals"`
	VehicleCounts  map[string]int    `json:"vehicle_counts,omitempty"`
	EmergencyMode  *bool             `json:"emergency_mode,omitempty"`
}

type CommandResponse struct {
	Status             string            `json:"status,omitempty"`
	IntersectionID     string            `json:"intersection_id"`
	EmergencyDirection string            `json:"emergency_direction,omitempty"`
	Signals            map[string]string `json:"signals,omitempty"`
}

type DetectionResponse struct {
	IntersectionID    string             `json:"intersection_id"`
	Direction         string             `json:"direction"`
	TotalVehicles     int                `json:"total_vehicles"`
	VehicleBreakdown  map[string]int     `json:"vehicle_breakdown"`
	EmergencyVehicles int                `json:"emergency_vehicles"`
	EmergencyTypes    []string           `json:"emergency_types"`
	Detections        []domain.Detection `json:"detections"`
}

type VehicleCountUpdate struct {
	Direction         domain.Direction `json:"direction"`
	VehicleCount      int              `json:"vehicle_count"`
	EmergencyVehicles int              `json:"emergency_vehicles"`
}

// Result converts the detection payload into the domain shape.
func (r DetectionResponse) Result(at time.Time) (domain.DetectionResult, error) {
	if r.TotalVehicles < 0 || r.EmergencyVehicles < 0 {
		return domain.DetectionResult{}, &ValidationError{Op: "detection", Reason: "negative vehicle count"}
	}
	out := domain.DetectionResult{
		IntersectionID:    r.IntersectionID,
		TotalVehicles:     r.TotalVehicles,
		EmergencyVehicles: r.EmergencyVehicles,
		EmergencyTypes:    r.EmergencyTypes,
		VehicleBreakdown:  r.VehicleBreakdown,
		Detections:        r.Detections,
		AnalyzedAt:        at,
	}
	if r.Direction != "" {
		dir, err := domain.ParseDirection(r.Direction)
		if err != nil {
			return domain.DetectionResult{}, &ValidationError{Op: "detection", Reason: err.Error()}
		}
		out.Direction = dir
	}
	return out.Clone(), nil
}
