package domain

import (
	"fmt"
	"strings"
	"time"
)

// Mode is the connectivity state that decides where dashboard data comes from.
type Mode string

const (
	ModeLive    Mode = "LIVE"
	ModeOffline Mode = "OFFLINE"
)

// Source tags every value written to the dashboard state.
type Source string

const (
	SourceLive     Source = "live"
	SourceFallback Source = "fallback"
	SourceCommand  Source = "command"
)

type Direction string

const (
	North Direction = "north"
	South Direction = "south"
	East  Direction = "east"
	West  Direction = "west"
)

// Directions returns the four approaches in display order.
func Directions() []Direction {
	return []Direction{North, South, East, West}
}

func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case North, South, East, West:
		return d, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

type LightColor string

const (
	Red    LightColor = "red"
	Yellow LightColor = "yellow"
	Green  LightColor = "green"
)

func ParseLightColor(s string) (LightColor, error) {
	c := LightColor(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case Red, Yellow, Green:
		return c, nil
	}
	return "", fmt.Errorf("unknown light color %q", s)
}

// OverviewStats backs the counter cards at the top of the dashboard.
type OverviewStats struct {
	ActiveIntersections int     `json:"active_intersections"`
	TotalVehicles       int     `json:"total_vehicles"`
	EmergencyVehicles   int     `json:"emergency_vehicles"`
	SystemHealthPct     float64 `json:"system_health_pct"`
}

// Valid reports whether every field is inside its display range.
func (o OverviewStats) Valid() bool {
	return o.ActiveIntersections >= 0 &&
		o.TotalVehicles >= 0 &&
		o.EmergencyVehicles >= 0 &&
		o.SystemHealthPct >= 0 && o.SystemHealthPct <= 100
}

type Intersection struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Latitude  float64              `json:"latitude"`
	Longitude float64              `json:"longitude"`
	Cameras   map[Direction]string `json:"cameras"`
}

func (i Intersection) Clone() Intersection {
	out := i
	if i.Cameras != nil {
		out.Cameras = make(map[Direction]string, len(i.Cameras))
		for k, v := range i.Cameras {
			out.Cameras[k] = v
		}
	}
	return out
}

func CloneIntersections(in []Intersection) []Intersection {
	if in == nil {
		return nil
	}
	out := make([]Intersection, len(in))
	for i, it := range in {
		out[i] = it.Clone()
	}
	return out
}

// SignalState is the complete light and queue picture of one intersection.
// Nothing enforces that only one approach is green.
type SignalState struct {
	IntersectionID string                   `json:"intersection_id"`
	PerDirection   map[Direction]LightColor `json:"per_direction"`
	VehicleCounts  map[Direction]int        `json:"vehicle_counts"`
	EmergencyMode  bool                     `json:"emergency_mode"`
}

func (s SignalState) Clone() SignalState {
	out := s
	if s.PerDirection != nil {
		out.PerDirection = make(map[Direction]LightColor, len(s.PerDirection))
		for k, v := range s.PerDirection {
			out.PerDirection[k] = v
		}
	}
	if s.VehicleCounts != nil {
		out.VehicleCounts = make(map[Direction]int, len(s.VehicleCounts))
		for k, v := range s.VehicleCounts {
			out.VehicleCounts[k] = v
		}
	}
	return out
}

// PriorityTo returns a copy with dir green and every other approach red.
func (s SignalState) PriorityTo(dir Direction) SignalState {
	out := s.Clone()
	out.PerDirection = make(map[Direction]LightColor, 4)
	for _, d := range Directions() {
		out.PerDirection[d] = Red
	}
	out.PerDirection[dir] = Green
	return out
}

// Detection is one object found by the backend's image detector.
type Detection struct {
	Class       string  `json:"class"`
	Confidence  float64 `json:"confidence"`
	IsEmergency bool    `json:"is_emergency"`
}

type DetectionResult struct {
	IntersectionID    string         `json:"intersection_id"`
	Direction         Direction      `json:"direction"`
	TotalVehicles     int            `json:"total_vehicles"`
	EmergencyVehicles int            `json:"emergency_vehicles"`
	EmergencyTypes    []string       `json:"emergency_types"`
	VehicleBreakdown  map[string]int `json:"vehicle_breakdown"`
	Detections        []Detection    `json:"detections"`
	AnalyzedAt        time.Time      `json:"analyzed_at"`
}

func (r DetectionResult) Clone() DetectionResult {
	out := r
	out.EmergencyTypes = append([]string(nil), r.EmergencyTypes...)
	out.Detections = append([]Detection(nil), r.Detections...)
	if r.VehicleBreakdown != nil {
		out.VehicleBreakdown = make(map[string]int, len(r.VehicleBreakdown))
		for k, v := range r.VehicleBreakdown {
			out.VehicleBreakdown[k] = v
		}
	}
	return out
}
