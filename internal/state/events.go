package state

import (
	"time"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
)

type Kind string

const (
	KindMode          Kind = "mode"
	KindOverview      Kind = "overview"
	KindIntersections Kind = "intersections"
	KindSignal        Kind = "signal"
	KindMarker        Kind = "marker"
	KindDetection     Kind = "detection"
	KindClock         Kind = "clock"
)

// Event describes one accepted change to the store. Value holds a private
// copy of the new value: domain.Mode, domain.OverviewStats,
// []domain.Intersection, domain.SignalState, domain.Marker,
// domain.DetectionResult or time.Time depending on Kind.
type Event struct {
	Seq    uint64        `json:"seq"`
	Kind   Kind          `json:"kind"`
	Key    string        `json:"key,omitempty"`
	Source domain.Source `json:"source,omitempty"`
	Value  any           `json:"value"`
	At     time.Time     `json:"at"`
}

type Handler func(Event)

// Snapshot is a deep copy of everything the dashboard displays.
type Snapshot struct {
	Seq           uint64                        `json:"seq"`
	Mode          domain.Mode                   `json:"mode"`
	Clock         time.Time                     `json:"clock"`
	Overview      domain.OverviewStats          `json:"overview"`
	Intersections []domain.Intersection         `json:"intersections"`
	Signals       map[string]domain.SignalState `json:"signals"`
	Markers       map[string]domain.Marker      `json:"markers"`
	Detection     *domain.DetectionResult       `json:"detection,omitempty"`
	Sources       map[string]domain.Source      `json:"sources"`
}

// Source keys used in Snapshot.Sources.
const (
	overviewKey      = "overview"
	intersectionsKey = "intersections"
	detectionKey     = "detection"
)

func SignalKey(intersectionID string) string {
	return "signal/" + intersectionID
}
