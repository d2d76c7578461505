package fallback

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
)

// Demo ranges used while the backend is unreachable.
const (
	minTotalVehicles  = 150
	maxTotalVehicles  = 349
	maxEmergency      = 2
	demoHealthPct     = 98
	minQueue          = 3
	maxQueue          = 27
	minDetected       = 5
	maxDetected       = 12
	maxEmergencyFound = 1
)

var demoIntersections = []domain.Intersection{
	{
		ID: "INT_001", Name: "Main Street & 5th Avenue", Latitude: 40.7128, Longitude: -74.0060,
		Cameras: map[domain.Direction]string{domain.North: "CAM_N1", domain.South: "CAM_S1", domain.East: "CAM_E1", domain.West: "CAM_W1"},
	},
	{
		ID: "INT_002", Name: "Park Avenue & Madison", Latitude: 40.7150, Longitude: -74.0080,
		Cameras: map[domain.Direction]string{domain.North: "CAM_N2", domain.South: "CAM_S2"},
	},
	{
		ID: "INT_003", Name: "Broadway & 42nd Street", Latitude: 40.7580, Longitude: -73.9855,
		Cameras: map[domain.Direction]string{domain.North: "CAM_N3", domain.South: "CAM_S3", domain.East: "CAM_E3"},
	},
}

var lightColors = []domain.LightColor{domain.Red, domain.Yellow, domain.Green}

// Synthesizer produces plausible demo values. It never touches the network.
type Synthesizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func New() *Synthesizer {
	return &Synthesizer{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeeded returns a deterministic synthesizer for tests.
func NewSeeded(seed uint64) *Synthesizer {
	return &Synthesizer{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// between returns a value in [lo, hi].
func (s *Synthesizer) between(lo, hi int) int {
	return lo + s.rng.IntN(hi-lo+1)
}

func (s *Synthesizer) Overview() domain.OverviewStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return domain.OverviewStats{
		ActiveIntersections: len(demoIntersections),
		TotalVehicles:       s.between(minTotalVehicles, maxTotalVehicles),
		EmergencyVehicles:   s.between(0, maxEmergency),
		SystemHealthPct:     demoHealthPct,
	}
}

// Intersections returns the fixed demo set; identities never change between calls.
func (s *Synthesizer) Intersections() []domain.Intersection {
	return domain.CloneIntersections(demoIntersections)
}

// SignalState picks an independent random color and queue per approach.
// More than one approach may be green.
func (s *Synthesizer) SignalState(intersectionID string) domain.SignalState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := domain.SignalState{
		IntersectionID: intersectionID,
		PerDirection:   make(map[domain.Direction]domain.LightColor, 4),
		VehicleCounts:  make(map[domain.Direction]int, 4),
	}
	for _, d := range domain.Directions() {
		st.PerDirection[d] = lightColors[s.rng.IntN(len(lightColors))]
		st.VehicleCounts[d] = s.between(minQueue, maxQueue)
	}
	return st
}

// Detection fakes an image analysis with a 60/20/20 car/bus/truck split.
func (s *Synthesizer) Detection(intersectionID string, dir domain.Direction, at time.Time) domain.DetectionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.between(minDetected, maxDetected)
	emergency := s.between(0, maxEmergencyFound)

	res := domain.DetectionResult{
		IntersectionID:    intersectionID,
		Direction:         dir,
		TotalVehicles:     total,
		EmergencyVehicles: emergency,
		EmergencyTypes:    []string{},
		VehicleBreakdown: map[string]int{
			"car":   total * 6 / 10,
			"bus":   total * 2 / 10,
			"truck": total * 2 / 10,
		},
		Detections: []domain.Detection{},
		AnalyzedAt: at,
	}
	if emergency > 0 {
		res.EmergencyTypes = append(res.EmergencyTypes, "ambulance")
	}
	return res
}
