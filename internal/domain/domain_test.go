package domain

import (
	"errors"
	"testing"
)

func TestAggregateOverview(t *testing.T) {
	tests := []struct {
		name          string
		intersections int
		statuses      []IntersectionStatus
		expected      OverviewStats
	}{
		{
			name:          "class keyed counts are summed",
			intersections: 2,
			statuses: []IntersectionStatus{
				{VehicleCounts: map[string]int{"car": 5, "truck": 2}},
				{VehicleCounts: map[string]int{"car": 3}},
			},
			expected: OverviewStats{ActiveIntersections: 2, TotalVehicles: 10, SystemHealthPct: 100},
		},
		{
			name:          "emergency statuses are counted",
			intersections: 3,
			statuses: []IntersectionStatus{
				{VehicleCounts: map[string]int{"north": 4}, EmergencyMode: true},
				{EmergencyMode: true},
				{},
			},
			expected: OverviewStats{ActiveIntersections: 3, TotalVehicles: 4, EmergencyVehicles: 2, SystemHealthPct: 100},
		},
		{
			name:          "missing statuses lower health",
			intersections: 4,
			statuses:      []IntersectionStatus{{}},
			expected:      OverviewStats{ActiveIntersections: 4, SystemHealthPct: 25},
		},
		{
			name:     "no intersections",
			expected: OverviewStats{SystemHealthPct: 100},
		},
		{
			name:          "extra statuses are capped at 100",
			intersections: 1,
			statuses:      []IntersectionStatus{{}, {}},
			expected:      OverviewStats{ActiveIntersections: 1, SystemHealthPct: 100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := AggregateOverview(tt.intersections, tt.statuses)
			if result != tt.expected {
				t.Errorf("AggregateOverview() = %+v, want %+v", result, tt.expected)
			}
			if !result.Valid() {
				t.Errorf("result %+v is outside display ranges", result)
			}
		})
	}
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		input   string
		want    Direction
		wantErr bool
	}{
		{input: "north", want: North},
		{input: " West ", want: West},
		{input: "EAST", want: East},
		{input: "up", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDirection(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDirection(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDirection(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMarkerTransitions(t *testing.T) {
	allowed := [][2]MarkerState{
		{MarkerIdle, MarkerProcessing},
		{MarkerProcessing, MarkerConfirmed},
		{MarkerProcessing, MarkerFailed},
		{MarkerProcessing, MarkerSimulated},
		{MarkerConfirmed, MarkerIdle},
		{MarkerFailed, MarkerIdle},
		{MarkerSimulated, MarkerIdle},
	}
	states := []MarkerState{MarkerIdle, MarkerProcessing, MarkerConfirmed, MarkerFailed, MarkerSimulated}

	isAllowed := func(from, to MarkerState) bool {
		for _, pair := range allowed {
			if pair[0] == from && pair[1] == to {
				return true
			}
		}
		return false
	}

	for _, from := range states {
		for _, to := range states {
			if got := from.CanTransition(to); got != isAllowed(from, to) {
				t.Errorf("%s -> %s: CanTransition = %v", from, to, got)
			}
		}
	}
}

func TestCommandRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     CommandRequest
		wantErr bool
	}{
		{name: "emergency with direction", req: CommandRequest{Kind: CommandEmergencyTrigger, IntersectionID: "INT_001", Direction: North}},
		{name: "emergency without direction", req: CommandRequest{Kind: CommandEmergencyTrigger, IntersectionID: "INT_001"}, wantErr: true},
		{name: "clear", req: CommandRequest{Kind: CommandEmergencyClear, IntersectionID: "INT_001"}},
		{name: "optimize without intersection", req: CommandRequest{Kind: CommandOptimize}, wantErr: true},
		{name: "detect without image", req: CommandRequest{Kind: CommandDetect, IntersectionID: "INT_001"}, wantErr: true},
		{name: "detect", req: CommandRequest{Kind: CommandDetect, IntersectionID: "INT_001", Image: &ImageUpload{Data: []byte{1}}}},
		{name: "unknown kind", req: CommandRequest{Kind: "REBOOT", IntersectionID: "INT_001"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidCommand) {
				t.Errorf("error %v does not wrap ErrInvalidCommand", err)
			}
		})
	}
}

func TestPriorityTo(t *testing.T) {
	s := SignalState{
		IntersectionID: "INT_001",
		PerDirection:   map[Direction]LightColor{North: Green, East: Green},
		VehicleCounts:  map[Direction]int{North: 3},
	}
	out := s.PriorityTo(West)

	for _, d := range Directions() {
		want := Red
		if d == West {
			want = Green
		}
		if out.PerDirection[d] != want {
			t.Errorf("direction %s = %s, want %s", d, out.PerDirection[d], want)
		}
	}
	if s.PerDirection[North] != Green {
		t.Error("PriorityTo mutated the receiver")
	}
	if out.VehicleCounts[North] != 3 {
		t.Error("vehicle counts were not carried over")
	}
}
