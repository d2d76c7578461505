package history

import (
	"testing"
	"time"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/state"
)

func overviewEvent(total int, at time.Time) state.Event {
	return state.Event{Kind: state.KindOverview, Source: domain.SourceLive, At: at, Value: domain.OverviewStats{TotalVehicles: total}}
}

func TestSeriesKeepsNewestSamples(t *testing.T) {
	s := New(3)
	base := time.Unix(1700000000, 0)
	for i := 1; i <= 5; i++ {
		s.Handle(overviewEvent(i, base.Add(time.Duration(i)*time.Second)))
	}

	got := s.Samples()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	for i, want := range []int{3, 4, 5} {
		if got[i].Overview.TotalVehicles != want {
			t.Errorf("sample %d total = %d, want %d", i, got[i].Overview.TotalVehicles, want)
		}
	}
}

func TestSeriesTagsSamplesWithMode(t *testing.T) {
	s := New(10)
	s.Handle(overviewEvent(1, time.Now()))
	s.Handle(state.Event{Kind: state.KindMode, Value: domain.ModeLive})
	s.Handle(overviewEvent(2, time.Now()))

	got := s.Samples()
	if got[0].Mode != domain.ModeOffline || got[1].Mode != domain.ModeLive {
		t.Errorf("modes = %s, %s", got[0].Mode, got[1].Mode)
	}
}

func TestBreakdownAccumulates(t *testing.T) {
	s := New(1)
	for _, b := range []map[string]int{{"car": 3, "bus": 1}, {"car": 2, "truck": 1}} {
		s.Handle(state.Event{Kind: state.KindDetection, Value: domain.DetectionResult{VehicleBreakdown: b}})
	}

	r := s.Report()
	if r.Breakdown["car"] != 5 || r.Breakdown["bus"] != 1 || r.Breakdown["truck"] != 1 {
		t.Errorf("breakdown = %v", r.Breakdown)
	}
	r.Breakdown["car"] = 0
	if s.Report().Breakdown["car"] != 5 {
		t.Error("report shares the internal map")
	}
}
