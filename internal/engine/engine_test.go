package engine

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/backend"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/config"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/fallback"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/state"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func fakeTrafficAPI(down *atomic.Bool) http.Handler {
	mux := http.NewServeMux()
	json := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if down.Load() {
				http.Error(w, `{"error":"maintenance"}`, http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, body)
		}
	}
	mux.HandleFunc("GET /api/health", json(`{"status":"healthy"}`))
	mux.HandleFunc("GET /api/stats/overview", json(`{"intersections":2,"intersection_statuses":[
		{"intersection_id":"INT_001","vehicle_counts":{"north":5,"truck":2}},
		{"intersection_id":"INT_002","vehicle_counts":{"car":3}}]}`))
	mux.HandleFunc("GET /api/intersections", json(`[
		{"id":"INT_001","name":"Main Street & 5th Avenue","latitude":40.7128,"longitude":-74.006,"cameras":{"north":"CAM_N1"}},
		{"id":"INT_002","name":"Park Avenue & Madison","latitude":40.715,"longitude":-74.008,"cameras":{}}]`))
	mux.HandleFunc("GET /api/intersection/INT_001/signal/state", json(`{"intersection_id":"INT_001","signals":{"north":"green","south":"red","east":"red","west":"red"}}`))
	mux.HandleFunc("POST /api/intersection/INT_001/emergency/{dir}", json(`{"status":"ok"}`))
	return mux
}

func pollConfig() config.PollConfig {
	return config.PollConfig{
		ClockTick:      time.Second,
		Overview:       5 * time.Second,
		Signals:        2 * time.Second,
		Intersections:  []string{"INT_001"},
		RequestTimeout: time.Second,
		ProbeInterval:  5 * time.Second,
		ProbeTimeout:   time.Second,
		CommandRevert:  2 * time.Second,
		HistorySize:    10,
	}
}

func TestEngineLiveThenOffline(t *testing.T) {
	var down atomic.Bool
	srv := httptest.NewServer(fakeTrafficAPI(&down))
	defer srv.Close()

	fc := clockwork.NewFakeClock()
	e := New(backend.New(srv.URL+"/api", time.Second), pollConfig(), zerolog.Nop(),
		WithClock(fc), WithSynthesizer(fallback.NewSeeded(9)))

	var modes atomic.Int32
	e.Subscribe(func(state.Event) { modes.Add(1) }, state.KindMode)

	ctx, cancel := context.WithCancel(context.Background())
	e.Start(ctx)

	if e.CurrentMode() != domain.ModeLive {
		t.Fatalf("mode after start = %s", e.CurrentMode())
	}
	waitFor(t, "live data", func() bool {
		snap := e.Snapshot()
		_, ok := snap.Signals["INT_001"]
		return snap.Sources["overview"] == domain.SourceLive && len(snap.Intersections) == 2 && ok
	})

	snap := e.Snapshot()
	if snap.Overview.TotalVehicles != 10 {
		t.Errorf("total vehicles = %d, want 10", snap.Overview.TotalVehicles)
	}
	if st := snap.Signals["INT_001"]; st.PerDirection[domain.North] != domain.Green || st.VehicleCounts[domain.North] != 5 {
		t.Errorf("signal = %+v", st)
	}

	out, err := e.IssueCommand(ctx, domain.CommandRequest{Kind: domain.CommandEmergencyTrigger, IntersectionID: "INT_001", Direction: domain.East})
	if err != nil || !out.Succeeded || out.UsedFallback {
		t.Fatalf("IssueCommand() = %+v, %v", out, err)
	}
	if st := e.Snapshot().Signals["INT_001"]; !st.EmergencyMode || st.PerDirection[domain.East] != domain.Green {
		t.Errorf("after emergency = %+v", st)
	}

	// five tickers (four poll tasks and the monitor) plus the marker revert timer
	fc.BlockUntil(6)
	down.Store(true)
	fc.Advance(5 * time.Second)
	waitFor(t, "offline", func() bool { return e.CurrentMode() == domain.ModeOffline })

	fc.Advance(5 * time.Second)
	waitFor(t, "fallback data", func() bool {
		snap := e.Snapshot()
		return snap.Sources["overview"] == domain.SourceFallback && snap.Sources[state.SignalKey("INT_001")] == domain.SourceFallback
	})
	if o := e.Snapshot().Overview; !o.Valid() || o.ActiveIntersections != 3 {
		t.Errorf("fallback overview = %+v", o)
	}

	out, err = e.IssueCommand(ctx, domain.CommandRequest{Kind: domain.CommandOptimize, IntersectionID: "INT_001"})
	if err != nil || !out.Succeeded || !out.UsedFallback {
		t.Errorf("offline command = %+v, %v", out, err)
	}

	if r := e.History(); len(r.Samples) == 0 {
		t.Error("history recorded no samples")
	}

	waitFor(t, "mode events", func() bool { return modes.Load() == 2 })

	cancel()
	e.Wait()

	if n := modes.Load(); n != 2 {
		t.Errorf("mode events = %d, want 2 (LIVE, OFFLINE)", n)
	}
}
