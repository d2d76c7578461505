package state

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(ev Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func signal(id string, north domain.LightColor) domain.SignalState {
	return domain.SignalState{
		IntersectionID: id,
		PerDirection:   map[domain.Direction]domain.LightColor{domain.North: north, domain.South: domain.Red, domain.East: domain.Red, domain.West: domain.Red},
		VehicleCounts:  map[domain.Direction]int{domain.North: 1, domain.South: 0, domain.East: 0, domain.West: 0},
	}
}

func TestStoreSuppressesNoopWrites(t *testing.T) {
	s := New(clockwork.NewFakeClock())
	rec := &recorder{}
	s.Subscribe(rec.handle)

	o := domain.OverviewStats{ActiveIntersections: 2, TotalVehicles: 10, SystemHealthPct: 100}
	if !s.ReplaceOverview(o, domain.SourceLive) {
		t.Fatal("first write reported no change")
	}
	if s.ReplaceOverview(o, domain.SourceLive) {
		t.Error("identical write reported a change")
	}
	if !s.ReplaceOverview(o, domain.SourceFallback) {
		t.Error("source change should count as a change")
	}
	if s.SetMode(domain.ModeOffline) {
		t.Error("store starts OFFLINE, setting OFFLINE again must be a no-op")
	}
	s.ReplaceSignal(signal("INT_001", domain.Green), domain.SourceLive)
	s.ReplaceSignal(signal("INT_001", domain.Green), domain.SourceLive)

	waitFor(t, "3 events", func() bool { return len(rec.snapshot()) == 3 })
	time.Sleep(10 * time.Millisecond)
	if n := len(rec.snapshot()); n != 3 {
		t.Fatalf("got %d events, want 3", n)
	}
	if seq := s.Snapshot().Seq; seq != 3 {
		t.Errorf("Seq = %d, want 3", seq)
	}
}

func TestStoreDeliversInWriteOrder(t *testing.T) {
	s := New(clockwork.NewFakeClock())
	rec := &recorder{}
	s.Subscribe(rec.handle)

	for i := 1; i <= 50; i++ {
		s.ReplaceOverview(domain.OverviewStats{TotalVehicles: i, SystemHealthPct: 100}, domain.SourceLive)
	}

	waitFor(t, "50 events", func() bool { return len(rec.snapshot()) == 50 })
	for i, ev := range rec.snapshot() {
		if ev.Seq != uint64(i+1) {
			t.Fatalf("event %d has seq %d", i, ev.Seq)
		}
		if got := ev.Value.(domain.OverviewStats).TotalVehicles; got != i+1 {
			t.Fatalf("event %d carries total %d", i, got)
		}
	}
}

func TestStoreKindFilter(t *testing.T) {
	s := New(clockwork.NewFakeClock())
	rec := &recorder{}
	s.Subscribe(rec.handle, KindMode)

	s.ReplaceOverview(domain.OverviewStats{TotalVehicles: 1}, domain.SourceLive)
	s.SetMode(domain.ModeLive)

	waitFor(t, "mode event", func() bool { return len(rec.snapshot()) == 1 })
	if ev := rec.snapshot()[0]; ev.Kind != KindMode || ev.Value != domain.ModeLive {
		t.Errorf("event = %+v", ev)
	}
}

func TestSlowSubscriberDoesNotBlockWriters(t *testing.T) {
	s := New(clockwork.NewFakeClock())
	release := make(chan struct{})
	s.Subscribe(func(Event) { <-release })
	fast := &recorder{}
	s.Subscribe(fast.handle)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.ReplaceOverview(domain.OverviewStats{TotalVehicles: i + 1}, domain.SourceLive)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writer blocked on a slow subscriber")
	}
	waitFor(t, "fast subscriber", func() bool { return len(fast.snapshot()) == 100 })
	close(release)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := New(clockwork.NewFakeClock())
	s.ReplaceSignal(signal("INT_001", domain.Green), domain.SourceLive)
	s.ReplaceIntersections([]domain.Intersection{{ID: "INT_001", Cameras: map[domain.Direction]string{domain.North: "CAM"}}}, domain.SourceLive)

	snap := s.Snapshot()
	snap.Signals["INT_001"].PerDirection[domain.North] = domain.Red
	snap.Intersections[0].Cameras[domain.North] = "changed"

	again := s.Snapshot()
	if again.Signals["INT_001"].PerDirection[domain.North] != domain.Green {
		t.Error("signal state mutated through snapshot")
	}
	if again.Intersections[0].Cameras[domain.North] != "CAM" {
		t.Error("intersection mutated through snapshot")
	}
	if again.Sources[SignalKey("INT_001")] != domain.SourceLive {
		t.Errorf("sources = %v", again.Sources)
	}
}

func TestUpdateSignalIsReadModifyWrite(t *testing.T) {
	s := New(clockwork.NewFakeClock())
	s.ReplaceSignal(signal("INT_001", domain.Green), domain.SourceLive)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.UpdateSignal("INT_001", func(cur domain.SignalState, _ bool) domain.SignalState {
				cur.VehicleCounts[domain.South]++
				return cur
			}, domain.SourceCommand)
		}()
	}
	wg.Wait()

	st, _ := s.Signal("INT_001")
	if st.VehicleCounts[domain.South] != 20 {
		t.Errorf("south count = %d, want 20", st.VehicleCounts[domain.South])
	}
}

func TestMarkerLifecycle(t *testing.T) {
	s := New(clockwork.NewFakeClock())
	const key = "INT_001/optimize"

	if err := s.SetMarker(key, "a", domain.MarkerConfirmed); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("IDLE -> CONFIRMED error = %v", err)
	}
	if err := s.SetMarker(key, "a", domain.MarkerProcessing); err != nil {
		t.Fatal(err)
	}
	if s.ResetMarker(key, "a") {
		t.Error("reset from PROCESSING must be refused")
	}
	if err := s.SetMarker(key, "a", domain.MarkerConfirmed); err != nil {
		t.Fatal(err)
	}

	// a second request takes the control over
	if err := s.SetMarker(key, "b", domain.MarkerProcessing); err != nil {
		t.Fatal(err)
	}
	if s.ResetMarker(key, "a") {
		t.Error("stale request reset the marker")
	}
	if got := s.Marker(key); got.State != domain.MarkerProcessing || got.RequestID != "b" {
		t.Errorf("marker = %+v", got)
	}
	if err := s.SetMarker(key, "b", domain.MarkerFailed); err != nil {
		t.Fatal(err)
	}
	if !s.ResetMarker(key, "b") {
		t.Error("owner could not reset")
	}
	if got := s.Marker(key); got.State != domain.MarkerIdle {
		t.Errorf("marker = %+v", got)
	}
}

func TestCloseStopsDelivery(t *testing.T) {
	s := New(clockwork.NewFakeClock())
	rec := &recorder{}
	s.Subscribe(rec.handle)
	s.SetMode(domain.ModeLive)
	waitFor(t, "first event", func() bool { return len(rec.snapshot()) == 1 })

	s.Close()
	s.SetMode(domain.ModeOffline)
	time.Sleep(10 * time.Millisecond)

	if n := len(rec.snapshot()); n != 1 {
		t.Errorf("got %d events after Close, want 1", n)
	}
	if s.Mode() != domain.ModeOffline {
		t.Error("writes after Close should still update the snapshot")
	}
}

func TestStoreLiveWritesRequireLiveMode(t *testing.T) {
	s := New(clockwork.NewFakeClock())
	defer s.Close()

	stats := domain.OverviewStats{ActiveIntersections: 1, TotalVehicles: 4, SystemHealthPct: 100}
	if _, ok := s.ReplaceLiveOverview(stats); ok {
		t.Fatal("live overview accepted while offline")
	}
	if _, ok := s.ReplaceLiveSignal(signal("INT_001", domain.Green)); ok {
		t.Fatal("live signal accepted while offline")
	}
	if _, ok := s.ReplaceLiveIntersections([]domain.Intersection{{ID: "INT_001"}}); ok {
		t.Fatal("live intersections accepted while offline")
	}
	if snap := s.Snapshot(); snap.Seq != 0 || len(snap.Sources) != 0 {
		t.Fatalf("dropped writes changed the snapshot: %+v", snap)
	}

	s.SetMode(domain.ModeLive)
	changed, ok := s.ReplaceLiveOverview(stats)
	if !ok || !changed {
		t.Fatalf("ReplaceLiveOverview() = %v, %v", changed, ok)
	}
	if changed, ok := s.ReplaceLiveOverview(stats); !ok || changed {
		t.Errorf("repeat write = %v, %v, want unchanged", changed, ok)
	}
	if got := s.Snapshot(); got.Overview != stats || got.Sources["overview"] != domain.SourceLive {
		t.Errorf("overview = %+v (%s)", got.Overview, got.Sources["overview"])
	}
}
