package connectivity

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/backend"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/state"
)

type fakeChecker struct {
	healthy atomic.Bool
	calls   atomic.Int32
}

func (f *fakeChecker) Health(ctx context.Context) (*backend.HealthResponse, error) {
	f.calls.Add(1)
	if f.healthy.Load() {
		return &backend.HealthResponse{Status: "healthy"}, nil
	}
	return nil, &backend.TransportError{Op: "health", Err: errors.New("connection refused")}
}

type modeRecorder struct {
	mu    sync.Mutex
	modes []domain.Mode
}

func (r *modeRecorder) handle(ev state.Event) {
	r.mu.Lock()
	r.modes = append(r.modes, ev.Value.(domain.Mode))
	r.mu.Unlock()
}

func (r *modeRecorder) get() []domain.Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Mode(nil), r.modes...)
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

func newMonitor(t *testing.T) (*Monitor, *fakeChecker, *state.Store, *modeRecorder, clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	store := state.New(fc)
	t.Cleanup(store.Close)
	rec := &modeRecorder{}
	store.Subscribe(rec.handle, state.KindMode)
	checker := &fakeChecker{}
	m := NewMonitor(checker, store, fc, 5*time.Second, 3*time.Second, zerolog.Nop())
	return m, checker, store, rec, fc
}

func TestProbeEmitsOnlyOnChange(t *testing.T) {
	m, checker, _, rec, _ := newMonitor(t)
	ctx := context.Background()

	checker.healthy.Store(true)
	if got := m.Probe(ctx); got != domain.ModeLive {
		t.Fatalf("Probe() = %s", got)
	}
	m.Probe(ctx)

	// backend goes away
	checker.healthy.Store(false)
	for i := 0; i < 3; i++ {
		if got := m.Probe(ctx); got != domain.ModeOffline {
			t.Fatalf("Probe() = %s", got)
		}
	}

	checker.healthy.Store(true)
	m.Probe(ctx)

	want := []domain.Mode{domain.ModeLive, domain.ModeOffline, domain.ModeLive}
	waitFor(t, "mode events", func() bool { return len(rec.get()) == len(want) })
	time.Sleep(10 * time.Millisecond)
	got := rec.get()
	if len(got) != len(want) {
		t.Fatalf("modes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("modes = %v, want %v", got, want)
		}
	}
	if m.Mode() != domain.ModeLive {
		t.Errorf("Mode() = %s", m.Mode())
	}
}

func TestProbeTimeoutMeansOffline(t *testing.T) {
	fc := clockwork.NewFakeClock()
	store := state.New(fc)
	defer store.Close()
	store.SetMode(domain.ModeLive)

	slow := checkerFunc(func(ctx context.Context) (*backend.HealthResponse, error) {
		<-ctx.Done()
		return nil, &backend.TransportError{Op: "health", Err: ctx.Err()}
	})
	m := NewMonitor(slow, store, fc, time.Second, 10*time.Millisecond, zerolog.Nop())

	if got := m.Probe(context.Background()); got != domain.ModeOffline {
		t.Errorf("Probe() = %s, want OFFLINE", got)
	}
}

type checkerFunc func(ctx context.Context) (*backend.HealthResponse, error)

func (f checkerFunc) Health(ctx context.Context) (*backend.HealthResponse, error) { return f(ctx) }

func TestRunProbesOnTickAndNudge(t *testing.T) {
	m, checker, store, _, fc := newMonitor(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	fc.BlockUntil(1)

	checker.healthy.Store(true)
	fc.Advance(5 * time.Second)
	waitFor(t, "live after tick", func() bool { return store.Mode() == domain.ModeLive })

	checker.healthy.Store(false)
	m.Nudge()
	waitFor(t, "offline after nudge", func() bool { return store.Mode() == domain.ModeOffline })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestNudgeCoalesces(t *testing.T) {
	m, _, _, _, _ := newMonitor(t)
	for i := 0; i < 10; i++ {
		m.Nudge()
	}
	if n := len(m.nudge); n != 1 {
		t.Errorf("pending nudges = %d, want 1", n)
	}
}

func TestMonitorLiveOnPlainHealthResponse(t *testing.T) {
	for _, body := range []string{"", "OK"} {
		t.Run("body="+body, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, body)
			}))
			defer srv.Close()

			fc := clockwork.NewFakeClock()
			store := state.New(fc)
			defer store.Close()
			m := NewMonitor(backend.New(srv.URL, time.Second), store, fc, 5*time.Second, time.Second, zerolog.Nop())

			if got := m.Probe(context.Background()); got != domain.ModeLive {
				t.Fatalf("Probe() = %s, want %s", got, domain.ModeLive)
			}
			if store.Mode() != domain.ModeLive {
				t.Errorf("store mode = %s", store.Mode())
			}
		})
	}
}
