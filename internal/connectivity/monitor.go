package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/backend"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
)

type HealthChecker interface {
	Health(ctx context.Context) (*backend.HealthResponse, error)
}

// ModeStore is where the monitor publishes the mode. SetMode reports whether
// the value actually changed.
type ModeStore interface {
	SetMode(domain.Mode) bool
	Mode() domain.Mode
}

// Monitor owns the LIVE/OFFLINE decision. Only a health probe changes the mode.
type Monitor struct {
	checker  HealthChecker
	store    ModeStore
	clock    clockwork.Clock
	timeout  time.Duration
	interval time.Duration
	log      zerolog.Logger

	probeMu sync.Mutex
	nudge   chan struct{}
}

func NewMonitor(checker HealthChecker, store ModeStore, clock clockwork.Clock, interval, timeout time.Duration, log zerolog.Logger) *Monitor {
	return &Monitor{
		checker:  checker,
		store:    store,
		clock:    clock,
		timeout:  timeout,
		interval: interval,
		log:      log.With().Str("component", "connectivity").Logger(),
		nudge:    make(chan struct{}, 1),
	}
}

func (m *Monitor) Mode() domain.Mode {
	return m.store.Mode()
}

// Probe checks /health once and applies the result. Probes are serialized so
// the last one to finish is the last one started.
func (m *Monitor) Probe(ctx context.Context) domain.Mode {
	m.probeMu.Lock()
	defer m.probeMu.Unlock()

	pctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	mode := domain.ModeLive
	if _, err := m.checker.Health(pctx); err != nil {
		mode = domain.ModeOffline
		m.log.Debug().Err(err).Msg("health probe failed")
	}

	if ctx.Err() != nil {
		// shutting down; a cancelled probe says nothing about the backend
		return m.store.Mode()
	}
	if m.store.SetMode(mode) {
		if mode == domain.ModeLive {
			m.log.Info().Msg("backend reachable, switching to live data")
		} else {
			m.log.Warn().Msg("backend unreachable, switching to demo data")
		}
	}
	return mode
}

// Nudge asks Run for an out-of-cycle probe. Extra nudges while one is pending
// are dropped.
func (m *Monitor) Nudge() {
	select {
	case m.nudge <- struct{}{}:
	default:
	}
}

// Run probes every interval and on each nudge until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.Probe(ctx)
		case <-m.nudge:
			m.Probe(ctx)
		}
	}
}
