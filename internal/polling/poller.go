package polling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/backend"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/config"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/fallback"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/state"
)

// DefaultIntersection is polled for signals when nothing else is known.
const DefaultIntersection = "INT_001"

const maxSignalFanout = 4

type Backend interface {
	StatsOverview(ctx context.Context) (*backend.OverviewResponse, error)
	Intersections(ctx context.Context) ([]backend.IntersectionPayload, error)
	SignalState(ctx context.Context, intersectionID string) (*backend.SignalStateResponse, error)
}

// ModeSource is the connectivity monitor as seen by pollers.
type ModeSource interface {
	Mode() domain.Mode
	Nudge()
}

// Poller fetches each data source and writes it to the store, switching to
// synthesized values while the backend is OFFLINE.
type Poller struct {
	backend Backend
	mode    ModeSource
	store   *state.Store
	synth   *fallback.Synthesizer
	clock   clockwork.Clock
	timeout time.Duration
	targets []string
	log     zerolog.Logger

	mu           sync.Mutex
	lastOverview *backend.OverviewResponse
}

func NewPoller(b Backend, mode ModeSource, store *state.Store, synth *fallback.Synthesizer, clock clockwork.Clock, timeout time.Duration, targets []string, log zerolog.Logger) *Poller {
	return &Poller{
		backend: b,
		mode:    mode,
		store:   store,
		synth:   synth,
		clock:   clock,
		timeout: timeout,
		targets: append([]string(nil), targets...),
		log:     log.With().Str("component", "poller").Logger(),
	}
}

// Tasks returns the scheduler jobs at the configured cadences.
func (p *Poller) Tasks(cfg config.PollConfig) []Task {
	return []Task{
		{Name: "clock", Period: cfg.ClockTick, Run: p.Tick},
		{Name: "overview", Period: cfg.Overview, Run: p.PollOverview},
		{Name: "intersections", Period: cfg.Overview, Run: p.PollIntersections},
		{Name: "signals", Period: cfg.Signals, Run: p.PollSignals},
	}
}

func (p *Poller) offline() bool {
	return p.mode.Mode() == domain.ModeOffline
}

func (p *Poller) Tick(ctx context.Context) error {
	p.store.Tick(p.clock.Now())
	return nil
}

func (p *Poller) PollOverview(ctx context.Context) error {
	if p.offline() {
		p.store.ReplaceOverview(p.synth.Overview(), domain.SourceFallback)
		return nil
	}

	rctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.backend.StatsOverview(rctx)
	var stats domain.OverviewStats
	if err == nil {
		stats, err = resp.Stats()
	}
	if err != nil {
		return p.fail("overview", err, func() {
			p.store.ReplaceOverview(p.synth.Overview(), domain.SourceFallback)
		})
	}
	if _, ok := p.store.ReplaceLiveOverview(stats); !ok {
		p.log.Debug().Msg("discarding overview fetched before going offline")
		return nil
	}
	p.mu.Lock()
	p.lastOverview = resp
	p.mu.Unlock()
	return nil
}

func (p *Poller) PollIntersections(ctx context.Context) error {
	if p.offline() {
		p.store.ReplaceIntersections(p.synth.Intersections(), domain.SourceFallback)
		return nil
	}

	rctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	payload, err := p.backend.Intersections(rctx)
	var list []domain.Intersection
	if err == nil {
		list, err = backend.NormalizeIntersections(payload)
	}
	if err != nil {
		return p.fail("intersections", err, func() {
			p.store.ReplaceIntersections(p.synth.Intersections(), domain.SourceFallback)
		})
	}
	if _, ok := p.store.ReplaceLiveIntersections(list); !ok {
		p.log.Debug().Msg("discarding intersections fetched before going offline")
	}
	return nil
}

// PollSignals refreshes every target intersection concurrently.
func (p *Poller) PollSignals(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(maxSignalFanout)
	for _, id := range p.signalTargets() {
		g.Go(func() error {
			return p.pollSignal(ctx, id)
		})
	}
	return g.Wait()
}

func (p *Poller) signalTargets() []string {
	if len(p.targets) > 0 {
		return p.targets
	}
	snap := p.store.Snapshot()
	ids := make([]string, 0, len(snap.Intersections))
	for _, it := range snap.Intersections {
		ids = append(ids, it.ID)
	}
	if len(ids) == 0 {
		ids = append(ids, DefaultIntersection)
	}
	return ids
}

func (p *Poller) pollSignal(ctx context.Context, id string) error {
	if p.offline() {
		p.store.ReplaceSignal(p.synth.SignalState(id), domain.SourceFallback)
		return nil
	}

	rctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.backend.SignalState(rctx, id)
	var st domain.SignalState
	if err == nil {
		st, err = resp.Normalize(id, p.overviewStatus(id))
	}
	if err != nil {
		return p.fail("signal "+id, err, func() {
			p.store.ReplaceSignal(p.synth.SignalState(id), domain.SourceFallback)
		})
	}
	if _, ok := p.store.ReplaceLiveSignal(st); !ok {
		p.log.Debug().Str("intersection_id", id).Msg("discarding signal state fetched before going offline")
	}
	return nil
}

func (p *Poller) overviewStatus(id string) *domain.IntersectionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastOverview == nil {
		return nil
	}
	if st, ok := p.lastOverview.StatusFor(id); ok {
		return &st
	}
	return nil
}

// fail handles a failed fetch. Unavailability nudges the monitor and, if the
// mode has already flipped, writes the synthesized value. Anything else keeps
// the previous value.
func (p *Poller) fail(what string, err error, synthesize func()) error {
	if backend.IsUnavailable(err) {
		p.mode.Nudge()
		if p.offline() {
			synthesize()
		}
		return fmt.Errorf("poll %s: %w", what, err)
	}
	return fmt.Errorf("poll %s: keeping previous value: %w", what, err)
}
