package engine

import (
	"context"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/command"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/config"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/connectivity"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/fallback"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/history"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/polling"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/state"
)

// Backend is everything the engine asks of the traffic-control API.
type Backend interface {
	connectivity.HealthChecker
	polling.Backend
	command.Backend
}

type Option func(*Engine)

func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithSynthesizer(s *fallback.Synthesizer) Option {
	return func(e *Engine) { e.synth = s }
}

func WithAuditLog(a command.AuditLog) Option {
	return func(e *Engine) { e.audit = a }
}

func WithImageArchive(a command.ImageArchive) Option {
	return func(e *Engine) { e.archive = a }
}

// Engine keeps the dashboard state in sync with the backend and falls back
// to demo data while it is unreachable.
type Engine struct {
	cfg   config.PollConfig
	log   zerolog.Logger
	clock clockwork.Clock
	synth *fallback.Synthesizer

	audit   command.AuditLog
	archive command.ImageArchive

	store      *state.Store
	monitor    *connectivity.Monitor
	poller     *polling.Poller
	scheduler  *polling.Scheduler
	dispatcher *command.Dispatcher
	history    *history.Series

	wg sync.WaitGroup
}

func New(b Backend, cfg config.PollConfig, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{cfg: cfg, log: log}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	if e.synth == nil {
		e.synth = fallback.New()
	}

	e.store = state.New(e.clock)
	e.history = history.New(cfg.HistorySize)
	e.store.Subscribe(e.history.Handle, history.Kinds()...)

	e.monitor = connectivity.NewMonitor(b, e.store, e.clock, cfg.ProbeInterval, cfg.ProbeTimeout, log)
	e.poller = polling.NewPoller(b, e.monitor, e.store, e.synth, e.clock, cfg.RequestTimeout, cfg.Intersections, log)
	e.scheduler = polling.NewScheduler(e.clock, log)
	e.scheduler.Add(e.poller.Tasks(cfg)...)

	e.dispatcher = command.New(b, e.monitor, e.store, e.synth, e.clock, command.Config{
		Timeout:     cfg.RequestTimeout,
		RevertDelay: cfg.CommandRevert,
	}, log)
	if e.audit != nil {
		e.dispatcher.SetAuditLog(e.audit)
	}
	if e.archive != nil {
		e.dispatcher.SetImageArchive(e.archive)
	}
	return e
}

// Start probes the backend once, so the first polls already know the mode,
// then starts the monitor and every poll task. Cancel ctx to stop.
func (e *Engine) Start(ctx context.Context) {
	mode := e.monitor.Probe(ctx)
	e.log.Info().Str("mode", string(mode)).Msg("engine starting")

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.monitor.Run(ctx)
	}()
	e.scheduler.Start(ctx)
}

// Wait blocks until all background work has stopped, then closes the store.
func (e *Engine) Wait() {
	e.scheduler.Wait()
	e.wg.Wait()
	e.store.Close()
}

// Subscribe delivers store events of the given kinds (all when none) in
// write order. Call the returned func to unsubscribe.
func (e *Engine) Subscribe(fn state.Handler, kinds ...state.Kind) func() {
	return e.store.Subscribe(fn, kinds...)
}

func (e *Engine) IssueCommand(ctx context.Context, req domain.CommandRequest) (domain.CommandOutcome, error) {
	return e.dispatcher.Dispatch(ctx, req)
}

func (e *Engine) CurrentMode() domain.Mode {
	return e.monitor.Mode()
}

func (e *Engine) Snapshot() state.Snapshot {
	return e.store.Snapshot()
}

func (e *Engine) History() history.Report {
	return e.history.Report()
}
