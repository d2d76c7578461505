package polling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// Task is one periodic job. Run errors are logged and retried on the next tick.
type Task struct {
	Name   string
	Period time.Duration
	Run    func(ctx context.Context) error
}

// Scheduler runs each task on its own ticker. A task never overlaps itself:
// ticks that fire while it is still running are coalesced into one.
type Scheduler struct {
	clock clockwork.Clock
	log   zerolog.Logger
	tasks []Task
	wg    sync.WaitGroup
}

func NewScheduler(clock clockwork.Clock, log zerolog.Logger) *Scheduler {
	return &Scheduler{clock: clock, log: log.With().Str("component", "scheduler").Logger()}
}

// Add must be called before Start.
func (s *Scheduler) Add(tasks ...Task) {
	s.tasks = append(s.tasks, tasks...)
}

func (s *Scheduler) Start(ctx context.Context) {
	for _, t := range s.tasks {
		s.wg.Add(1)
		go s.loop(ctx, t)
	}
}

// Wait blocks until every task loop has returned after ctx is cancelled.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, t Task) {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(t.Period)
	defer ticker.Stop()

	s.runOnce(ctx, t)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.runOnce(ctx, t)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, t Task) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Str("task", t.Name).Err(fmt.Errorf("panic: %v", r)).Msg("task panicked")
		}
	}()
	if err := t.Run(ctx); err != nil && ctx.Err() == nil {
		s.log.Warn().Str("task", t.Name).Err(err).Msg("task failed")
	}
}
