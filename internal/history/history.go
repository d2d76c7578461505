package history

import (
	"sync"
	"time"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/state"
)

// Sample is one point of the traffic-flow chart.
type Sample struct {
	At       time.Time            `json:"at"`
	Mode     domain.Mode          `json:"mode"`
	Source   domain.Source        `json:"source"`
	Overview domain.OverviewStats `json:"overview"`
}

// Report is what the charts render: the recent overview series plus the
// vehicle classes seen by every detection so far.
type Report struct {
	Samples   []Sample       `json:"samples"`
	Breakdown map[string]int `json:"breakdown"`
}

// Series keeps the last size overview samples in a ring.
type Series struct {
	mu        sync.Mutex
	ring      []Sample
	next      int
	full      bool
	mode      domain.Mode
	breakdown map[string]int
}

func New(size int) *Series {
	if size <= 0 {
		size = 1
	}
	return &Series{
		ring:      make([]Sample, size),
		mode:      domain.ModeOffline,
		breakdown: make(map[string]int),
	}
}

// Handle is a state.Handler.
func (s *Series) Handle(ev state.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case state.KindMode:
		s.mode = ev.Value.(domain.Mode)
	case state.KindOverview:
		s.ring[s.next] = Sample{At: ev.At, Mode: s.mode, Source: ev.Source, Overview: ev.Value.(domain.OverviewStats)}
		s.next = (s.next + 1) % len(s.ring)
		if s.next == 0 {
			s.full = true
		}
	case state.KindDetection:
		for class, n := range ev.Value.(domain.DetectionResult).VehicleBreakdown {
			if n > 0 {
				s.breakdown[class] += n
			}
		}
	}
}

// Kinds lists the events Handle uses.
func Kinds() []state.Kind {
	return []state.Kind{state.KindMode, state.KindOverview, state.KindDetection}
}

// Samples returns the series oldest first.
func (s *Series) Samples() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.samplesLocked()
}

func (s *Series) samplesLocked() []Sample {
	if !s.full {
		return append([]Sample(nil), s.ring[:s.next]...)
	}
	out := make([]Sample, 0, len(s.ring))
	out = append(out, s.ring[s.next:]...)
	return append(out, s.ring[:s.next]...)
}

func (s *Series) Report() Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := make(map[string]int, len(s.breakdown))
	for k, v := range s.breakdown {
		b[k] = v
	}
	return Report{Samples: s.samplesLocked(), Breakdown: b}
}
