package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/state"
)

const alertTimeout = 10 * time.Second

type Notifier interface {
	SendModeAlert(ctx context.Context, mode domain.Mode, at time.Time) (string, error)
	SendEmergencyAlert(ctx context.Context, st domain.SignalState, at time.Time) (string, error)
}

// AlertService notifies operators when connectivity changes and when an
// intersection enters emergency mode.
type AlertService struct {
	notifier Notifier
	log      zerolog.Logger

	mu        sync.Mutex
	emergency map[string]bool
}

func NewAlertService(n Notifier, log zerolog.Logger) *AlertService {
	return &AlertService{
		notifier:  n,
		log:       log.With().Str("component", "alerts").Logger(),
		emergency: make(map[string]bool),
	}
}

func (s *AlertService) Kinds() []state.Kind {
	return []state.Kind{state.KindMode, state.KindSignal}
}

// Handle is a state.Handler.
func (s *AlertService) Handle(ev state.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), alertTimeout)
	defer cancel()

	switch ev.Kind {
	case state.KindMode:
		mode := ev.Value.(domain.Mode)
		if _, err := s.notifier.SendModeAlert(ctx, mode, ev.At); err != nil {
			s.log.Warn().Err(err).Str("mode", string(mode)).Msg("mode alert failed")
		}

	case state.KindSignal:
		st := ev.Value.(domain.SignalState)
		s.mu.Lock()
		was := s.emergency[st.IntersectionID]
		s.emergency[st.IntersectionID] = st.EmergencyMode
		s.mu.Unlock()

		if st.EmergencyMode && !was {
			if _, err := s.notifier.SendEmergencyAlert(ctx, st, ev.At); err != nil {
				s.log.Warn().Err(err).Str("intersection_id", st.IntersectionID).Msg("emergency alert failed")
			}
		}
	}
}
