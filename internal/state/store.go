package state

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
)

var ErrInvalidTransition = errors.New("invalid marker transition")

// Store owns the dashboard snapshot. Every write goes through one mutex and
// unchanged writes are dropped without an event.
type Store struct {
	clock clockwork.Clock

	mu     sync.Mutex
	snap   Snapshot
	subs   map[int]*subscriber
	nextID int
	closed bool
}

func New(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		clock: clock,
		snap: Snapshot{
			Mode:     domain.ModeOffline,
			Signals:  make(map[string]domain.SignalState),
			Markers:  make(map[string]domain.Marker),
			Sources:  make(map[string]domain.Source),
			Overview: domain.OverviewStats{SystemHealthPct: 100},
		},
		subs: make(map[int]*subscriber),
	}
}

// Subscribe registers fn for the given kinds (all kinds when none are given).
// Events arrive in write order. The returned func unsubscribes.
func (s *Store) Subscribe(fn Handler, kinds ...Kind) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := newSubscriber(fn, kinds)
	if s.closed {
		sub.close()
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = sub

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		sub.close()
	}
}

// Close stops delivery to every subscriber. Writes still update the snapshot.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, sub := range s.subs {
		sub.close()
		delete(s.subs, id)
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := s.snap
	out.Intersections = domain.CloneIntersections(s.snap.Intersections)
	out.Signals = make(map[string]domain.SignalState, len(s.snap.Signals))
	for k, v := range s.snap.Signals {
		out.Signals[k] = v.Clone()
	}
	out.Markers = make(map[string]domain.Marker, len(s.snap.Markers))
	for k, v := range s.snap.Markers {
		out.Markers[k] = v
	}
	out.Sources = make(map[string]domain.Source, len(s.snap.Sources))
	for k, v := range s.snap.Sources {
		out.Sources[k] = v
	}
	if s.snap.Detection != nil {
		d := s.snap.Detection.Clone()
		out.Detection = &d
	}
	return out
}

func (s *Store) Mode() domain.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Mode
}

func (s *Store) Signal(intersectionID string) (domain.SignalState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.snap.Signals[intersectionID]
	return st.Clone(), ok
}

func (s *Store) Marker(key string) domain.Marker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.snap.Markers[key]; ok {
		return m
	}
	return domain.Marker{Key: key, State: domain.MarkerIdle}
}

func (s *Store) SetMode(m domain.Mode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Mode == m {
		return false
	}
	s.snap.Mode = m
	s.emit(KindMode, "", "", m)
	return true
}

func (s *Store) ReplaceOverview(o domain.OverviewStats, src domain.Source) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putOverview(o, src)
}

func (s *Store) putOverview(o domain.OverviewStats, src domain.Source) bool {
	if s.snap.Overview == o && s.snap.Sources[overviewKey] == src {
		return false
	}
	s.snap.Overview = o
	s.snap.Sources[overviewKey] = src
	s.emit(KindOverview, "", src, o)
	return true
}

func (s *Store) ReplaceIntersections(list []domain.Intersection, src domain.Source) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putIntersections(list, src)
}

func (s *Store) putIntersections(list []domain.Intersection, src domain.Source) bool {
	if reflect.DeepEqual(s.snap.Intersections, list) && s.snap.Sources[intersectionsKey] == src {
		return false
	}
	s.snap.Intersections = domain.CloneIntersections(list)
	s.snap.Sources[intersectionsKey] = src
	s.emit(KindIntersections, "", src, domain.CloneIntersections(list))
	return true
}

func (s *Store) ReplaceSignal(st domain.SignalState, src domain.Source) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putSignal(st, src)
}

// The ReplaceLive* writes apply a live-tagged value only while the mode is
// LIVE, checked under the write lock, so a fetch that finishes after the
// switch to OFFLINE never lands. ok is false when the value was dropped.

func (s *Store) ReplaceLiveOverview(o domain.OverviewStats) (changed, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Mode != domain.ModeLive {
		return false, false
	}
	return s.putOverview(o, domain.SourceLive), true
}

func (s *Store) ReplaceLiveIntersections(list []domain.Intersection) (changed, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Mode != domain.ModeLive {
		return false, false
	}
	return s.putIntersections(list, domain.SourceLive), true
}

func (s *Store) ReplaceLiveSignal(st domain.SignalState) (changed, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Mode != domain.ModeLive {
		return false, false
	}
	return s.putSignal(st, domain.SourceLive), true
}

// UpdateSignal applies fn to the current signal state of one intersection
// while holding the write lock. fn receives a copy and found=false when the
// intersection has no state yet.
func (s *Store) UpdateSignal(intersectionID string, fn func(cur domain.SignalState, found bool) domain.SignalState, src domain.Source) domain.SignalState {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.snap.Signals[intersectionID]
	next := fn(cur.Clone(), ok)
	next.IntersectionID = intersectionID
	s.putSignal(next, src)
	return next.Clone()
}

func (s *Store) putSignal(st domain.SignalState, src domain.Source) bool {
	key := SignalKey(st.IntersectionID)
	if cur, ok := s.snap.Signals[st.IntersectionID]; ok && reflect.DeepEqual(cur, st) && s.snap.Sources[key] == src {
		return false
	}
	s.snap.Signals[st.IntersectionID] = st.Clone()
	s.snap.Sources[key] = src
	s.emit(KindSignal, st.IntersectionID, src, st.Clone())
	return true
}

func (s *Store) SetDetection(r domain.DetectionResult, src domain.Source) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Detection != nil && reflect.DeepEqual(*s.snap.Detection, r) && s.snap.Sources[detectionKey] == src {
		return false
	}
	d := r.Clone()
	s.snap.Detection = &d
	s.snap.Sources[detectionKey] = src
	s.emit(KindDetection, r.IntersectionID, src, r.Clone())
	return true
}

// SetMarker moves a control marker. A marker carrying a new request id may
// only enter PROCESSING; the same request must follow the marker state machine.
func (s *Store) SetMarker(key, requestID string, state domain.MarkerState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.snap.Markers[key]
	if !ok {
		cur = domain.Marker{Key: key, State: domain.MarkerIdle}
	}
	from := cur.State
	if cur.RequestID != requestID {
		from = domain.MarkerIdle
	}
	if !from.CanTransition(state) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, key, from, state)
	}

	m := domain.Marker{Key: key, State: state, RequestID: requestID, UpdatedAt: s.clock.Now()}
	s.snap.Markers[key] = m
	s.emit(KindMarker, key, domain.SourceCommand, m)
	return nil
}

// ResetMarker returns the marker to IDLE only if requestID still owns it and
// it has reached a terminal state.
func (s *Store) ResetMarker(key, requestID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.snap.Markers[key]
	if !ok || cur.RequestID != requestID || !cur.State.Terminal() {
		return false
	}
	m := domain.Marker{Key: key, State: domain.MarkerIdle, UpdatedAt: s.clock.Now()}
	s.snap.Markers[key] = m
	s.emit(KindMarker, key, domain.SourceCommand, m)
	return true
}

func (s *Store) Tick(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap.Clock.Equal(now) {
		return false
	}
	s.snap.Clock = now
	s.emit(KindClock, "", "", now)
	return true
}

// emit must be called with s.mu held.
func (s *Store) emit(kind Kind, key string, src domain.Source, value any) {
	s.snap.Seq++
	ev := Event{Seq: s.snap.Seq, Kind: kind, Key: key, Source: src, Value: value, At: s.clock.Now()}
	for _, sub := range s.subs {
		if sub.wants(kind) {
			sub.push(ev)
		}
	}
}
