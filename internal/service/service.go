package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/mqttsink"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/repository"
)

type Services struct {
	Repos  *repository.Repos
	Ingest *IngestService
}

func New(db *sqlx.DB, topicPrefix string) *Services {
	repos := repository.New(db)
	return &Services{
		Repos:  repos,
		Ingest: NewIngestService(repos, topicPrefix),
	}
}

// SampleStore persists what the ingestor receives.
type SampleStore interface {
	InsertSample(ctx context.Context, s *domain.OverviewSample) error
	InsertModeChange(ctx context.Context, m *domain.ModeChange) error
}

// IngestService turns dashboard MQTT messages into history rows.
type IngestService struct {
	store  SampleStore
	prefix string
}

func NewIngestService(store SampleStore, prefix string) *IngestService {
	return &IngestService{store: store, prefix: strings.Trim(prefix, "/")}
}

func (s *IngestService) topic(suffix string) string {
	if s.prefix == "" {
		return suffix
	}
	return s.prefix + "/" + suffix
}

// Topics lists the topics the ingestor subscribes to.
func (s *IngestService) Topics() []string {
	return []string{s.topic(mqttsink.TopicOverview), s.topic(mqttsink.TopicMode)}
}

func (s *IngestService) FromMQTT(ctx context.Context, topic string, payload []byte) error {
	switch topic {
	case s.topic(mqttsink.TopicOverview):
		var m mqttsink.OverviewMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return fmt.Errorf("decode overview: %w", err)
		}
		if !m.Overview.Valid() {
			return fmt.Errorf("overview out of range: %+v", m.Overview)
		}
		return s.store.InsertSample(ctx, &domain.OverviewSample{
			Seq:                 int64(m.Seq),
			RecordedAt:          m.At,
			Source:              m.Source,
			ActiveIntersections: m.Overview.ActiveIntersections,
			TotalVehicles:       m.Overview.TotalVehicles,
			EmergencyVehicles:   m.Overview.EmergencyVehicles,
			SystemHealthPct:     m.Overview.SystemHealthPct,
		})

	case s.topic(mqttsink.TopicMode):
		var m mqttsink.ModeMessage
		if err := json.Unmarshal(payload, &m); err != nil {
			return fmt.Errorf("decode mode: %w", err)
		}
		if m.Mode != domain.ModeLive && m.Mode != domain.ModeOffline {
			return fmt.Errorf("unknown mode %q", m.Mode)
		}
		return s.store.InsertModeChange(ctx, &domain.ModeChange{Seq: int64(m.Seq), ChangedAt: m.At, Mode: m.Mode})
	}
	return fmt.Errorf("unexpected topic %q", topic)
}
