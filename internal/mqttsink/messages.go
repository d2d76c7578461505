package mqttsink

import (
	"time"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
)

// Topic suffixes under the configured prefix.
const (
	TopicOverview   = "overview"
	TopicMode       = "mode"
	TopicSignals    = "signals"
	TopicDetections = "detections"
)

type OverviewMessage struct {
	Seq      uint64               `json:"seq"`
	At       time.Time            `json:"at"`
	Source   domain.Source        `json:"source"`
	Overview domain.OverviewStats `json:"overview"`
}

type ModeMessage struct {
	Seq  uint64      `json:"seq"`
	At   time.Time   `json:"at"`
	Mode domain.Mode `json:"mode"`
}

type SignalMessage struct {
	Seq    uint64             `json:"seq"`
	At     time.Time          `json:"at"`
	Source domain.Source      `json:"source"`
	Signal domain.SignalState `json:"signal"`
}

type DetectionMessage struct {
	Seq       uint64                 `json:"seq"`
	At        time.Time              `json:"at"`
	Source    domain.Source          `json:"source"`
	Detection domain.DetectionResult `json:"detection"`
}
