package mqttsink

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/config"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/state"
)

const (
	publishTimeout = 2 * time.Second
	connectTimeout = 5 * time.Second
)

// Publisher is the part of mqtt.Client the sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Connect dials the broker with automatic reconnects.
func Connect(cfg config.MQTTConfig, log zerolog.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("mqtt connection established")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn().Err(err).Str("broker", cfg.Broker).Msg("mqtt connection lost, will auto-reconnect")
	}

	return connect(mqtt.NewClient(opts), connectTimeout)
}

// connect waits for the first connection. On failure the client is
// disconnected so its retry loop stops.
func connect(client mqtt.Client, timeout time.Duration) (mqtt.Client, error) {
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connection failed: %w", err)
	}
	return client, nil
}

// Sink republishes store events on MQTT so other processes can record them.
type Sink struct {
	pub    Publisher
	prefix string
	log    zerolog.Logger

	mu        sync.Mutex
	published map[string]uint64
	errors    uint64
}

func New(pub Publisher, prefix string, log zerolog.Logger) *Sink {
	return &Sink{
		pub:       pub,
		prefix:    prefix,
		log:       log.With().Str("component", "mqttsink").Logger(),
		published: make(map[string]uint64),
	}
}

// Kinds lists the events the sink forwards.
func Kinds() []state.Kind {
	return []state.Kind{state.KindMode, state.KindOverview, state.KindSignal, state.KindDetection}
}

// Handle is a state.Handler. Publish failures are logged and counted.
func (s *Sink) Handle(ev state.Event) {
	var (
		topic    string
		msg      any
		retained bool
	)
	switch ev.Kind {
	case state.KindMode:
		topic, retained = s.topic(TopicMode), true
		msg = ModeMessage{Seq: ev.Seq, At: ev.At, Mode: ev.Value.(domain.Mode)}
	case state.KindOverview:
		topic = s.topic(TopicOverview)
		msg = OverviewMessage{Seq: ev.Seq, At: ev.At, Source: ev.Source, Overview: ev.Value.(domain.OverviewStats)}
	case state.KindSignal:
		topic = s.topic(TopicSignals) + "/" + ev.Key
		msg = SignalMessage{Seq: ev.Seq, At: ev.At, Source: ev.Source, Signal: ev.Value.(domain.SignalState)}
	case state.KindDetection:
		topic = s.topic(TopicDetections)
		msg = DetectionMessage{Seq: ev.Seq, At: ev.At, Source: ev.Source, Detection: ev.Value.(domain.DetectionResult)}
	default:
		return
	}

	if err := s.publish(topic, retained, msg); err != nil {
		s.mu.Lock()
		s.errors++
		s.mu.Unlock()
		s.log.Warn().Err(err).Str("topic", topic).Msg("publish failed")
		return
	}
	s.mu.Lock()
	s.published[topic]++
	s.mu.Unlock()
}

func (s *Sink) topic(suffix string) string {
	if s.prefix == "" {
		return suffix
	}
	return s.prefix + "/" + suffix
}

func (s *Sink) publish(topic string, retained bool, msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	token := s.pub.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Stats returns publish counts per topic and the error count.
func (s *Sink) Stats() (map[string]uint64, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]uint64, len(s.published))
	for k, v := range s.published {
		out[k] = v
	}
	return out, s.errors
}
