package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BackendURL != "http://localhost:5000/api" {
		t.Errorf("BackendURL = %q", cfg.BackendURL)
	}
	if cfg.Poll.Signals >= cfg.Poll.Overview {
		t.Errorf("signal poll %v should be shorter than overview poll %v", cfg.Poll.Signals, cfg.Poll.Overview)
	}
	if cfg.Poll.CommandRevert != 2*time.Second {
		t.Errorf("CommandRevert = %v, want 2s", cfg.Poll.CommandRevert)
	}
	if cfg.Poll.ProbeTimeout != 3*time.Second {
		t.Errorf("ProbeTimeout = %v, want 3s", cfg.Poll.ProbeTimeout)
	}
	if len(cfg.Poll.Intersections) != 1 || cfg.Poll.Intersections[0] != "INT_001" {
		t.Errorf("Intersections = %v", cfg.Poll.Intersections)
	}
	if cfg.AWS.Enabled {
		t.Error("cloud services should be disabled by default")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://backend:5000/api/")
	t.Setenv("SIGNAL_POLL_INTERVAL", "500ms")
	t.Setenv("SIGNAL_INTERSECTIONS", "INT_001, INT_002,,")
	t.Setenv("MQTT_TOPIC_PREFIX", "/city/traffic/")
	t.Setenv("USE_CLOUD_SERVICES", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BackendURL != "http://backend:5000/api" {
		t.Errorf("BackendURL = %q, trailing slash should be trimmed", cfg.BackendURL)
	}
	if cfg.Poll.Signals != 500*time.Millisecond {
		t.Errorf("Signals = %v", cfg.Poll.Signals)
	}
	if len(cfg.Poll.Intersections) != 2 || cfg.Poll.Intersections[1] != "INT_002" {
		t.Errorf("Intersections = %v", cfg.Poll.Intersections)
	}
	if cfg.MQTT.TopicPrefix != "city/traffic" {
		t.Errorf("TopicPrefix = %q", cfg.MQTT.TopicPrefix)
	}
	if !cfg.AWS.Enabled {
		t.Error("USE_CLOUD_SERVICES=true was ignored")
	}
}

func TestLoadRejectsNonPositiveDurations(t *testing.T) {
	t.Setenv("PROBE_TIMEOUT", "0s")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for zero probe timeout")
	}
}
