package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type PollConfig struct {
	ClockTick      time.Duration
	Overview       time.Duration
	Signals        time.Duration
	Intersections  []string
	RequestTimeout time.Duration
	ProbeInterval  time.Duration
	ProbeTimeout   time.Duration
	CommandRevert  time.Duration
	HistorySize    int
}

type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

type AWSConfig struct {
	Region        string
	S3Bucket      string
	SNSTopicArn   string
	DynamoDBTable string
	Enabled       bool
}

type Config struct {
	Environment string
	LogLevel    string
	BackendURL  string
	HTTPAddr    string
	APIAddr     string
	DBDSN       string
	Poll        PollConfig
	MQTT        MQTTConfig
	AWS         AWSConfig
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")

	// Backend and listeners
	v.SetDefault("BACKEND_URL", "http://localhost:5000/api")
	v.SetDefault("HTTP_ADDR", ":3000")
	v.SetDefault("API_ADDR", ":8080")

	// Polling cadence (signal state needs fresher data than the overview)
	v.SetDefault("CLOCK_TICK_INTERVAL", "1s")
	v.SetDefault("OVERVIEW_POLL_INTERVAL", "5s")
	v.SetDefault("SIGNAL_POLL_INTERVAL", "2s")
	v.SetDefault("SIGNAL_INTERSECTIONS", "INT_001")
	v.SetDefault("REQUEST_TIMEOUT", "5s")
	v.SetDefault("PROBE_INTERVAL", "5s")
	v.SetDefault("PROBE_TIMEOUT", "3s")
	v.SetDefault("COMMAND_REVERT_DELAY", "2s")
	v.SetDefault("HISTORY_SIZE", 120)

	// History persistence and messaging
	v.SetDefault("DB_DSN", "")
	v.SetDefault("MQTT_BROKER", "")
	v.SetDefault("MQTT_CLIENT_ID", "traffic-dashboard")
	v.SetDefault("MQTT_TOPIC_PREFIX", "traffic/dashboard")

	// AWS Configuration
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_S3_BUCKET", "")
	v.SetDefault("AWS_SNS_TOPIC_ARN", "")
	v.SetDefault("AWS_DYNAMODB_TABLE", "")
	v.SetDefault("USE_CLOUD_SERVICES", "false") // Toggle for local vs cloud

	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		LogLevel:    v.GetString("LOG_LEVEL"),
		BackendURL:  strings.TrimRight(v.GetString("BACKEND_URL"), "/"),
		HTTPAddr:    v.GetString("HTTP_ADDR"),
		APIAddr:     v.GetString("API_ADDR"),
		DBDSN:       v.GetString("DB_DSN"),
		Poll: PollConfig{
			ClockTick:      v.GetDuration("CLOCK_TICK_INTERVAL"),
			Overview:       v.GetDuration("OVERVIEW_POLL_INTERVAL"),
			Signals:        v.GetDuration("SIGNAL_POLL_INTERVAL"),
			Intersections:  splitList(v.GetString("SIGNAL_INTERSECTIONS")),
			RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
			ProbeInterval:  v.GetDuration("PROBE_INTERVAL"),
			ProbeTimeout:   v.GetDuration("PROBE_TIMEOUT"),
			CommandRevert:  v.GetDuration("COMMAND_REVERT_DELAY"),
			HistorySize:    v.GetInt("HISTORY_SIZE"),
		},
		MQTT: MQTTConfig{
			Broker:      v.GetString("MQTT_BROKER"),
			ClientID:    v.GetString("MQTT_CLIENT_ID"),
			TopicPrefix: strings.Trim(v.GetString("MQTT_TOPIC_PREFIX"), "/"),
		},
		AWS: AWSConfig{
			Region:        v.GetString("AWS_REGION"),
			S3Bucket:      v.GetString("AWS_S3_BUCKET"),
			SNSTopicArn:   v.GetString("AWS_SNS_TOPIC_ARN"),
			DynamoDBTable: v.GetString("AWS_DYNAMODB_TABLE"),
			Enabled:       v.GetBool("USE_CLOUD_SERVICES"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.BackendURL == "" {
		return fmt.Errorf("BACKEND_URL is required")
	}
	durations := map[string]time.Duration{
		"CLOCK_TICK_INTERVAL":    cfg.Poll.ClockTick,
		"OVERVIEW_POLL_INTERVAL": cfg.Poll.Overview,
		"SIGNAL_POLL_INTERVAL":   cfg.Poll.Signals,
		"REQUEST_TIMEOUT":        cfg.Poll.RequestTimeout,
		"PROBE_INTERVAL":         cfg.Poll.ProbeInterval,
		"PROBE_TIMEOUT":          cfg.Poll.ProbeTimeout,
		"COMMAND_REVERT_DELAY":   cfg.Poll.CommandRevert,
	}
	for key, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", key)
		}
	}
	if cfg.Poll.HistorySize <= 0 {
		return fmt.Errorf("HISTORY_SIZE must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
