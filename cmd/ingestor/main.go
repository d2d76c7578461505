package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/config"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/database"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/logger"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/mqttsink"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logger.New(cfg.Environment, cfg.LogLevel)
	if cfg.MQTT.Broker == "" {
		log.Fatal().Msg("MQTT_BROKER is required")
	}

	db, err := database.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	svcs := service.New(db, cfg.MQTT.TopicPrefix)

	mc := cfg.MQTT
	mc.ClientID += "-ingestor"
	client, err := mqttsink.Connect(mc, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		insertCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := svcs.Ingest.FromMQTT(insertCtx, msg.Topic(), msg.Payload()); err != nil {
			log.Error().Err(err).Str("topic", msg.Topic()).Msg("ingest failed")
		}
	}

	for _, topic := range svcs.Ingest.Topics() {
		if token := client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
			log.Fatal().Err(token.Error()).Str("topic", topic).Msg("subscribe failed")
		}
	}

	log.Info().Strs("topics", svcs.Ingest.Topics()).Msg("ingestor running; Ctrl+C to stop")
	<-ctx.Done()
}
