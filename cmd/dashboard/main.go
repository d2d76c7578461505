package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/backend"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/cloud"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/config"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/engine"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/logger"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/mqttsink"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/presentation"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/service"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logger.New(cfg.Environment, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := backend.New(cfg.BackendURL, cfg.Poll.RequestTimeout)

	var opts []engine.Option
	var notifier *cloud.SNSClient
	if cfg.AWS.Enabled {
		opts, notifier = cloudOptions(ctx, cfg.AWS)
	}

	eng := engine.New(client, cfg.Poll, log.Logger, opts...)

	if notifier != nil {
		alerts := service.NewAlertService(notifier, log.Logger)
		defer eng.Subscribe(alerts.Handle, alerts.Kinds()...)()
	}

	if cfg.MQTT.Broker != "" {
		mc, err := mqttsink.Connect(cfg.MQTT, log.Logger)
		if err != nil {
			log.Warn().Err(err).Msg("mqtt unavailable, history will not be published")
		} else {
			defer mc.Disconnect(250)
			sink := mqttsink.New(mc, cfg.MQTT.TopicPrefix, log.Logger)
			defer eng.Subscribe(sink.Handle, mqttsink.Kinds()...)()
		}
	}

	eng.Start(ctx)

	srv := presentation.New(eng, log.Logger)
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("backend", client.BaseURL()).Msg("dashboard listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Close()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	eng.Wait()
}

// cloudOptions wires the AWS collaborators that are configured. A missing
// resource only disables that collaborator.
func cloudOptions(ctx context.Context, cfg config.AWSConfig) ([]engine.Option, *cloud.SNSClient) {
	awsCfg, err := cloud.LoadConfig(ctx, cfg.Region)
	if err != nil {
		log.Warn().Err(err).Msg("aws config unavailable, cloud services disabled")
		return nil, nil
	}

	var opts []engine.Option
	if archive, err := cloud.NewDetectionArchive(awsCfg, cfg.S3Bucket); err == nil {
		opts = append(opts, engine.WithImageArchive(archive))
	} else {
		log.Info().Err(err).Msg("detection archive disabled")
	}
	if audit, err := cloud.NewCommandAudit(awsCfg, cfg.DynamoDBTable); err == nil {
		opts = append(opts, engine.WithAuditLog(audit))
	} else {
		log.Info().Err(err).Msg("command audit disabled")
	}
	notifier, err := cloud.NewSNSClient(awsCfg, cfg.SNSTopicArn)
	if err != nil {
		log.Info().Err(err).Msg("sns alerts disabled")
		return opts, nil
	}
	return opts, notifier
}
