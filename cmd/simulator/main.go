package main

import (
	"context"
	"math/rand/v2"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/backend"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/config"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/logger"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/polling"
)

// simulator feeds random vehicle counts into the backend so the dashboard
// has moving data during demos.
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
	targets := cfg.Poll.Intersections
	if len(targets) == 0 {
		targets = []string{polling.DefaultIntersection}
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	sent := 0
	for sent < 100 {
		select {
		case <-ctx.Done():
			log.Info().Int("sent", sent).Msg("simulation interrupted")
			return
		case <-ticker.C:
		}

		id := targets[rand.IntN(len(targets))]
		dirs := domain.Directions()
		update := backend.VehicleCountUpdate{
			Direction:    dirs[rand.IntN(len(dirs))],
			VehicleCount: 3 + rand.IntN(25),
		}
		if rand.IntN(20) == 0 {
			update.EmergencyVehicles = 1
		}
		if err := client.UpdateVehicleCount(ctx, id, update); err != nil {
			log.Warn().Err(err).Str("intersection_id", id).Msg("update failed")
			continue
		}
		sent++
	}
	log.Info().Int("sent", sent).Msg("simulation done")
}
