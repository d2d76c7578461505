package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/config"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/database"
	httpHandlers "github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/http"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/logger"
	"github.com/ANIKETSHETTY47/smart-traffic-dashboard/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	logger.New(cfg.Environment, cfg.LogLevel)

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

	app := fiber.New(fiber.Config{ReadTimeout: 10 * time.Second})
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	httpHandlers.Register(app, repository.New(db))

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Warn().Err(err).Msg("api shutdown")
		}
	}()

	log.Info().Str("addr", cfg.APIAddr).Msg("api listening")
	if err := app.Listen(cfg.APIAddr); err != nil {
		log.Error().Err(err).Msg("server exit")
	}
}
