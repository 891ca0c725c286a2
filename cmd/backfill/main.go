package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"wanderlust/internal/adapters/nominatim"
	"wanderlust/internal/adapters/observability"
	redisad "wanderlust/internal/adapters/redis"
	"wanderlust/internal/app"
	"wanderlust/internal/shared"
	"wanderlust/internal/storage/mongodb"
)

func main() {
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "wanderlust-backfill")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("geocoder", cfg.GeocoderBase).
		Int("workers", cfg.BackfillWorkers).
		Int("rps", cfg.GeocoderRPS).
		Msg("backfill starting")

	mc, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect failed")
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()
	log.Info().Msg("db ping ok")

	repo := mongodb.New(mc.Database(cfg.MongoDB), cfg.MongoCollection)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()

	geo, err := nominatim.New(nominatim.Config{
		BaseURL:   cfg.GeocoderBase,
		UserAgent: cfg.GeocoderUserAgent,
		Language:  cfg.GeocoderLanguage,
		Timeout:   cfg.GeocoderTimeout,
		RPS:       cfg.GeocoderRPS,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize geocoder")
	}

	rep, err := app.NewBackfillService(geo, repo, cache, cfg.BackfillWorkers).Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("backfill interrupted")
	}
	log.Info().
		Int("scanned", rep.Scanned).
		Int("updated", rep.Updated).
		Int("skipped", rep.Skipped).
		Int("failed", rep.Failed).
		Msg("backfill completed")
}
