package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "wanderlust/internal/adapters/http_server"
	minioad "wanderlust/internal/adapters/minio"
	natsad "wanderlust/internal/adapters/nats"
	"wanderlust/internal/adapters/nominatim"
	"wanderlust/internal/adapters/observability"
	redisad "wanderlust/internal/adapters/redis"
	"wanderlust/internal/app"
	"wanderlust/internal/domain"
	"wanderlust/internal/shared"
	"wanderlust/internal/storage/mongodb"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "wanderlust-api")

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// db
	mc, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect failed")
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()
	log.Info().Str("db", cfg.MongoDB).Msg("database connection ok")

	// deps
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

	media, err := minioad.New(ctx, minioad.Config{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		UseSSL:    cfg.MinIOUseSSL,
		Bucket:    cfg.MinIOBucket,
		Folder:    cfg.MediaFolder,
		PublicURL: cfg.MediaPublicURL,
		Timeout:   cfg.UploadTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize media store")
	}

	var events domain.EventPublisher
	if cfg.NATSURL != "" {
		pub, err := natsad.New(cfg.NATSURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer pub.Close()
		events = pub
	} else {
		log.Info().Msg("NATS_URL empty; listing events disabled")
	}

	m := app.NewMutationService(geo, media, repo, cache, events)
	q := app.NewQueryService(repo, cache, cfg.CacheTTL)

	// http
	srv := server.New(log.Logger, 30*time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{M: m, Q: q, MaxUploadBytes: cfg.MaxUploadBytes})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
