// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gofiber/fiber/v3"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	"github.com/echofind/echofind/internal/api/rest"
	"github.com/echofind/echofind/internal/app/auth"
	"github.com/echofind/echofind/internal/app/playback"
	"github.com/echofind/echofind/internal/app/recommend"
	"github.com/echofind/echofind/internal/app/swipe"
	"github.com/echofind/echofind/internal/infra/config"
	"github.com/echofind/echofind/internal/infra/logger"
	"github.com/echofind/echofind/internal/infra/spotify"
	"github.com/echofind/echofind/internal/infra/store"
)

var (
	app        = kingpin.New("echofind-server", "echofind music discovery server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	ctx := context.Background()

	db, err := store.Open(cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	zlog.Info().Str("host", cfg.Database.Host).Msg("connected to database")

	spotifyClient, err := spotify.New(ctx, spotify.Config{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RefreshToken: cfg.Spotify.RefreshToken,
		Market:       cfg.Spotify.Market,
		RatePerSec:   cfg.Spotify.RatePerSec,
	})
	if err != nil {
		return err
	}

	cacheStore, err := recommend.NewStore(cfg.Cache.Backend, cfg.Cache.Settings, cfg.Cache.TTL())
	if err != nil {
		return err
	}
	zlog.Info().Str("backend", cfg.Cache.Backend).Msg("recommendation cache ready")

	loader := recommend.NewProfileLoader(db, spotifyClient)
	assembler := recommend.NewAssembler(spotifyClient, recommend.Config{
		Limit:             cfg.Recommend.Limit,
		MaxTrackSeeds:     cfg.Recommend.MaxTrackSeeds,
		MaxArtistSeeds:    cfg.Recommend.MaxArtistSeeds,
		FallbackGenres:    cfg.Recommend.FallbackGenres,
		SimilarityCutoff:  cfg.Recommend.SimilarityCutoff,
		FeatureTrackLimit: cfg.Recommend.FeatureTrackLimit,
	})
	recommender := recommend.NewService(loader, assembler, cacheStore, cfg.Cache.TTL())

	previewDuration := time.Duration(cfg.Session.PreviewSeconds) * time.Second
	sessions := swipe.NewRegistry(
		recommender,
		spotifyClient,
		db,
		func() swipe.Previewer { return playback.NewPlayer(playback.Config{PreviewDuration: previewDuration}) },
		swipe.Config{ReplenishThreshold: cfg.Session.ReplenishThreshold},
	)

	authSvc := auth.NewService(db, time.Duration(cfg.Session.TokenTTLHours)*time.Hour)

	var middleware []fiber.Handler
	if cfg.RateLimit.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			zlog.Warn().Err(err).Msg("rate limit redis unavailable, limiter will fail open")
		}
		limiter := rest.NewRateLimiter(rdb, cfg.RateLimit.MaxReqs, cfg.RateLimit.Window())
		middleware = append(middleware, limiter.Handler())
	}

	server := rest.NewServer(authSvc, db, recommender, sessions, middleware...)

	errCh := make(chan error, 1)
	go func() {
		zlog.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
		errCh <- server.Listen(cfg.Server.Addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		zlog.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
