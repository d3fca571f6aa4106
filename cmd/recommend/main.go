// Package main provides a one-shot recommendation CLI, for inspecting what
// the assembler would serve a user without going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/echofind/echofind/internal/app/recommend"
	"github.com/echofind/echofind/internal/infra/config"
	"github.com/echofind/echofind/internal/infra/logger"
	"github.com/echofind/echofind/internal/infra/spotify"
	"github.com/echofind/echofind/internal/infra/store"
)

var (
	app        = kingpin.New("echofind-recommend", "Assemble recommendations for a user and print them")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	email      = app.Arg("email", "User email").Required().String()
)

func main() {
	_ = godotenv.Load()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	level := "warn"
	if *verbose {
		level = "debug"
	}
	if err := logger.Init(logger.Config{Output: "stderr", Level: level}); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg, *email); err != nil {
		zlog.Fatal().Msgf("Error: %v", err)
	}
}

func run(cfg *config.Config, email string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db, err := store.Open(cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := db.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return err
	}

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

	loader := recommend.NewProfileLoader(db, spotifyClient)
	assembler := recommend.NewAssembler(spotifyClient, recommend.Config{
		Limit:             cfg.Recommend.Limit,
		MaxTrackSeeds:     cfg.Recommend.MaxTrackSeeds,
		MaxArtistSeeds:    cfg.Recommend.MaxArtistSeeds,
		FallbackGenres:    cfg.Recommend.FallbackGenres,
		SimilarityCutoff:  cfg.Recommend.SimilarityCutoff,
		FeatureTrackLimit: cfg.Recommend.FeatureTrackLimit,
	})

	profile, err := loader.Load(ctx, user.ID, nil)
	if err != nil {
		return err
	}

	tracks, err := assembler.Assemble(ctx, profile)
	if err != nil {
		return err
	}

	fmt.Printf("%d recommendations for %s (%d liked, %d disliked)\n\n",
		len(tracks), user.Email, len(profile.Liked), len(profile.DislikedIDs))
	for i, t := range tracks {
		fmt.Printf("%3d. %s - %s\n", i+1, strings.Join(t.ArtistNames(), ", "), t.Name)
	}
	return nil
}
