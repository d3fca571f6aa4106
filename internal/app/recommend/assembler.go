// Package recommend provides the seed-based recommendation assembler and its
// cache.
package recommend

import (
	"context"
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sort"
	"sync"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/echofind/echofind/internal/domain/track"
)

// SpotifyClient defines the Spotify operations the assembler needs.
type SpotifyClient interface {
	GetRecommendations(ctx context.Context, seedTracks, seedArtists, seedGenres []string, targets *track.FeatureTargets, limit int) ([]track.Track, error)
	GetAudioFeatures(ctx context.Context, trackIDs []string) (map[string]track.AudioFeatures, error)
	GetArtistGenres(ctx context.Context, artistID string) ([]string, error)
	GetAvailableGenres(ctx context.Context) ([]string, error)
}

// Config holds assembler tuning.
type Config struct {
	Limit             int     // recommendation request limit
	MaxTrackSeeds     int     // liked track IDs used as seeds
	MaxArtistSeeds    int     // distinct liked-artist IDs used as seeds
	FallbackGenres    int     // random genre seeds when no history exists
	SimilarityCutoff  float64 // near-duplicate title suppression threshold
	FeatureTrackLimit int     // liked tracks sampled for feature targets
}

// Profile is a user's listening history plus the session-local presented set,
// assembled by a ProfileLoader and consumed by Assemble.
type Profile struct {
	Liked       []track.Track // hydrated liked tracks, newest first
	DislikedIDs []string
	Presented   map[string]bool
}

// Excluded returns the union of liked, disliked and presented track IDs.
func (p *Profile) Excluded() map[string]bool {
	excluded := make(map[string]bool, len(p.Liked)+len(p.DislikedIDs)+len(p.Presented))
	for _, t := range p.Liked {
		excluded[t.ID] = true
	}
	for _, id := range p.DislikedIDs {
		excluded[id] = true
	}
	for id := range p.Presented {
		excluded[id] = true
	}
	return excluded
}

// Assembler builds filtered recommendation candidate lists from a user's
// history.
type Assembler struct {
	spotify SpotifyClient
	cfg     Config
	rng     *rand.Rand

	// Available-genre list, fetched once per process.
	genreMu    sync.Mutex
	genreCache []string
}

// NewAssembler creates an Assembler.
func NewAssembler(client SpotifyClient, cfg Config) *Assembler {
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	if cfg.MaxTrackSeeds <= 0 {
		cfg.MaxTrackSeeds = 2
	}
	if cfg.MaxArtistSeeds <= 0 {
		cfg.MaxArtistSeeds = 2
	}
	if cfg.FallbackGenres <= 0 {
		cfg.FallbackGenres = MaxSeeds
	}
	if cfg.SimilarityCutoff <= 0 {
		cfg.SimilarityCutoff = 0.95
	}
	if cfg.FeatureTrackLimit <= 0 {
		cfg.FeatureTrackLimit = 100
	}

	var seed int64
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(buf[:]))
	} else {
		seed = time.Now().UnixNano()
	}

	return &Assembler{
		spotify: client,
		cfg:     cfg,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Assemble produces candidate tracks for the profile: seeds from the liked
// history (or random genres when there is none), optional feature targets,
// one recommendation call, then the candidate filter chain. Every returned
// track has a preview URL and an ID outside liked, disliked and presented
// sets. HTTP failures of individual enrichment steps degrade to empty
// results for that step; only a missing seed set aborts with no candidates.
func (a *Assembler) Assemble(ctx context.Context, profile *Profile) ([]track.Track, error) {
	seeds, err := a.buildSeeds(ctx, profile.Liked)
	if err != nil {
		return nil, err
	}
	if seeds.IsEmpty() {
		// Seed-less exhaustion: nothing to ask for.
		zlog.Warn().Msg("no recommendation seeds available")
		return []track.Track{}, nil
	}

	targets := a.buildTargets(ctx, profile.Liked)

	candidates, err := a.spotify.GetRecommendations(ctx, seeds.Tracks, seeds.Artists, seeds.Genres, targets, a.cfg.Limit)
	if err != nil {
		return nil, err
	}

	chain := NewChain(
		PreviewFilter{},
		NewSeenFilter(profile.Excluded()),
		NewSimilarTitleFilter(a.cfg.SimilarityCutoff, profile.Liked),
	)
	kept := chain.Apply(candidates)

	zlog.Debug().
		Int("candidates", len(candidates)).
		Int("kept", len(kept)).
		Int("seeds", seeds.Count()).
		Msg("assembled recommendations")
	return kept, nil
}

// buildSeeds assembles up to MaxSeeds identifiers: liked track IDs first,
// then distinct liked-artist IDs, then one aggregated genre. With no liked
// history at all it falls back to random genres from the global list.
func (a *Assembler) buildSeeds(ctx context.Context, liked []track.Track) (*SeedSet, error) {
	seeds := NewSeedSet()

	for _, t := range liked {
		if len(seeds.Tracks) >= a.cfg.MaxTrackSeeds {
			break
		}
		seeds.AddTrack(t.ID)
	}

	var seedArtists []string
	for _, t := range liked {
		if len(seedArtists) >= a.cfg.MaxArtistSeeds {
			break
		}
		id := t.MainArtist().ID
		if id == "" || containsString(seedArtists, id) {
			continue
		}
		if seeds.AddArtist(id) {
			seedArtists = append(seedArtists, id)
		}
	}

	if genre := a.aggregateGenre(ctx, seedArtists); genre != "" {
		seeds.AddGenre(genre)
	}

	if seeds.IsEmpty() {
		return a.fallbackGenreSeeds(ctx)
	}
	return seeds, nil
}

// aggregateGenre fetches each seed artist's genre list and returns the most
// frequent genre. Per-artist failures are logged and skipped.
func (a *Assembler) aggregateGenre(ctx context.Context, artistIDs []string) string {
	counts := make(map[string]int)
	var order []string
	for _, id := range artistIDs {
		genres, err := a.spotify.GetArtistGenres(ctx, id)
		if err != nil {
			zlog.Warn().Err(err).Str("artist", id).Msg("failed to fetch artist genres")
			continue
		}
		for _, g := range genres {
			if counts[g] == 0 {
				order = append(order, g)
			}
			counts[g]++
		}
	}
	if len(order) == 0 {
		return ""
	}

	// Most frequent wins; first seen breaks ties.
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	return order[0]
}

// fallbackGenreSeeds picks random genres from the global available-genre
// list. A fetch failure here aborts with an empty set.
func (a *Assembler) fallbackGenreSeeds(ctx context.Context) (*SeedSet, error) {
	genres, err := a.availableGenres(ctx)
	if err != nil {
		zlog.Warn().Err(err).Msg("failed to fetch available genres")
		return NewSeedSet(), nil
	}

	shuffled := make([]string, len(genres))
	copy(shuffled, genres)
	a.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	seeds := NewSeedSet()
	for _, g := range shuffled {
		if len(seeds.Genres) >= a.cfg.FallbackGenres {
			break
		}
		seeds.AddGenre(g)
	}
	return seeds, nil
}

// availableGenres returns the global genre-seed list, fetching it at most
// once per process.
func (a *Assembler) availableGenres(ctx context.Context) ([]string, error) {
	a.genreMu.Lock()
	defer a.genreMu.Unlock()

	if a.genreCache != nil {
		return a.genreCache, nil
	}
	genres, err := a.spotify.GetAvailableGenres(ctx)
	if err != nil {
		return nil, err
	}
	a.genreCache = genres
	return genres, nil
}

// buildTargets averages the liked tracks' audio features. Features embedded
// on the tracks are used as-is; the rest are fetched in one batch. Any
// failure degrades to no targets.
func (a *Assembler) buildTargets(ctx context.Context, liked []track.Track) *track.FeatureTargets {
	sample := liked
	if len(sample) > a.cfg.FeatureTrackLimit {
		sample = sample[:a.cfg.FeatureTrackLimit]
	}

	var features []track.AudioFeatures
	var missing []string
	for _, t := range sample {
		if t.Features != nil {
			features = append(features, *t.Features)
		} else {
			missing = append(missing, t.ID)
		}
	}

	if len(missing) > 0 {
		fetched, err := a.spotify.GetAudioFeatures(ctx, missing)
		if err != nil {
			zlog.Warn().Err(err).Msg("failed to fetch audio features")
		} else {
			for _, id := range missing {
				if f, ok := fetched[id]; ok {
					features = append(features, f)
				}
			}
		}
	}

	return averageTargets(features)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
