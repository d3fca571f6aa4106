package recommend

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/echofind/echofind/internal/domain/track"
)

// SongStore is the history persistence surface the profile loader reads.
type SongStore interface {
	ListSongs(ctx context.Context, userID string, verdict track.Verdict) ([]track.Song, error)
}

// TrackHydrator resolves stored track IDs back to full tracks. Persisted
// songs keep artists as a display string only, so artist IDs for seeding
// have to come from a fresh lookup.
type TrackHydrator interface {
	GetTracks(ctx context.Context, trackIDs []string) ([]track.Track, error)
}

// ProfileLoader builds recommendation profiles from persisted history.
type ProfileLoader struct {
	songs    SongStore
	hydrator TrackHydrator
}

// NewProfileLoader creates a ProfileLoader.
func NewProfileLoader(songs SongStore, hydrator TrackHydrator) *ProfileLoader {
	return &ProfileLoader{songs: songs, hydrator: hydrator}
}

// Load reads the user's liked and disliked history and hydrates the liked
// tracks. Audio features already persisted alongside a song are carried
// over; all-zero features mean they were never fetched, and the track is
// left bare so the assembler fetches them itself. When the hydration call
// fails the liked list degrades to ID-only tracks, which is enough for
// track seeds and exclusion.
func (l *ProfileLoader) Load(ctx context.Context, userID string, presented map[string]bool) (*Profile, error) {
	liked, err := l.songs.ListSongs(ctx, userID, track.VerdictLiked)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list liked songs")
	}
	disliked, err := l.songs.ListSongs(ctx, userID, track.VerdictDisliked)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list disliked songs")
	}

	profile := &Profile{
		Liked:       l.hydrate(ctx, liked),
		DislikedIDs: make([]string, 0, len(disliked)),
		Presented:   presented,
	}
	for _, s := range disliked {
		profile.DislikedIDs = append(profile.DislikedIDs, s.TrackID)
	}
	if profile.Presented == nil {
		profile.Presented = map[string]bool{}
	}
	return profile, nil
}

func (l *ProfileLoader) hydrate(ctx context.Context, songs []track.Song) []track.Track {
	if len(songs) == 0 {
		return []track.Track{}
	}

	ids := make([]string, 0, len(songs))
	features := make(map[string]track.AudioFeatures, len(songs))
	for _, s := range songs {
		ids = append(ids, s.TrackID)
		if !s.Features.IsZero() {
			features[s.TrackID] = s.Features
		}
	}

	tracks, err := l.hydrator.GetTracks(ctx, ids)
	if err != nil {
		zlog.Warn().Err(err).Msg("failed to hydrate liked tracks")
		return fromSongs(songs)
	}

	hydrated := make([]track.Track, 0, len(tracks))
	seen := make(map[string]bool, len(tracks))
	for _, t := range tracks {
		if f, ok := features[t.ID]; ok {
			t = t.WithFeatures(f)
		}
		hydrated = append(hydrated, t)
		seen[t.ID] = true
	}
	// Tracks Spotify no longer resolves still count toward exclusion.
	for _, s := range songs {
		if !seen[s.TrackID] {
			hydrated = append(hydrated, songTrack(s))
		}
	}
	return hydrated
}

// fromSongs converts persisted songs to tracks without artist IDs.
func fromSongs(songs []track.Song) []track.Track {
	tracks := make([]track.Track, 0, len(songs))
	for _, s := range songs {
		tracks = append(tracks, songTrack(s))
	}
	return tracks
}

func songTrack(s track.Song) track.Track {
	t := track.Track{
		ID:            s.TrackID,
		Name:          s.Title,
		PreviewURL:    s.PreviewURL,
		AlbumImageURL: s.ImageURL,
		Artists:       []track.Artist{{Name: s.Artist}},
		Popularity:    s.Popularity,
	}
	if s.Features.IsZero() {
		return t
	}
	return t.WithFeatures(s.Features)
}
