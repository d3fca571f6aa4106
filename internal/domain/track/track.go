// Package track provides the Track domain entities.
package track

import (
	"strings"
	"time"
)

// Artist identifies a Spotify artist as embedded in a track.
type Artist struct {
	ID   string // Spotify Artist ID
	Name string // Display name
}

// AudioFeatures holds the Spotify-computed numeric descriptors of a track.
// Energy, valence and danceability are in [0,1]; tempo is in BPM.
type AudioFeatures struct {
	Tempo        float64
	Energy       float64
	Valence      float64
	Danceability float64
}

// IsZero reports whether every feature value is zero. Songs persisted before
// a feature fetch store all-zero columns, so zero means absent, not silent.
func (f AudioFeatures) IsZero() bool {
	return f == AudioFeatures{}
}

// Track represents a Spotify track entity.
// Immutable value fetched from the Spotify API; audio features are attached
// by copy after a follow-up call, never mutated in place.
type Track struct {
	ID            string         // Spotify Track ID
	Name          string         // Track name
	PreviewURL    string         // 30-second preview clip URL (may be empty)
	AlbumName     string         // Album name
	AlbumImageURL string         // Largest album image URL
	Artists       []Artist       // Artists, main artist first
	Popularity    int            // Popularity score (0-100)
	Features      *AudioFeatures // Audio features (nil until fetched)
}

// HasPreview reports whether the track carries a playable preview clip.
// Tracks without one are unusable for the swipe loop and filtered out.
func (t *Track) HasPreview() bool {
	return t.PreviewURL != ""
}

// MainArtist returns the first (main) artist, or a zero Artist.
func (t *Track) MainArtist() Artist {
	if len(t.Artists) == 0 {
		return Artist{}
	}
	return t.Artists[0]
}

// ArtistIDs returns the IDs of all artists on the track, skipping blanks.
func (t *Track) ArtistIDs() []string {
	ids := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if a.ID != "" {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// ArtistNames returns the display names of all artists on the track.
func (t *Track) ArtistNames() []string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return names
}

// WithFeatures returns a copy of the track with audio features attached.
func (t Track) WithFeatures(f AudioFeatures) Track {
	t.Features = &f
	return t
}

// FeatureTargets are optional steering values for the recommendation
// endpoint. Nil fields are omitted from the request.
type FeatureTargets struct {
	Danceability *float64
	Energy       *float64
	Valence      *float64
}

// IsEmpty reports whether no target is set.
func (t *FeatureTargets) IsEmpty() bool {
	return t == nil || (t.Danceability == nil && t.Energy == nil && t.Valence == nil)
}

// Verdict marks which way a track was swiped.
type Verdict string

const (
	VerdictLiked    Verdict = "liked"
	VerdictDisliked Verdict = "disliked"
)

// Valid reports whether v is one of the known verdicts.
func (v Verdict) Valid() bool {
	return v == VerdictLiked || v == VerdictDisliked
}

// Song is the flattened, persisted form of a swiped track. Lossy relative to
// Track: the artist list collapses to a single display string.
type Song struct {
	ID         string  // Document ID (UUID)
	TrackID    string  // Spotify Track ID
	Title      string  // Track name
	Artist     string  // Comma-joined artist display string
	ImageURL   string  // Album image URL
	PreviewURL string  // Preview clip URL
	Popularity int     // Popularity score
	Verdict    Verdict // liked or disliked
	Features   AudioFeatures
	CreatedAt  time.Time
}

// NewSong flattens a track into its persisted form. Missing audio features
// default to zeroes rather than failing.
func NewSong(t Track, verdict Verdict) Song {
	s := Song{
		TrackID:    t.ID,
		Title:      t.Name,
		Artist:     strings.Join(t.ArtistNames(), ", "),
		ImageURL:   t.AlbumImageURL,
		PreviewURL: t.PreviewURL,
		Popularity: t.Popularity,
		Verdict:    verdict,
		CreatedAt:  time.Now(),
	}
	if t.Features != nil {
		s.Features = *t.Features
	}
	return s
}

// Counters holds a user's interaction counters.
type Counters struct {
	Swipes   int
	Likes    int
	Dislikes int
}
