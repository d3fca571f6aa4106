// Package spotify provides a client for the Spotify Web API.
package spotify

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/echofind/echofind/internal/domain/track"
)

const (
	audioFeatureBatch = 100
	trackBatch        = 50
)

// Client is a Spotify API client.
type Client struct {
	client     *spotify.Client
	market     string
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
// RefreshToken is optional; without it the client uses the
// client-credentials grant, which is enough for the public catalog
// endpoints this service calls.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Market       string
	RatePerSec   float64
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify credentials are required")
	}

	httpClient, err := newHTTPClient(ctx, cfg)
	if err != nil {
		return nil, err
	}

	market := cfg.Market
	if market == "" {
		market = "US"
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = 8
	}

	return &Client{
		client:     spotify.New(httpClient),
		market:     market,
		limiter:    rate.NewLimiter(rate.Limit(perSec), 1),
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// newHTTPClient builds an auto-refreshing HTTP client for the configured
// grant: refresh-token flow when a refresh token is present, otherwise the
// client-credentials grant against the accounts token endpoint.
func newHTTPClient(ctx context.Context, cfg Config) (*http.Client, error) {
	if cfg.RefreshToken != "" {
		auth := spotifyauth.New(
			spotifyauth.WithClientID(cfg.ClientID),
			spotifyauth.WithClientSecret(cfg.ClientSecret),
		)
		token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
		return auth.Client(ctx, token), nil
	}

	conf := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := conf.Token(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "client credentials grant failed")
	}
	return spotifyauth.New().Client(ctx, token), nil
}

// GetPlaylistTracks retrieves all tracks from a playlist, dropping episode
// items and tracks without a preview clip.
func (c *Client) GetPlaylistTracks(ctx context.Context, playlistID string) ([]track.Track, error) {
	id := ExtractPlaylistID(playlistID)
	if id == "" {
		return nil, errors.New("invalid playlist reference")
	}

	var tracks []track.Track
	offset := 0
	limit := 100

	for {
		var page *spotify.PlaylistItemPage
		err := c.call(ctx, func() error {
			p, err := c.client.GetPlaylistItems(ctx, spotify.ID(id),
				spotify.Limit(limit),
				spotify.Offset(offset),
				spotify.Market(c.market),
			)
			if err != nil {
				return err
			}
			page = p
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get playlist items")
		}

		for _, item := range page.Items {
			if item.Track.Track == nil || item.Track.Track.ID == "" {
				continue
			}
			t := convertFullTrack(item.Track.Track)
			if t.HasPreview() {
				tracks = append(tracks, t)
			}
		}

		if len(page.Items) < limit {
			break
		}
		offset += limit
	}

	return tracks, nil
}

// GetRecommendations calls the recommendation endpoint with the given seed
// identifiers and optional feature targets. Targets may be nil.
func (c *Client) GetRecommendations(ctx context.Context, seedTracks, seedArtists, seedGenres []string, targets *track.FeatureTargets, limit int) ([]track.Track, error) {
	if len(seedTracks)+len(seedArtists)+len(seedGenres) == 0 {
		return nil, errors.New("at least one seed is required")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	seeds := spotify.Seeds{
		Tracks:  toIDs(seedTracks),
		Artists: toIDs(seedArtists),
		Genres:  seedGenres,
	}

	var attrs *spotify.TrackAttributes
	if !targets.IsEmpty() {
		attrs = spotify.NewTrackAttributes()
		if targets.Danceability != nil {
			attrs = attrs.TargetDanceability(*targets.Danceability)
		}
		if targets.Energy != nil {
			attrs = attrs.TargetEnergy(*targets.Energy)
		}
		if targets.Valence != nil {
			attrs = attrs.TargetValence(*targets.Valence)
		}
	}

	var recs *spotify.Recommendations
	err := c.call(ctx, func() error {
		r, err := c.client.GetRecommendations(ctx, seeds, attrs,
			spotify.Limit(limit),
			spotify.Market(c.market),
		)
		if err != nil {
			return err
		}
		recs = r
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get recommendations")
	}

	tracks := make([]track.Track, 0, len(recs.Tracks))
	for i := range recs.Tracks {
		tracks = append(tracks, convertSimpleTrack(&recs.Tracks[i]))
	}
	return tracks, nil
}

// GetAudioFeatures retrieves audio features for the given track IDs,
// batching at the API maximum of 100. Tracks the API returns no features
// for are absent from the result map.
func (c *Client) GetAudioFeatures(ctx context.Context, trackIDs []string) (map[string]track.AudioFeatures, error) {
	features := make(map[string]track.AudioFeatures, len(trackIDs))

	for start := 0; start < len(trackIDs); start += audioFeatureBatch {
		end := start + audioFeatureBatch
		if end > len(trackIDs) {
			end = len(trackIDs)
		}
		batch := toIDs(trackIDs[start:end])

		var page []*spotify.AudioFeatures
		err := c.call(ctx, func() error {
			f, err := c.client.GetAudioFeatures(ctx, batch...)
			if err != nil {
				return err
			}
			page = f
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get audio features")
		}

		for _, f := range page {
			if f == nil {
				continue
			}
			features[string(f.ID)] = track.AudioFeatures{
				Tempo:        float64(f.Tempo),
				Energy:       float64(f.Energy),
				Valence:      float64(f.Valence),
				Danceability: float64(f.Danceability),
			}
		}
	}

	return features, nil
}

// GetArtistGenres retrieves the genre list of a single artist.
func (c *Client) GetArtistGenres(ctx context.Context, artistID string) ([]string, error) {
	var artist *spotify.FullArtist
	err := c.call(ctx, func() error {
		a, err := c.client.GetArtist(ctx, spotify.ID(artistID))
		if err != nil {
			return err
		}
		artist = a
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get artist")
	}
	return artist.Genres, nil
}

// GetAvailableGenres retrieves the global list of available genre seeds.
func (c *Client) GetAvailableGenres(ctx context.Context) ([]string, error) {
	var genres []string
	err := c.call(ctx, func() error {
		g, err := c.client.GetAvailableGenreSeeds(ctx)
		if err != nil {
			return err
		}
		genres = g
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get available genres")
	}
	return genres, nil
}

// GetTracks hydrates the given IDs to full tracks (popularity is only
// present on the full object), batching at the API maximum of 50.
func (c *Client) GetTracks(ctx context.Context, trackIDs []string) ([]track.Track, error) {
	tracks := make([]track.Track, 0, len(trackIDs))

	for start := 0; start < len(trackIDs); start += trackBatch {
		end := start + trackBatch
		if end > len(trackIDs) {
			end = len(trackIDs)
		}
		batch := toIDs(trackIDs[start:end])

		var page []*spotify.FullTrack
		err := c.call(ctx, func() error {
			t, err := c.client.GetTracks(ctx, batch, spotify.Market(c.market))
			if err != nil {
				return err
			}
			page = t
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get tracks")
		}

		for _, t := range page {
			if t == nil {
				continue
			}
			tracks = append(tracks, convertFullTrack(t))
		}
	}

	return tracks, nil
}

// call waits for the rate limiter, then runs the operation with retries.
func (c *Client) call(ctx context.Context, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.retry(ctx, fn)
}

// retry retries an operation with linear backoff.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// convertFullTrack converts a Spotify FullTrack to the domain Track.
func convertFullTrack(t *spotify.FullTrack) track.Track {
	out := convertSimpleTrack(&t.SimpleTrack)
	out.AlbumName = t.Album.Name
	out.AlbumImageURL = largestImage(t.Album.Images)
	out.Popularity = int(t.Popularity)
	return out
}

// convertSimpleTrack converts a Spotify SimpleTrack to the domain Track.
// Recommendation responses carry simple tracks only, so popularity stays
// zero until hydrated via GetTracks.
func convertSimpleTrack(t *spotify.SimpleTrack) track.Track {
	artists := make([]track.Artist, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, track.Artist{ID: string(a.ID), Name: a.Name})
	}

	return track.Track{
		ID:            string(t.ID),
		Name:          t.Name,
		PreviewURL:    t.PreviewURL,
		AlbumName:     t.Album.Name,
		AlbumImageURL: largestImage(t.Album.Images),
		Artists:       artists,
	}
}

// largestImage returns the first image URL; Spotify orders images widest
// first.
func largestImage(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

func toIDs(ids []string) []spotify.ID {
	out := make([]spotify.ID, len(ids))
	for i, id := range ids {
		out[i] = spotify.ID(id)
	}
	return out
}

// ExtractPlaylistID extracts the playlist ID from a Spotify playlist URL or URI.
func ExtractPlaylistID(input string) string {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "spotify:playlist:") {
		return strings.TrimPrefix(input, "spotify:playlist:")
	}

	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/playlist/") {
		parts := strings.Split(input, "/playlist/")
		if len(parts) >= 2 {
			id := strings.Split(parts[len(parts)-1], "?")[0]
			return strings.TrimRight(id, "/")
		}
	}

	// Assume it's already a playlist ID
	return input
}

// ExtractTrackID extracts the track ID from a Spotify track URL or URI.
func ExtractTrackID(input string) string {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "spotify:track:") {
		return strings.TrimPrefix(input, "spotify:track:")
	}

	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/") {
		parts := strings.Split(input, "/track/")
		if len(parts) >= 2 {
			id := strings.Split(parts[len(parts)-1], "?")[0]
			return strings.TrimRight(id, "/")
		}
	}

	// Assume it's already a track ID
	return input
}
