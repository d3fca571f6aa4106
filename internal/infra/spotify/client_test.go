package spotify

import (
	"errors"
	"testing"

	zspotify "github.com/zmb3/spotify/v2"

	"github.com/stretchr/testify/assert"
)

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Spotify URI format",
			input:    "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Spotify URL format",
			input:    "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Spotify URL with query params",
			input:    "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc123",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Plain playlist ID",
			input:    "37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Trailing slash",
			input:    "https://open.spotify.com/playlist/abc123/",
			expected: "abc123",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractPlaylistID(tt.input))
		})
	}
}

func TestExtractTrackID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Spotify URI format",
			input:    "spotify:track:4u7EnebtmKWzUH433cf5Qv",
			expected: "4u7EnebtmKWzUH433cf5Qv",
		},
		{
			name:     "Spotify URL with query params",
			input:    "https://open.spotify.com/track/4u7EnebtmKWzUH433cf5Qv?si=xyz",
			expected: "4u7EnebtmKWzUH433cf5Qv",
		},
		{
			name:     "Plain track ID",
			input:    "4u7EnebtmKWzUH433cf5Qv",
			expected: "4u7EnebtmKWzUH433cf5Qv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractTrackID(tt.input))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "rate limit with 429", err: errors.New("Error 429: rate limit exceeded"), expected: true},
		{name: "server error 503", err: errors.New("spotify: got 503"), expected: true},
		{name: "not found", err: errors.New("Error 404: not found"), expected: false},
		{name: "bad request", err: errors.New("Error 400: invalid id"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryable(tt.err))
		})
	}
}

func TestConvertSimpleTrack(t *testing.T) {
	st := zspotify.SimpleTrack{
		ID:         "t1",
		Name:       "Under Pressure",
		PreviewURL: "https://p.scdn.co/mp3-preview/t1",
		Album: zspotify.SimpleAlbum{
			Name:   "Hot Space",
			Images: []zspotify.Image{{URL: "https://i.scdn.co/image/large"}, {URL: "https://i.scdn.co/image/small"}},
		},
		Artists: []zspotify.SimpleArtist{
			{ID: "a1", Name: "Queen"},
			{ID: "a2", Name: "David Bowie"},
		},
	}

	got := convertSimpleTrack(&st)
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, "Under Pressure", got.Name)
	assert.True(t, got.HasPreview())
	assert.Equal(t, "Hot Space", got.AlbumName)
	assert.Equal(t, "https://i.scdn.co/image/large", got.AlbumImageURL, "widest image wins")
	assert.Equal(t, []string{"a1", "a2"}, got.ArtistIDs())
	assert.Zero(t, got.Popularity, "simple tracks carry no popularity")
}

func TestConvertFullTrack(t *testing.T) {
	ft := zspotify.FullTrack{
		SimpleTrack: zspotify.SimpleTrack{ID: "t1", Name: "Song"},
		Album:       zspotify.SimpleAlbum{Name: "Album", Images: []zspotify.Image{{URL: "https://i.scdn.co/image/x"}}},
		Popularity:  73,
	}

	got := convertFullTrack(&ft)
	assert.Equal(t, 73, got.Popularity)
	assert.Equal(t, "Album", got.AlbumName)
	assert.Equal(t, "https://i.scdn.co/image/x", got.AlbumImageURL)
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(t.Context(), Config{})
	assert.Error(t, err)
}
