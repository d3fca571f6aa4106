package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echofind/echofind/internal/app/auth"
	"github.com/echofind/echofind/internal/app/playback"
	"github.com/echofind/echofind/internal/app/swipe"
	"github.com/echofind/echofind/internal/domain/track"
	"github.com/echofind/echofind/internal/infra/store"
)

type fakeAuth struct {
	tokens map[string]string // token -> user ID
}

func (f *fakeAuth) SignUp(_ context.Context, email, username, password string) (*auth.Account, error) {
	if email == "" || username == "" || password == "" {
		return nil, auth.ErrMissingFields
	}
	if email == "taken@example.com" {
		return nil, auth.ErrEmailTaken
	}
	return &auth.Account{UserID: "user-1", Email: email, Username: username, Token: "tok-1"}, nil
}

func (f *fakeAuth) SignIn(_ context.Context, email, password string) (*auth.Account, error) {
	if password != "hunter2" {
		return nil, auth.ErrIncorrectCredentials
	}
	return &auth.Account{UserID: "user-1", Email: email, Username: "ana", Token: "tok-1"}, nil
}

func (f *fakeAuth) SignOut(_ context.Context, token string) error {
	delete(f.tokens, token)
	return nil
}

func (f *fakeAuth) Verify(_ context.Context, token string) (string, error) {
	userID, ok := f.tokens[token]
	if !ok {
		return "", auth.ErrInvalidToken
	}
	return userID, nil
}

type fakeLibrary struct {
	songs    []track.Song
	counters track.Counters
}

func (f *fakeLibrary) ListSongs(_ context.Context, _ string, verdict track.Verdict) ([]track.Song, error) {
	out := []track.Song{}
	for _, s := range f.songs {
		if s.Verdict == verdict {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeLibrary) DeleteSong(_ context.Context, _ string, songID string) error {
	for i, s := range f.songs {
		if s.ID == songID {
			f.songs = append(f.songs[:i], f.songs[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeLibrary) DeleteSongsByTitle(_ context.Context, _ string, title string, verdict track.Verdict) (int64, error) {
	var kept []track.Song
	var deleted int64
	for _, s := range f.songs {
		if s.Title == title && s.Verdict == verdict {
			deleted++
			continue
		}
		kept = append(kept, s)
	}
	f.songs = kept
	return deleted, nil
}

func (f *fakeLibrary) Counters(context.Context, string) (track.Counters, error) {
	return f.counters, nil
}

func (f *fakeLibrary) SaveSong(_ context.Context, _ string, song track.Song) (string, error) {
	f.songs = append(f.songs, song)
	return song.TrackID, nil
}

func (f *fakeLibrary) IncrementCounters(_ context.Context, _ string, swipes, likes, dislikes int) (track.Counters, error) {
	f.counters.Swipes += swipes
	f.counters.Likes += likes
	f.counters.Dislikes += dislikes
	return f.counters, nil
}

type fakeRecommender struct {
	tracks []track.Track
	err    error
}

func (f *fakeRecommender) Recommendations(context.Context, string, map[string]bool) ([]track.Track, error) {
	return f.tracks, f.err
}

func (f *fakeRecommender) Refresh(context.Context, string, map[string]bool) ([]track.Track, error) {
	return f.tracks, f.err
}

type nopPlayer struct{}

func (nopPlayer) Play(track.Track) error { return nil }

func (nopPlayer) Stop() {}

func (nopPlayer) Events() <-chan playback.Event { return nil }

func (nopPlayer) Close() {}

type fakePlaylists struct {
	tracks []track.Track
}

func (f *fakePlaylists) GetPlaylistTracks(context.Context, string) ([]track.Track, error) {
	return f.tracks, nil
}

func sampleTracks(ids ...string) []track.Track {
	out := make([]track.Track, 0, len(ids))
	for _, id := range ids {
		out = append(out, track.Track{
			ID:         id,
			Name:       "Track " + id,
			PreviewURL: "https://p.scdn.co/mp3-preview/" + id,
			Artists:    []track.Artist{{ID: "a1", Name: "Alpha"}},
		})
	}
	return out
}

func newTestServer(rec Recommender) (*Server, *fakeLibrary) {
	authSvc := &fakeAuth{tokens: map[string]string{"tok-1": "user-1"}}
	library := &fakeLibrary{}
	if rec == nil {
		rec = &fakeRecommender{tracks: sampleTracks("t1", "t2", "t3", "t4", "t5")}
	}
	registry := swipe.NewRegistry(
		rec.(swipe.Recommender),
		&fakePlaylists{},
		library,
		func() swipe.Previewer { return nopPlayer{} },
		swipe.Config{},
	)
	return NewServer(authSvc, library, rec, registry), library
}

func doJSON(t *testing.T, s *Server, method, path, token string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.App().Test(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(nil)
	resp := doJSON(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFAQ(t *testing.T) {
	s, _ := newTestServer(nil)

	resp := doJSON(t, s, http.MethodGet, "/faq", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	entries := decode[[]FAQEntry](t, resp)
	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.NotEmpty(t, e.Question)
		assert.NotEmpty(t, e.Answer)
	}
}

func TestAuthRequired(t *testing.T) {
	s, _ := newTestServer(nil)

	tests := []struct {
		name   string
		header string
	}{
		{name: "missing header"},
		{name: "not bearer", header: "Basic abc"},
		{name: "unknown token", header: "Bearer nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/songs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := s.App().Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestSignUp(t *testing.T) {
	s, _ := newTestServer(nil)

	resp := doJSON(t, s, http.MethodPost, "/auth/signup", "", signUpRequest{
		Email: "ana@example.com", Username: "ana", Password: "hunter2",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	account := decode[auth.Account](t, resp)
	assert.Equal(t, "tok-1", account.Token)
}

func TestSignUpConflict(t *testing.T) {
	s, _ := newTestServer(nil)
	resp := doJSON(t, s, http.MethodPost, "/auth/signup", "", signUpRequest{
		Email: "taken@example.com", Username: "ana", Password: "hunter2",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	s, _ := newTestServer(nil)

	resp := doJSON(t, s, http.MethodPost, "/auth/login", "", loginRequest{Email: "ana@example.com", Password: "hunter2"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, s, http.MethodPost, "/auth/login", "", loginRequest{Email: "ana@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListSongs(t *testing.T) {
	s, library := newTestServer(nil)
	library.songs = []track.Song{
		{ID: "s1", TrackID: "t1", Title: "One", Verdict: track.VerdictLiked},
		{ID: "s2", TrackID: "t2", Title: "Two", Verdict: track.VerdictDisliked},
	}

	resp := doJSON(t, s, http.MethodGet, "/songs", "tok-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	songs := decode[[]SongResponse](t, resp)
	require.Len(t, songs, 1)
	assert.Equal(t, "One", songs[0].Title)

	resp = doJSON(t, s, http.MethodGet, "/songs?verdict=disliked", "tok-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	songs = decode[[]SongResponse](t, resp)
	require.Len(t, songs, 1)
	assert.Equal(t, "Two", songs[0].Title)

	resp = doJSON(t, s, http.MethodGet, "/songs?verdict=meh", "tok-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteSong(t *testing.T) {
	s, library := newTestServer(nil)
	library.songs = []track.Song{{ID: "s1", TrackID: "t1", Verdict: track.VerdictLiked}}

	resp := doJSON(t, s, http.MethodDelete, "/songs/s1", "tok-1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, s, http.MethodDelete, "/songs/s1", "tok-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteSongsByTitle(t *testing.T) {
	s, library := newTestServer(nil)
	library.songs = []track.Song{
		{ID: "s1", TrackID: "t1", Title: "Creep", Verdict: track.VerdictLiked},
		{ID: "s2", TrackID: "t2", Title: "Creep", Verdict: track.VerdictLiked},
		{ID: "s3", TrackID: "t3", Title: "Creep", Verdict: track.VerdictDisliked},
	}

	resp := doJSON(t, s, http.MethodDelete, "/songs?title=Creep", "tok-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]int64](t, resp)
	assert.Equal(t, int64(2), body["deleted"])
	require.Len(t, library.songs, 1)
	assert.Equal(t, track.VerdictDisliked, library.songs[0].Verdict)

	resp = doJSON(t, s, http.MethodDelete, "/songs", "tok-1", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCounters(t *testing.T) {
	s, library := newTestServer(nil)
	library.counters = track.Counters{Swipes: 5, Likes: 3, Dislikes: 2}

	resp := doJSON(t, s, http.MethodGet, "/counters", "tok-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	counters := decode[CountersResponse](t, resp)
	assert.Equal(t, CountersResponse{Swipes: 5, Likes: 3, Dislikes: 2}, counters)
}

func TestSessionLifecycle(t *testing.T) {
	s, library := newTestServer(nil)

	// No session yet.
	resp := doJSON(t, s, http.MethodGet, "/session", "tok-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Start.
	resp = doJSON(t, s, http.MethodPost, "/session/start", "tok-1", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	session := decode[SessionResponse](t, resp)
	assert.Equal(t, "ready", session.Status)
	require.NotNil(t, session.Current)

	// Swipe right persists a like.
	resp = doJSON(t, s, http.MethodPost, "/session/swipe", "tok-1", swipeRequest{Direction: "right"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, library.songs, 1)
	assert.Equal(t, track.VerdictLiked, library.songs[0].Verdict)

	// Invalid direction.
	resp = doJSON(t, s, http.MethodPost, "/session/swipe", "tok-1", swipeRequest{Direction: "up"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Advance skips without a verdict.
	resp = doJSON(t, s, http.MethodPost, "/session/advance", "tok-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, library.songs, 1)

	// End.
	resp = doJSON(t, s, http.MethodDelete, "/session", "tok-1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = doJSON(t, s, http.MethodGet, "/session", "tok-1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSwipeWithoutSession(t *testing.T) {
	s, _ := newTestServer(nil)
	resp := doJSON(t, s, http.MethodPost, "/session/swipe", "tok-1", swipeRequest{Direction: "left"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRecommendations(t *testing.T) {
	s, _ := newTestServer(&fakeRecommender{tracks: sampleTracks("t1", "t2")})

	resp := doJSON(t, s, http.MethodGet, "/recommendations", "tok-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tracks := decode[[]TrackResponse](t, resp)
	require.Len(t, tracks, 2)
	assert.Equal(t, []string{"Alpha"}, tracks[0].Artists)
}

func TestRecommendationsUpstreamFailure(t *testing.T) {
	s, _ := newTestServer(&fakeRecommender{err: assert.AnError})
	resp := doJSON(t, s, http.MethodGet, "/recommendations", "tok-1", nil)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestLogoutEndsSession(t *testing.T) {
	s, _ := newTestServer(nil)

	resp := doJSON(t, s, http.MethodPost, "/session/start", "tok-1", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, s, http.MethodPost, "/auth/logout", "tok-1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Token is gone now.
	resp = doJSON(t, s, http.MethodGet, "/session", "tok-1", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
