package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echofind/echofind/internal/domain/track"
)

func previewTrack(id string) track.Track {
	return track.Track{
		ID:         id,
		Name:       "Track " + id,
		PreviewURL: "https://p.scdn.co/mp3-preview/" + id,
	}
}

func nextEvent(t *testing.T, p *Player) Event {
	t.Helper()
	select {
	case e := <-p.Events():
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for playback event")
		return Event{}
	}
}

func TestPlayer_PlayEmitsStarted(t *testing.T) {
	p := NewPlayer(Config{PreviewDuration: time.Minute})
	defer p.Close()

	require.NoError(t, p.Play(previewTrack("t1")))

	e := nextEvent(t, p)
	assert.Equal(t, EventPreviewStarted, e.Type)
	assert.Equal(t, "t1", e.Track.ID)
	assert.Equal(t, StatePlaying, p.GetState())

	current, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, "t1", current.ID)
}

func TestPlayer_RejectsTrackWithoutPreview(t *testing.T) {
	p := NewPlayer(Config{})
	defer p.Close()

	err := p.Play(track.Track{ID: "t1", Name: "Silent"})
	assert.ErrorIs(t, err, ErrNoPreview)
	assert.Equal(t, StateIdle, p.GetState())
}

func TestPlayer_ClipEndsAfterDuration(t *testing.T) {
	p := NewPlayer(Config{PreviewDuration: 200 * time.Millisecond})
	defer p.Close()

	require.NoError(t, p.Play(previewTrack("t1")))
	assert.Equal(t, EventPreviewStarted, nextEvent(t, p).Type)

	e := nextEvent(t, p)
	assert.Equal(t, EventPreviewEnded, e.Type)
	assert.Equal(t, "t1", e.Track.ID)
	assert.Equal(t, StateIdle, p.GetState())
}

func TestPlayer_NewClipCutsPreviousShort(t *testing.T) {
	p := NewPlayer(Config{PreviewDuration: time.Minute})
	defer p.Close()

	require.NoError(t, p.Play(previewTrack("t1")))
	assert.Equal(t, EventPreviewStarted, nextEvent(t, p).Type)

	require.NoError(t, p.Play(previewTrack("t2")))

	stopped := nextEvent(t, p)
	assert.Equal(t, EventPreviewStopped, stopped.Type)
	assert.Equal(t, "t1", stopped.Track.ID)

	started := nextEvent(t, p)
	assert.Equal(t, EventPreviewStarted, started.Type)
	assert.Equal(t, "t2", started.Track.ID)
}

func TestPlayer_StopIsIdempotent(t *testing.T) {
	p := NewPlayer(Config{PreviewDuration: time.Minute})
	defer p.Close()

	require.NoError(t, p.Play(previewTrack("t1")))
	p.Stop()
	p.Stop()

	assert.Equal(t, StateIdle, p.GetState())
	_, ok := p.Current()
	assert.False(t, ok)
}

func TestPlayer_CloseIsIdempotent(t *testing.T) {
	p := NewPlayer(Config{PreviewDuration: time.Minute})

	require.NoError(t, p.Play(previewTrack("t1")))
	p.Close()
	p.Close()

	assert.Equal(t, StateIdle, p.GetState())
	assert.ErrorContains(t, p.Play(previewTrack("t2")), "closed")

	// The event channel drains and closes so consumers can exit.
	for range p.Events() {
	}
}

func TestPlayer_Remaining(t *testing.T) {
	p := NewPlayer(Config{PreviewDuration: time.Minute})
	defer p.Close()

	assert.Equal(t, time.Duration(0), p.Remaining())

	require.NoError(t, p.Play(previewTrack("t1")))
	remaining := p.Remaining()
	assert.Greater(t, remaining, 50*time.Second)
	assert.LessOrEqual(t, remaining, time.Minute)
}
