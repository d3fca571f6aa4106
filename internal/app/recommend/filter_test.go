package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/echofind/echofind/internal/domain/track"
)

func candidate(id, name, artist string) track.Track {
	return track.Track{
		ID:         id,
		Name:       name,
		PreviewURL: "https://p.scdn.co/mp3-preview/" + id,
		Artists:    []track.Artist{{ID: "art-" + artist, Name: artist}},
	}
}

func TestChain_DeduplicatesByID(t *testing.T) {
	chain := NewChain()
	got := chain.Apply([]track.Track{
		candidate("a", "One", "X"),
		candidate("b", "Two", "X"),
		candidate("a", "One", "X"),
	})

	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}

func TestPreviewFilter(t *testing.T) {
	withPreview := candidate("a", "One", "X")
	noPreview := candidate("b", "Two", "X")
	noPreview.PreviewURL = ""

	got := NewChain(PreviewFilter{}).Apply([]track.Track{withPreview, noPreview})
	assert.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestSeenFilter(t *testing.T) {
	excluded := map[string]bool{"liked": true, "presented": true}
	got := NewChain(NewSeenFilter(excluded)).Apply([]track.Track{
		candidate("liked", "One", "X"),
		candidate("fresh", "Two", "X"),
		candidate("presented", "Three", "X"),
	})

	assert.Len(t, got, 1)
	assert.Equal(t, "fresh", got[0].ID)
}

func TestSimilarTitleFilter(t *testing.T) {
	liked := []track.Track{candidate("l1", "Karma Police", "Radiohead")}

	tests := []struct {
		name      string
		candidate track.Track
		wantKept  bool
	}{
		{
			name:      "remaster of a liked track",
			candidate: candidate("c1", "Karma Police - Remastered", "Radiohead"),
			wantKept:  false,
		},
		{
			name:      "live version of a liked track",
			candidate: candidate("c2", "Karma Police (Live)", "Radiohead"),
			wantKept:  false,
		},
		{
			name:      "cover by another artist passes",
			candidate: candidate("c3", "Karma Police", "Brass Ensemble"),
			wantKept:  true,
		},
		{
			name:      "unrelated title passes",
			candidate: candidate("c4", "No Surprises", "Radiohead"),
			wantKept:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewSimilarTitleFilter(0.95, liked)
			assert.Equal(t, tt.wantKept, f.Keep(tt.candidate))
		})
	}
}

func TestSimilarTitleFilter_WithinBatch(t *testing.T) {
	f := NewSimilarTitleFilter(0.95, nil)

	assert.True(t, f.Keep(candidate("c1", "Lotus Flower", "Radiohead")))
	// Near-identical title from the same batch is suppressed.
	assert.False(t, f.Keep(candidate("c2", "Lotus Flower - Live", "Radiohead")))
}
