package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeedSet_Add(t *testing.T) {
	s := NewSeedSet()

	assert.True(t, s.AddTrack("t1"))
	assert.True(t, s.AddArtist("a1"))
	assert.True(t, s.AddGenre("jazz"))
	assert.Equal(t, 3, s.Count())

	// Duplicates and blanks are dropped.
	assert.False(t, s.AddTrack("t1"))
	assert.False(t, s.AddTrack(""))
	assert.False(t, s.AddGenre("jazz"))
	assert.Equal(t, 3, s.Count())
}

func TestSeedSet_CapsAtFive(t *testing.T) {
	s := NewSeedSet()
	assert.True(t, s.AddTrack("t1"))
	assert.True(t, s.AddTrack("t2"))
	assert.True(t, s.AddArtist("a1"))
	assert.True(t, s.AddArtist("a2"))
	assert.True(t, s.AddGenre("g1"))
	assert.Equal(t, MaxSeeds, s.Count())
	assert.False(t, s.AddTrack("t3"))
	assert.False(t, s.AddArtist("a3"))
	assert.False(t, s.AddGenre("g2"))
	assert.Equal(t, MaxSeeds, s.Count())
}

func TestSeedSet_IsEmpty(t *testing.T) {
	s := NewSeedSet()
	assert.True(t, s.IsEmpty())
	s.AddGenre("pop")
	assert.False(t, s.IsEmpty())
}
