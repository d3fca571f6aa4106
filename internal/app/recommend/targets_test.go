package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echofind/echofind/internal/domain/track"
)

func TestAverageTargets(t *testing.T) {
	tests := []struct {
		name     string
		features []track.AudioFeatures
		want     *track.FeatureTargets
	}{
		{
			name:     "no features",
			features: nil,
			want:     nil,
		},
		{
			name: "single track",
			features: []track.AudioFeatures{
				{Danceability: 0.6, Energy: 0.8, Valence: 0.4},
			},
			want: &track.FeatureTargets{
				Danceability: ptr(0.6),
				Energy:       ptr(0.8),
				Valence:      ptr(0.4),
			},
		},
		{
			name: "mean of two tracks",
			features: []track.AudioFeatures{
				{Danceability: 0.2, Energy: 0.4, Valence: 1.0},
				{Danceability: 0.6, Energy: 0.8, Valence: 0.0},
			},
			want: &track.FeatureTargets{
				Danceability: ptr(0.4),
				Energy:       ptr(0.6),
				Valence:      ptr(0.5),
			},
		},
		{
			name: "invalid mean omits that target",
			features: []track.AudioFeatures{
				{Danceability: 0.5, Energy: 3.0, Valence: 0.5},
			},
			want: &track.FeatureTargets{
				Danceability: ptr(0.5),
				Energy:       nil,
				Valence:      ptr(0.5),
			},
		},
		{
			name: "all means invalid",
			features: []track.AudioFeatures{
				{Danceability: -1, Energy: 2, Valence: 5},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := averageTargets(tt.features)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assertTarget(t, tt.want.Danceability, got.Danceability)
			assertTarget(t, tt.want.Energy, got.Energy)
			assertTarget(t, tt.want.Valence, got.Valence)
		})
	}
}

func assertTarget(t *testing.T, want, got *float64) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.InDelta(t, *want, *got, 1e-9)
}

func ptr(v float64) *float64 {
	return &v
}
