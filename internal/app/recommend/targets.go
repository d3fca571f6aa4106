package recommend

import (
	"github.com/echofind/echofind/internal/domain/track"
)

// averageTargets computes the arithmetic mean of danceability, energy and
// valence over the given feature sets. A mean outside [0,1] is invalid data
// and its target is omitted; with no features at all the result is nil.
func averageTargets(features []track.AudioFeatures) *track.FeatureTargets {
	if len(features) == 0 {
		return nil
	}

	var dance, energy, valence float64
	for _, f := range features {
		dance += f.Danceability
		energy += f.Energy
		valence += f.Valence
	}
	n := float64(len(features))

	targets := &track.FeatureTargets{
		Danceability: unitMean(dance / n),
		Energy:       unitMean(energy / n),
		Valence:      unitMean(valence / n),
	}
	if targets.IsEmpty() {
		return nil
	}
	return targets
}

// unitMean returns the mean when it lies within [0,1], nil otherwise.
func unitMean(v float64) *float64 {
	if v < 0 || v > 1 {
		return nil
	}
	return &v
}
