package recommend

import (
	"regexp"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"github.com/echofind/echofind/internal/domain/track"
)

// CandidateFilter decides whether a recommended track may be presented.
type CandidateFilter interface {
	// Name returns the filter name (used in logs).
	Name() string
	// Keep reports whether the track passes the filter.
	Keep(t track.Track) bool
}

// Chain executes filters in sequence. A track survives only if every filter
// keeps it; candidates are deduplicated by track ID before filtering.
type Chain struct {
	filters []CandidateFilter
}

// NewChain creates a filter chain.
func NewChain(filters ...CandidateFilter) *Chain {
	return &Chain{filters: filters}
}

// Add appends a filter to the chain.
func (c *Chain) Add(f CandidateFilter) {
	c.filters = append(c.filters, f)
}

// Apply returns the tracks that pass every filter, preserving order.
func (c *Chain) Apply(tracks []track.Track) []track.Track {
	seen := make(map[string]bool, len(tracks))
	kept := make([]track.Track, 0, len(tracks))

outer:
	for _, t := range tracks {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true

		for _, f := range c.filters {
			if !f.Keep(t) {
				continue outer
			}
		}
		kept = append(kept, t)
	}
	return kept
}

// PreviewFilter rejects tracks without a preview clip; they cannot be played
// in the swipe loop.
type PreviewFilter struct{}

func (PreviewFilter) Name() string            { return "preview" }
func (PreviewFilter) Keep(t track.Track) bool { return t.HasPreview() }

// SeenFilter rejects tracks whose ID the user has already liked, disliked or
// been presented this session.
type SeenFilter struct {
	excluded map[string]bool
}

// NewSeenFilter creates a SeenFilter over the given exclusion set.
func NewSeenFilter(excluded map[string]bool) *SeenFilter {
	return &SeenFilter{excluded: excluded}
}

func (f *SeenFilter) Name() string            { return "seen" }
func (f *SeenFilter) Keep(t track.Track) bool { return !f.excluded[t.ID] }

// SimilarTitleFilter rejects near-duplicate versions (remasters, live cuts,
// radio edits) of tracks the user already liked or of candidates kept
// earlier in the same run: same main artist and a normalized-title
// Jaro-Winkler similarity at or above the cutoff. Cover versions by other
// artists pass.
type SimilarTitleFilter struct {
	cutoff float64
	metric *metrics.JaroWinkler
	known  []titleKey
}

type titleKey struct {
	title  string
	artist string
}

// NewSimilarTitleFilter creates a SimilarTitleFilter primed with the user's
// liked tracks.
func NewSimilarTitleFilter(cutoff float64, liked []track.Track) *SimilarTitleFilter {
	f := &SimilarTitleFilter{
		cutoff: cutoff,
		metric: metrics.NewJaroWinkler(),
	}
	for _, t := range liked {
		f.known = append(f.known, keyOf(t))
	}
	return f
}

func (f *SimilarTitleFilter) Name() string { return "similar_title" }

func (f *SimilarTitleFilter) Keep(t track.Track) bool {
	k := keyOf(t)
	for _, known := range f.known {
		if known.artist != k.artist {
			continue
		}
		if strutil.Similarity(known.title, k.title, f.metric) >= f.cutoff {
			return false
		}
	}
	f.known = append(f.known, k)
	return true
}

func keyOf(t track.Track) titleKey {
	return titleKey{
		title:  normalizeTitle(t.Name),
		artist: strings.ToLower(t.MainArtist().Name),
	}
}

// Version qualifiers appended after a dash or in brackets, e.g.
// "Song - 2011 Remaster" or "Song (Live at Reading)".
var titleQualifier = regexp.MustCompile(`(?i)\s+[-(\[].*\b(remaster(ed)?|live|radio edit|acoustic|mono|stereo|demo|deluxe|single|version|edit|mix)\b.*$`)

func normalizeTitle(name string) string {
	name = titleQualifier.ReplaceAllString(name, "")
	return strings.ToLower(strings.TrimSpace(name))
}
