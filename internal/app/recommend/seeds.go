package recommend

// MaxSeeds is the Spotify recommendation endpoint's seed limit.
const MaxSeeds = 5

// SeedSet is the ephemeral union of identifiers sent to the recommendation
// endpoint. Categories are mutually exclusive and the total is capped at
// MaxSeeds, preferring tracks over artists over genres.
type SeedSet struct {
	Tracks  []string
	Artists []string
	Genres  []string

	used map[string]bool
}

// NewSeedSet creates an empty seed set.
func NewSeedSet() *SeedSet {
	return &SeedSet{used: make(map[string]bool)}
}

// Count returns the total number of seeds across categories.
func (s *SeedSet) Count() int {
	return len(s.Tracks) + len(s.Artists) + len(s.Genres)
}

// IsEmpty reports whether the set holds no seeds.
func (s *SeedSet) IsEmpty() bool {
	return s.Count() == 0
}

// AddTrack adds a track seed. Duplicates and overflow are silently dropped.
func (s *SeedSet) AddTrack(id string) bool {
	if !s.admit(id) {
		return false
	}
	s.Tracks = append(s.Tracks, id)
	return true
}

// AddArtist adds an artist seed. Duplicates and overflow are silently dropped.
func (s *SeedSet) AddArtist(id string) bool {
	if !s.admit(id) {
		return false
	}
	s.Artists = append(s.Artists, id)
	return true
}

// AddGenre adds a genre seed. Duplicates and overflow are silently dropped.
func (s *SeedSet) AddGenre(genre string) bool {
	if !s.admit(genre) {
		return false
	}
	s.Genres = append(s.Genres, genre)
	return true
}

func (s *SeedSet) admit(id string) bool {
	if id == "" || s.Count() >= MaxSeeds || s.used[id] {
		return false
	}
	s.used[id] = true
	return true
}
