// Package swipe runs per-user discovery sessions: a queue of candidate
// tracks consumed by like and dislike swipes, replenished from the
// recommendation service as it drains.
package swipe

import (
	"context"
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/echofind/echofind/internal/app/playback"
	"github.com/echofind/echofind/internal/domain/track"
)

// Errors
var (
	ErrNoCurrentTrack = errors.New("no track to swipe")
	ErrNotReady       = errors.New("session is not ready")
)

// Status represents the session lifecycle.
type Status int

const (
	StatusLoading   Status = iota // Initial batch is being fetched
	StatusReady                   // A track is presented and swipeable
	StatusExhausted               // No candidates left and replenishment came back empty
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Recommender supplies candidate batches, excluding tracks already
// presented in this session.
type Recommender interface {
	Recommendations(ctx context.Context, userID string, presented map[string]bool) ([]track.Track, error)
	Refresh(ctx context.Context, userID string, presented map[string]bool) ([]track.Track, error)
}

// PlaylistSource resolves a playlist into its playable tracks for
// playlist-seeded sessions.
type PlaylistSource interface {
	GetPlaylistTracks(ctx context.Context, playlistID string) ([]track.Track, error)
}

// HistoryStore persists swipe verdicts and counters.
type HistoryStore interface {
	SaveSong(ctx context.Context, userID string, song track.Song) (string, error)
	IncrementCounters(ctx context.Context, userID string, swipes, likes, dislikes int) (track.Counters, error)
}

// Previewer plays a track's preview clip and reports playback events.
// Close releases the player and closes the event channel.
type Previewer interface {
	Play(t track.Track) error
	Stop()
	Events() <-chan playback.Event
	Close()
}

// Config holds session tuning.
type Config struct {
	ReplenishThreshold int // Queue size at or below which a refill starts
}

// Session is one user's swipe session. Swipes are serialized under the
// session lock; replenishment runs in the background with at most one
// fetch in flight.
type Session struct {
	userID string

	mu           sync.Mutex
	status       Status
	current      *track.Track
	queue        []track.Track
	presented    map[string]bool
	replenishing bool

	recommender Recommender
	playlists   PlaylistSource
	store       HistoryStore
	player      Previewer
	cfg         Config
	rng         *rand.Rand

	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession creates a session in the loading state.
func NewSession(userID string, recommender Recommender, playlists PlaylistSource, store HistoryStore, player Previewer, cfg Config) *Session {
	if cfg.ReplenishThreshold <= 0 {
		cfg.ReplenishThreshold = 3
	}

	var seed int64
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(buf[:]))
	} else {
		seed = time.Now().UnixNano()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		userID:      userID,
		status:      StatusLoading,
		presented:   make(map[string]bool),
		recommender: recommender,
		playlists:   playlists,
		store:       store,
		player:      player,
		cfg:         cfg,
		rng:         rand.New(rand.NewSource(seed)),
		ctx:         ctx,
		cancel:      cancel,
	}
	go s.watchPreviews()
	return s
}

// watchPreviews auto-advances past the presented track when its preview clip
// runs to the end.
func (s *Session) watchPreviews() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case e, ok := <-s.player.Events():
			if !ok {
				return
			}
			if e.Type != playback.EventPreviewEnded || e.Track == nil {
				continue
			}
			s.mu.Lock()
			if s.current != nil && s.current.ID == e.Track.ID {
				s.advanceLocked()
			}
			s.mu.Unlock()
		}
	}
}

// Start fetches the initial batch and presents the first track. A non-empty
// playlistID seeds the session from that playlist instead of the
// recommendation service; later refills always come from recommendations.
func (s *Session) Start(ctx context.Context, playlistID string) error {
	var batch []track.Track
	var err error
	if playlistID != "" {
		batch, err = s.playlists.GetPlaylistTracks(ctx, playlistID)
	} else {
		batch, err = s.recommender.Recommendations(ctx, s.userID, nil)
	}
	if err != nil {
		return errors.Wrap(err, "failed to load initial batch")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.enqueueLocked(batch)
	if len(s.queue) == 0 {
		s.status = StatusExhausted
		return nil
	}
	s.status = StatusReady
	s.presentNextLocked()
	if len(s.queue) <= s.cfg.ReplenishThreshold {
		s.replenishLocked()
	}
	return nil
}

// Current returns the presented track, if any.
func (s *Session) Current() (*track.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, false
	}
	return s.current, true
}

// GetStatus returns the session status.
func (s *Session) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// QueueSize returns the number of tracks waiting behind the current one.
func (s *Session) QueueSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// SwipeRight records a like for the presented track and advances.
func (s *Session) SwipeRight(ctx context.Context) (track.Counters, error) {
	return s.swipe(ctx, track.VerdictLiked)
}

// SwipeLeft records a dislike for the presented track and advances.
func (s *Session) SwipeLeft(ctx context.Context) (track.Counters, error) {
	return s.swipe(ctx, track.VerdictDisliked)
}

func (s *Session) swipe(ctx context.Context, verdict track.Verdict) (track.Counters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusLoading {
		return track.Counters{}, ErrNotReady
	}
	if s.current == nil {
		return track.Counters{}, ErrNoCurrentTrack
	}

	swiped := *s.current
	if _, err := s.store.SaveSong(ctx, s.userID, track.NewSong(swiped, verdict)); err != nil {
		return track.Counters{}, errors.Wrap(err, "failed to save swipe")
	}

	likes, dislikes := 0, 0
	if verdict == track.VerdictLiked {
		likes = 1
	} else {
		dislikes = 1
	}
	counters, err := s.store.IncrementCounters(ctx, s.userID, 1, likes, dislikes)
	if err != nil {
		return track.Counters{}, errors.Wrap(err, "failed to update counters")
	}

	s.advanceLocked()
	return counters, nil
}

// Skip advances past the presented track without recording a verdict. The
// track still counts as presented and will not come back this session.
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusLoading {
		return ErrNotReady
	}
	if s.current == nil {
		return ErrNoCurrentTrack
	}
	s.advanceLocked()
	return nil
}

// Replay restarts the presented track's preview clip.
func (s *Session) Replay() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return ErrNoCurrentTrack
	}
	return s.player.Play(*s.current)
}

// Close ends the session, releasing the player and aborting any in-flight
// refill.
func (s *Session) Close() {
	s.cancel()
	s.player.Close()
}

// advanceLocked pops the next track, starts its preview and kicks off a
// refill when the queue runs low. Must be called with lock held.
func (s *Session) advanceLocked() {
	s.current = nil

	if len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.presentLocked(next)
	} else {
		// Nothing to present until a refill lands.
		s.status = StatusLoading
		s.player.Stop()
	}

	if len(s.queue) <= s.cfg.ReplenishThreshold {
		s.replenishLocked()
	}
}

// presentNextLocked presents the head of the queue. Must be called with
// lock held.
func (s *Session) presentNextLocked() {
	if len(s.queue) == 0 {
		return
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	s.presentLocked(next)
}

func (s *Session) presentLocked(t track.Track) {
	s.current = &t
	s.presented[t.ID] = true
	s.status = StatusReady
	if err := s.player.Play(t); err != nil {
		zlog.Warn().Err(err).Str("track", t.ID).Msg("failed to start preview")
	}
}

// enqueueLocked shuffles a batch and appends the tracks not yet presented.
// Must be called with lock held.
func (s *Session) enqueueLocked(batch []track.Track) {
	shuffled := make([]track.Track, len(batch))
	copy(shuffled, batch)
	s.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	queued := make(map[string]bool, len(s.queue)+1)
	for _, t := range s.queue {
		queued[t.ID] = true
	}
	if s.current != nil {
		queued[s.current.ID] = true
	}

	for _, t := range shuffled {
		if !t.HasPreview() || s.presented[t.ID] || queued[t.ID] {
			continue
		}
		queued[t.ID] = true
		s.queue = append(s.queue, t)
	}
}

// replenishLocked starts a background refill unless one is already in
// flight. Must be called with lock held.
func (s *Session) replenishLocked() {
	if s.replenishing {
		return
	}
	s.replenishing = true

	// Exclude everything presented or already waiting in the queue.
	presented := make(map[string]bool, len(s.presented)+len(s.queue)+1)
	for id := range s.presented {
		presented[id] = true
	}
	for _, t := range s.queue {
		presented[t.ID] = true
	}
	if s.current != nil {
		presented[s.current.ID] = true
	}

	go func() {
		batch, err := s.recommender.Refresh(s.ctx, s.userID, presented)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.replenishing = false

		if err != nil {
			if !errors.Is(err, context.Canceled) {
				zlog.Warn().Err(err).Str("user_id", s.userID).Msg("replenishment failed")
			}
			if s.current == nil && len(s.queue) == 0 {
				s.status = StatusExhausted
			}
			return
		}

		s.enqueueLocked(batch)
		if s.current == nil {
			if len(s.queue) > 0 {
				s.presentNextLocked()
			} else {
				s.status = StatusExhausted
			}
		}
	}()
}
