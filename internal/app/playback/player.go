package playback

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/echofind/echofind/internal/domain/track"
)

// Errors
var (
	ErrNoPreview = errors.New("track has no preview clip")
)

// Config holds player configuration.
type Config struct {
	PreviewDuration time.Duration // Clip length, 30s on Spotify
}

// Player plays one preview clip at a time. Starting a new clip cuts the
// previous one short; the clip timer runs on wall clock so a suspended
// process does not stretch a 30 second preview.
type Player struct {
	mu sync.Mutex

	current     *track.Track
	state       State
	startTime   time.Time
	timerCancel func()
	closed      bool

	config  Config
	eventCh chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// NewPlayer creates a new preview player.
func NewPlayer(config Config) *Player {
	if config.PreviewDuration <= 0 {
		config.PreviewDuration = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Player{
		state:   StateIdle,
		config:  config,
		eventCh: make(chan Event, 10),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Events returns the event channel.
func (p *Player) Events() <-chan Event {
	return p.eventCh
}

// Play starts the track's preview clip, replacing any clip already playing.
func (p *Player) Play(t track.Track) error {
	if !t.HasPreview() {
		return ErrNoPreview
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return errors.New("player is closed")
	}
	p.stopLocked(EventPreviewStopped)

	clip := t
	p.current = &clip
	p.state = StatePlaying
	p.startTime = toWallTime(time.Now())

	p.timerCancel = p.startWallClockTimer(p.config.PreviewDuration, func() {
		p.onPreviewEnd(clip.ID)
	})

	zlog.Debug().Str("track", t.Name).Msg("preview started")
	p.sendEventLocked(Event{Type: EventPreviewStarted, Track: p.current, State: p.state})
	return nil
}

// Stop cuts the current clip short. Stopping an idle player is a no-op.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked(EventPreviewStopped)
}

// Current returns the playing track, if any.
func (p *Player) Current() (*track.Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil, false
	}
	return p.current, true
}

// GetState returns the current playback state.
func (p *Player) GetState() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Remaining returns the time left in the current clip.
func (p *Player) Remaining() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.current == nil {
		return 0
	}
	remaining := p.config.PreviewDuration - toWallTime(time.Now()).Sub(p.startTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Close stops playback and closes the event channel. Closing twice is a
// no-op.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.cancel()
	p.stopLocked(EventPreviewStopped)
	close(p.eventCh)
}

// stopLocked clears the current clip and emits the given event type.
// Must be called with lock held.
func (p *Player) stopLocked(eventType EventType) {
	if p.timerCancel != nil {
		p.timerCancel()
		p.timerCancel = nil
	}
	if p.current == nil {
		return
	}

	ended := p.current
	p.current = nil
	p.state = StateIdle
	p.sendEventLocked(Event{Type: eventType, Track: ended, State: p.state})
}

// onPreviewEnd fires when the clip timer expires.
func (p *Player) onPreviewEnd(trackID string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A newer clip may have replaced this one while the timer fired.
	if p.current == nil || p.current.ID != trackID {
		return
	}
	p.stopLocked(EventPreviewEnded)
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (p *Player) sendEventLocked(e Event) {
	if p.closed {
		return
	}
	select {
	case p.eventCh <- e:
	default:
		// Channel full, drop event
	}
}

// startWallClockTimer triggers callback after duration measured on the wall
// clock. Returns a cancel function.
func (p *Player) startWallClockTimer(duration time.Duration, callback func()) func() {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		endTime := toWallTime(time.Now()).Add(duration)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if toWallTime(time.Now()).After(endTime) {
					callback()
					return
				}
			}
		}
	}()

	return cancel
}

// toWallTime strips the monotonic clock reading so durations are measured
// against real time.
func toWallTime(t time.Time) time.Time {
	return time.Unix(t.Unix(), int64(t.Nanosecond()))
}
