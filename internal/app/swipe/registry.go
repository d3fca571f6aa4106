package swipe

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

var (
	ErrNoSession = errors.New("no active session")
)

// PlayerFactory builds a preview player for a new session.
type PlayerFactory func() Previewer

// Registry manages at most one swipe session per user with thread-safe
// access.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	recommender Recommender
	playlists   PlaylistSource
	store       HistoryStore
	newPlayer   PlayerFactory
	cfg         Config
}

// NewRegistry creates a session registry.
func NewRegistry(recommender Recommender, playlists PlaylistSource, store HistoryStore, newPlayer PlayerFactory, cfg Config) *Registry {
	return &Registry{
		sessions:    make(map[string]*Session),
		recommender: recommender,
		playlists:   playlists,
		store:       store,
		newPlayer:   newPlayer,
		cfg:         cfg,
	}
}

// Start creates and starts a session for the user, replacing any existing
// one.
func (r *Registry) Start(ctx context.Context, userID, playlistID string) (*Session, error) {
	session := NewSession(userID, r.recommender, r.playlists, r.store, r.newPlayer(), r.cfg)

	r.mu.Lock()
	if old, ok := r.sessions[userID]; ok {
		old.Close()
	}
	r.sessions[userID] = session
	r.mu.Unlock()

	if err := session.Start(ctx, playlistID); err != nil {
		r.End(userID)
		return nil, err
	}
	return session, nil
}

// Get retrieves the user's active session.
func (r *Registry) Get(userID string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[userID]
	if !ok {
		return nil, ErrNoSession
	}
	return session, nil
}

// End closes and removes the user's session. Ending a user without a
// session is a no-op.
func (r *Registry) End(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session, ok := r.sessions[userID]; ok {
		session.Close()
		delete(r.sessions, userID)
	}
}

// CloseAll ends every session, for shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, session := range r.sessions {
		session.Close()
		delete(r.sessions, id)
	}
}
