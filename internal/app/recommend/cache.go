package recommend

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"

	"github.com/echofind/echofind/internal/domain/track"
)

// Entry is one cached recommendation batch.
type Entry struct {
	Tracks    []track.Track `json:"tracks"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// Store persists recommendation batches per user. Get returns (nil, nil) on
// a miss.
type Store interface {
	Get(ctx context.Context, userID string) (*Entry, error)
	Set(ctx context.Context, userID string, entry *Entry) error
}

// NewStore builds a cache store for the configured backend. The settings map
// is backend specific; redis expects addr and optional password and db.
func NewStore(backend string, settings map[string]any, ttl time.Duration) (Store, error) {
	switch backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return newRedisStore(settings, ttl)
	default:
		return nil, errors.Newf("unknown cache backend: %s", backend)
	}
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]*Entry{}}
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[userID], nil
}

func (s *MemoryStore) Set(_ context.Context, userID string, entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = entry
	return nil
}

type redisSettings struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func newRedisStore(settings map[string]any, ttl time.Duration) (*redisStore, error) {
	var rs redisSettings
	if err := mapstructure.Decode(settings, &rs); err != nil {
		return nil, errors.Wrap(err, "failed to decode redis cache settings")
	}
	if rs.Addr == "" {
		return nil, errors.New("redis cache requires settings.addr")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     rs.Addr,
		Password: rs.Password,
		DB:       rs.DB,
	})
	return &redisStore{client: client, ttl: ttl}, nil
}

func (s *redisStore) key(userID string) string {
	return "echofind:recommendations:" + userID
}

func (s *redisStore) Get(ctx context.Context, userID string) (*Entry, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to read cached recommendations")
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, errors.Wrap(err, "failed to decode cached recommendations")
	}
	return &entry, nil
}

func (s *redisStore) Set(ctx context.Context, userID string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.Wrap(err, "failed to encode recommendations")
	}
	// Expiry slightly past the freshness window so stale entries still serve
	// as a fallback when a refresh produces nothing.
	if err := s.client.Set(ctx, s.key(userID), data, 2*s.ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to write cached recommendations")
	}
	return nil
}

// Service ties the profile loader, assembler and cache together.
type Service struct {
	loader    *ProfileLoader
	assembler *Assembler
	store     Store
	ttl       time.Duration
	now       func() time.Time
}

// NewService creates a Service with the given cache freshness window.
func NewService(loader *ProfileLoader, assembler *Assembler, store Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{
		loader:    loader,
		assembler: assembler,
		store:     store,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Recommendations returns the user's cached batch when it is fresh and
// non-empty, otherwise assembles a new one. A fresh assembly that comes back
// empty does not evict an existing batch.
func (s *Service) Recommendations(ctx context.Context, userID string, presented map[string]bool) ([]track.Track, error) {
	cached, err := s.store.Get(ctx, userID)
	if err != nil {
		zlog.Warn().Err(err).Str("user_id", userID).Msg("cache read failed")
	} else if cached != nil && len(cached.Tracks) > 0 && s.now().Sub(cached.FetchedAt) < s.ttl {
		return cached.Tracks, nil
	}
	return s.refresh(ctx, userID, presented, cached)
}

// Refresh assembles a new batch regardless of cache freshness.
func (s *Service) Refresh(ctx context.Context, userID string, presented map[string]bool) ([]track.Track, error) {
	cached, err := s.store.Get(ctx, userID)
	if err != nil {
		cached = nil
	}
	return s.refresh(ctx, userID, presented, cached)
}

func (s *Service) refresh(ctx context.Context, userID string, presented map[string]bool, cached *Entry) ([]track.Track, error) {
	profile, err := s.loader.Load(ctx, userID, presented)
	if err != nil {
		return nil, err
	}
	tracks, err := s.assembler.Assemble(ctx, profile)
	if err != nil {
		if cached != nil && len(cached.Tracks) > 0 {
			zlog.Warn().Err(err).Str("user_id", userID).Msg("assembly failed, serving stale batch")
			return cached.Tracks, nil
		}
		return nil, err
	}

	if len(tracks) == 0 {
		if cached != nil && len(cached.Tracks) > 0 {
			return cached.Tracks, nil
		}
		return []track.Track{}, nil
	}

	entry := &Entry{Tracks: tracks, FetchedAt: s.now()}
	if err := s.store.Set(ctx, userID, entry); err != nil {
		zlog.Warn().Err(err).Str("user_id", userID).Msg("cache write failed")
	}
	return tracks, nil
}
