// Package store provides PostgreSQL-backed persistence for users, swiped
// songs, interaction counters and auth tokens.
package store

import (
	"database/sql"

	"github.com/cockroachdb/errors"
	_ "github.com/lib/pq"
	zlog "github.com/rs/zerolog/log"
)

// Store wraps the database handle and exposes the persistence operations.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL with the given DSN and runs migrations.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)

	if err := migrate(db); err != nil {
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	zlog.Info().Msg("connected to PostgreSQL")
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle without running migrations. Test hook.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			username TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS songs (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			track_id TEXT NOT NULL,
			verdict TEXT NOT NULL CHECK (verdict IN ('liked', 'disliked')),
			title TEXT NOT NULL DEFAULT '',
			artist TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			preview_url TEXT NOT NULL DEFAULT '',
			popularity INTEGER NOT NULL DEFAULT 0,
			tempo DOUBLE PRECISION NOT NULL DEFAULT 0,
			energy DOUBLE PRECISION NOT NULL DEFAULT 0,
			valence DOUBLE PRECISION NOT NULL DEFAULT 0,
			danceability DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, track_id, verdict)
		)`,
		`CREATE TABLE IF NOT EXISTS counters (
			user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			swipes INTEGER NOT NULL DEFAULT 0,
			likes INTEGER NOT NULL DEFAULT 0,
			dislikes INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS tokens (
			token UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_songs_user_verdict ON songs(user_id, verdict)`,
		`CREATE INDEX IF NOT EXISTS idx_tokens_user ON tokens(user_id)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return errors.Wrapf(err, "migration failed: %s", m)
		}
	}

	zlog.Info().Msg("database migrations completed")
	return nil
}
