package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// User is an account row.
type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUser inserts a new user with a fresh UUID.
func (s *Store) CreateUser(ctx context.Context, email, username, passwordHash string) (*User, error) {
	u := User{ID: uuid.New().String(), Email: email, Username: username, PasswordHash: passwordHash}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, username, password_hash) VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, u.ID, u.Email, u.Username, u.PasswordHash).Scan(&u.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}
	return &u, nil
}

// GetUser returns a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, username, password_hash, created_at FROM users WHERE id = $1
	`, id))
}

// GetUserByEmail returns a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, username, password_hash, created_at FROM users WHERE email = $1
	`, email))
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to scan user")
	}
	return &u, nil
}

// CreateToken inserts a bearer token for the user.
func (s *Store) CreateToken(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	token := uuid.New().String()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tokens (token, user_id, expires_at) VALUES ($1, $2, $3)
	`, token, userID, time.Now().Add(ttl))
	if err != nil {
		return "", errors.Wrap(err, "failed to create token")
	}
	return token, nil
}

// LookupToken resolves a bearer token to its user ID. Expired tokens resolve
// to ErrNotFound.
func (s *Store) LookupToken(ctx context.Context, token string) (string, error) {
	var userID string
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id FROM tokens WHERE token = $1 AND expires_at > NOW()
	`, token).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to look up token")
	}
	return userID, nil
}

// DeleteToken revokes a bearer token. Deleting an unknown token is a no-op.
func (s *Store) DeleteToken(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE token = $1`, token)
	return errors.Wrap(err, "failed to delete token")
}
