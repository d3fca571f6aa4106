// Package auth provides account registration and bearer-token sessions.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/echofind/echofind/internal/infra/store"
)

// Errors
var (
	ErrIncorrectCredentials = errors.New("incorrect credentials")
	ErrEmailTaken           = errors.New("email is already registered")
	ErrMissingFields        = errors.New("email, username and password are required")
	ErrInvalidToken         = errors.New("invalid or expired token")
)

// UserStore is the persistence surface the service needs.
type UserStore interface {
	CreateUser(ctx context.Context, email, username, passwordHash string) (*store.User, error)
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)
	CreateToken(ctx context.Context, userID string, ttl time.Duration) (string, error)
	LookupToken(ctx context.Context, token string) (string, error)
	DeleteToken(ctx context.Context, token string) error
}

// Account is the authenticated identity returned to callers.
type Account struct {
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Service implements sign up, sign in and sign out.
type Service struct {
	users    UserStore
	tokenTTL time.Duration
}

// NewService creates a Service. Tokens issued on sign up and sign in expire
// after tokenTTL.
func NewService(users UserStore, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 30 * 24 * time.Hour
	}
	return &Service{users: users, tokenTTL: tokenTTL}
}

// SignUp registers a new account and returns it with a fresh token.
func (s *Service) SignUp(ctx context.Context, email, username, password string) (*Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)
	if email == "" || username == "" || password == "" {
		return nil, ErrMissingFields
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user, err := s.users.CreateUser(ctx, email, username, string(hash))
	if err != nil {
		if store.IsUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, errors.Wrap(err, "failed to create user")
	}

	token, err := s.users.CreateToken(ctx, user.ID, s.tokenTTL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue token")
	}

	zlog.Info().Str("user_id", user.ID).Msg("user signed up")
	return &Account{UserID: user.ID, Email: user.Email, Username: user.Username, Token: token}, nil
}

// SignIn verifies the credentials and returns the account with a fresh
// token. Unknown emails and wrong passwords are indistinguishable to the
// caller.
func (s *Service) SignIn(ctx context.Context, email, password string) (*Account, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrIncorrectCredentials
		}
		return nil, errors.Wrap(err, "failed to load user")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrIncorrectCredentials
	}

	token, err := s.users.CreateToken(ctx, user.ID, s.tokenTTL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue token")
	}

	zlog.Info().Str("user_id", user.ID).Msg("user signed in")
	return &Account{UserID: user.ID, Email: user.Email, Username: user.Username, Token: token}, nil
}

// SignOut revokes a token. Revoking an unknown token is a no-op.
func (s *Service) SignOut(ctx context.Context, token string) error {
	return s.users.DeleteToken(ctx, token)
}

// Verify resolves a bearer token to a user ID.
func (s *Service) Verify(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	userID, err := s.users.LookupToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", errors.Wrap(err, "failed to verify token")
	}
	return userID, nil
}
