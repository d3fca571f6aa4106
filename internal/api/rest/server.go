// Package rest exposes the discovery service over HTTP.
package rest

import (
	"context"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/recover"
	zlog "github.com/rs/zerolog/log"

	"github.com/echofind/echofind/internal/app/auth"
	"github.com/echofind/echofind/internal/app/swipe"
	"github.com/echofind/echofind/internal/domain/track"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AuthService is the account surface the handlers need.
type AuthService interface {
	SignUp(ctx context.Context, email, username, password string) (*auth.Account, error)
	SignIn(ctx context.Context, email, password string) (*auth.Account, error)
	SignOut(ctx context.Context, token string) error
	Verify(ctx context.Context, token string) (string, error)
}

// LibraryStore reads and mutates the persisted swipe history.
type LibraryStore interface {
	ListSongs(ctx context.Context, userID string, verdict track.Verdict) ([]track.Song, error)
	DeleteSong(ctx context.Context, userID, songID string) error
	DeleteSongsByTitle(ctx context.Context, userID, title string, verdict track.Verdict) (int64, error)
	Counters(ctx context.Context, userID string) (track.Counters, error)
}

// Recommender serves recommendation batches.
type Recommender interface {
	Recommendations(ctx context.Context, userID string, presented map[string]bool) ([]track.Track, error)
	Refresh(ctx context.Context, userID string, presented map[string]bool) ([]track.Track, error)
}

// Server wires the application services into a fiber app.
type Server struct {
	app         *fiber.App
	auth        AuthService
	library     LibraryStore
	recommender Recommender
	sessions    *swipe.Registry
	faq         []FAQEntry
}

// NewServer creates the HTTP server. Extra middleware (rate limiting) is
// applied before the routes.
func NewServer(authSvc AuthService, library LibraryStore, recommender Recommender, sessions *swipe.Registry, extra ...fiber.Handler) *Server {
	s := &Server{
		auth:        authSvc,
		library:     library,
		recommender: recommender,
		sessions:    sessions,
	}

	faq, err := loadFAQ()
	if err != nil {
		zlog.Warn().Err(err).Msg("faq asset unavailable")
	}
	s.faq = faq

	app := fiber.New(fiber.Config{
		AppName: "echofind",
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				zlog.Error().Err(err).Int("status", code).Msg("unhandled error")
			}
			return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New())
	for _, m := range extra {
		app.Use(m)
	}

	app.Get("/health", s.handleHealth)
	app.Get("/faq", s.handleFAQ)
	app.Post("/auth/signup", s.handleSignUp)
	app.Post("/auth/login", s.handleLogin)

	authed := app.Group("", s.requireAuth)
	authed.Post("/auth/logout", s.handleLogout)
	authed.Get("/songs", s.handleListSongs)
	authed.Delete("/songs", s.handleDeleteSongsByTitle)
	authed.Delete("/songs/:id", s.handleDeleteSong)
	authed.Get("/counters", s.handleCounters)
	authed.Get("/session", s.handleGetSession)
	authed.Post("/session/start", s.handleStartSession)
	authed.Post("/session/swipe", s.handleSwipe)
	authed.Post("/session/advance", s.handleAdvance)
	authed.Post("/session/replay", s.handleReplay)
	authed.Delete("/session", s.handleEndSession)
	authed.Get("/recommendations", s.handleRecommendations)
	authed.Post("/recommendations/refresh", s.handleRefreshRecommendations)

	s.app = app
	return s
}

// App returns the underlying fiber app, for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves until the listener fails or Shutdown is called.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown drains in-flight requests and closes all swipe sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	s.sessions.CloseAll()
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleHealth(c fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "echofind",
	})
}
