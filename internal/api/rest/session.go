package rest

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v3"
	zlog "github.com/rs/zerolog/log"

	"github.com/echofind/echofind/internal/app/swipe"
)

type swipeRequest struct {
	Direction string `json:"direction"`
}

func (s *Server) handleGetSession(c fiber.Ctx) error {
	session, err := s.sessions.Get(currentUserID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "no active session"})
	}
	return c.JSON(toSessionResponse(session))
}

func (s *Server) handleStartSession(c fiber.Ctx) error {
	session, err := s.sessions.Start(c.Context(), currentUserID(c), c.Query("playlist"))
	if err != nil {
		zlog.Error().Err(err).Msg("failed to start session")
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "failed to start session"})
	}
	return c.Status(fiber.StatusCreated).JSON(toSessionResponse(session))
}

func (s *Server) handleSwipe(c fiber.Ctx) error {
	var req swipeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}
	if req.Direction != "right" && req.Direction != "left" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "direction must be right or left"})
	}

	session, err := s.sessions.Get(currentUserID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "no active session"})
	}

	swipeFn := session.SwipeLeft
	if req.Direction == "right" {
		swipeFn = session.SwipeRight
	}
	counters, err := swipeFn(c.Context())
	if err != nil {
		switch {
		case errors.Is(err, swipe.ErrNoCurrentTrack), errors.Is(err, swipe.ErrNotReady):
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: err.Error()})
		default:
			zlog.Error().Err(err).Msg("swipe failed")
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
		}
	}

	resp := toSessionResponse(session)
	return c.JSON(fiber.Map{
		"counters": CountersResponse{Swipes: counters.Swipes, Likes: counters.Likes, Dislikes: counters.Dislikes},
		"session":  resp,
	})
}

func (s *Server) handleAdvance(c fiber.Ctx) error {
	session, err := s.sessions.Get(currentUserID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "no active session"})
	}
	if err := session.Skip(); err != nil {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: err.Error()})
	}
	return c.JSON(toSessionResponse(session))
}

func (s *Server) handleReplay(c fiber.Ctx) error {
	session, err := s.sessions.Get(currentUserID(c))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "no active session"})
	}
	if err := session.Replay(); err != nil {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: err.Error()})
	}
	return c.JSON(toSessionResponse(session))
}

func (s *Server) handleEndSession(c fiber.Ctx) error {
	s.sessions.End(currentUserID(c))
	return c.SendStatus(fiber.StatusNoContent)
}
