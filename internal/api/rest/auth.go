package rest

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v3"
	zlog "github.com/rs/zerolog/log"

	"github.com/echofind/echofind/internal/app/auth"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleSignUp(c fiber.Ctx) error {
	var req signUpRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	account, err := s.auth.SignUp(c.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingFields):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
		case errors.Is(err, auth.ErrEmailTaken):
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: err.Error()})
		default:
			zlog.Error().Err(err).Msg("sign up failed")
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
		}
	}
	return c.Status(fiber.StatusCreated).JSON(account)
}

func (s *Server) handleLogin(c fiber.Ctx) error {
	var req loginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	account, err := s.auth.SignIn(c.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrIncorrectCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: err.Error()})
		}
		zlog.Error().Err(err).Msg("login failed")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
	}
	return c.JSON(account)
}

func (s *Server) handleLogout(c fiber.Ctx) error {
	token, _ := c.Locals("token").(string)
	if err := s.auth.SignOut(c.Context(), token); err != nil {
		zlog.Error().Err(err).Msg("logout failed")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
	}
	s.sessions.End(currentUserID(c))
	return c.SendStatus(fiber.StatusNoContent)
}
