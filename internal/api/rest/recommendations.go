package rest

import (
	"github.com/gofiber/fiber/v3"
	zlog "github.com/rs/zerolog/log"
)

func (s *Server) handleRecommendations(c fiber.Ctx) error {
	tracks, err := s.recommender.Recommendations(c.Context(), currentUserID(c), nil)
	if err != nil {
		zlog.Error().Err(err).Msg("failed to assemble recommendations")
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "failed to assemble recommendations"})
	}
	return c.JSON(toTrackResponses(tracks))
}

func (s *Server) handleRefreshRecommendations(c fiber.Ctx) error {
	tracks, err := s.recommender.Refresh(c.Context(), currentUserID(c), nil)
	if err != nil {
		zlog.Error().Err(err).Msg("failed to refresh recommendations")
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "failed to refresh recommendations"})
	}
	return c.JSON(toTrackResponses(tracks))
}
