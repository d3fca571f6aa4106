package rest

import (
	"github.com/cockroachdb/errors"
	"github.com/gofiber/fiber/v3"
	zlog "github.com/rs/zerolog/log"

	"github.com/echofind/echofind/internal/domain/track"
	"github.com/echofind/echofind/internal/infra/store"
)

func (s *Server) handleListSongs(c fiber.Ctx) error {
	verdict := track.Verdict(c.Query("verdict", string(track.VerdictLiked)))
	if !verdict.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "verdict must be liked or disliked"})
	}

	songs, err := s.library.ListSongs(c.Context(), currentUserID(c), verdict)
	if err != nil {
		zlog.Error().Err(err).Msg("failed to list songs")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
	}

	out := make([]SongResponse, 0, len(songs))
	for _, song := range songs {
		out = append(out, toSongResponse(song))
	}
	return c.JSON(out)
}

func (s *Server) handleDeleteSong(c fiber.Ctx) error {
	if err := s.library.DeleteSong(c.Context(), currentUserID(c), c.Params("id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "song not found"})
		}
		zlog.Error().Err(err).Msg("failed to delete song")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleDeleteSongsByTitle(c fiber.Ctx) error {
	title := c.Query("title")
	if title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "title is required"})
	}
	verdict := track.Verdict(c.Query("verdict", string(track.VerdictLiked)))
	if !verdict.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "verdict must be liked or disliked"})
	}

	deleted, err := s.library.DeleteSongsByTitle(c.Context(), currentUserID(c), title, verdict)
	if err != nil {
		zlog.Error().Err(err).Msg("failed to delete songs by title")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}

func (s *Server) handleCounters(c fiber.Ctx) error {
	counters, err := s.library.Counters(c.Context(), currentUserID(c))
	if err != nil {
		zlog.Error().Err(err).Msg("failed to load counters")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal error"})
	}
	return c.JSON(CountersResponse{
		Swipes:   counters.Swipes,
		Likes:    counters.Likes,
		Dislikes: counters.Dislikes,
	})
}
