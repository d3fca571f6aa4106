package store

import (
	"context"
	"database/sql"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/echofind/echofind/internal/domain/track"
)

// SaveSong persists a swiped track for the user. Re-swiping a track the same
// way is a no-op rather than an error.
func (s *Store) SaveSong(ctx context.Context, userID string, song track.Song) (string, error) {
	id := song.ID
	if id == "" {
		id = uuid.New().String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO songs (id, user_id, track_id, verdict, title, artist, image_url,
			preview_url, popularity, tempo, energy, valence, danceability)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id, track_id, verdict) DO NOTHING
	`, id, userID, song.TrackID, string(song.Verdict), song.Title, song.Artist,
		song.ImageURL, song.PreviewURL, song.Popularity,
		song.Features.Tempo, song.Features.Energy, song.Features.Valence, song.Features.Danceability)
	if err != nil {
		return "", errors.Wrap(err, "failed to save song")
	}
	return id, nil
}

// ListSongs returns the user's persisted songs for one verdict, newest first.
func (s *Store) ListSongs(ctx context.Context, userID string, verdict track.Verdict) ([]track.Song, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, track_id, verdict, title, artist, image_url, preview_url,
			popularity, tempo, energy, valence, danceability, created_at
		FROM songs
		WHERE user_id = $1 AND verdict = $2
		ORDER BY created_at DESC
	`, userID, string(verdict))
	if err != nil {
		return nil, errors.Wrap(err, "failed to query songs")
	}
	defer rows.Close()

	var songs []track.Song
	for rows.Next() {
		var sg track.Song
		var v string
		if err := rows.Scan(&sg.ID, &sg.TrackID, &v, &sg.Title, &sg.Artist,
			&sg.ImageURL, &sg.PreviewURL, &sg.Popularity,
			&sg.Features.Tempo, &sg.Features.Energy, &sg.Features.Valence,
			&sg.Features.Danceability, &sg.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan song")
		}
		sg.Verdict = track.Verdict(v)
		songs = append(songs, sg)
	}
	return songs, rows.Err()
}

// DeleteSong removes a persisted song by document ID, scoped to the user.
func (s *Store) DeleteSong(ctx context.Context, userID, songID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM songs WHERE id = $1 AND user_id = $2
	`, songID, userID)
	if err != nil {
		return errors.Wrap(err, "failed to delete song")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteSongsByTitle removes every persisted song with the given title and
// verdict, for clearing duplicate releases in one call.
func (s *Store) DeleteSongsByTitle(ctx context.Context, userID, title string, verdict track.Verdict) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM songs WHERE user_id = $1 AND title = $2 AND verdict = $3
	`, userID, title, string(verdict))
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete songs by title")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "rows affected")
}

// Counters returns the user's interaction counters, zero-valued when the row
// does not exist yet.
func (s *Store) Counters(ctx context.Context, userID string) (track.Counters, error) {
	var c track.Counters
	err := s.db.QueryRowContext(ctx, `
		SELECT swipes, likes, dislikes FROM counters WHERE user_id = $1
	`, userID).Scan(&c.Swipes, &c.Likes, &c.Dislikes)
	if errors.Is(err, sql.ErrNoRows) {
		return track.Counters{}, nil
	}
	if err != nil {
		return track.Counters{}, errors.Wrap(err, "failed to query counters")
	}
	return c, nil
}

// IncrementCounters adds the deltas to the user's counters, creating the row
// on first use.
func (s *Store) IncrementCounters(ctx context.Context, userID string, swipes, likes, dislikes int) (track.Counters, error) {
	var c track.Counters
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO counters (user_id, swipes, likes, dislikes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			swipes = counters.swipes + EXCLUDED.swipes,
			likes = counters.likes + EXCLUDED.likes,
			dislikes = counters.dislikes + EXCLUDED.dislikes
		RETURNING swipes, likes, dislikes
	`, userID, swipes, likes, dislikes).Scan(&c.Swipes, &c.Likes, &c.Dislikes)
	if err != nil {
		return track.Counters{}, errors.Wrap(err, "failed to increment counters")
	}
	return c, nil
}
