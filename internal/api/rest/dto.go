package rest

import (
	"time"

	"github.com/echofind/echofind/internal/app/swipe"
	"github.com/echofind/echofind/internal/domain/track"
)

// TrackResponse is the wire form of a candidate track.
type TrackResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Artists       []string `json:"artists"`
	AlbumName     string   `json:"album_name,omitempty"`
	AlbumImageURL string   `json:"album_image_url,omitempty"`
	PreviewURL    string   `json:"preview_url"`
	Popularity    int      `json:"popularity"`
}

func toTrackResponse(t track.Track) TrackResponse {
	return TrackResponse{
		ID:            t.ID,
		Name:          t.Name,
		Artists:       t.ArtistNames(),
		AlbumName:     t.AlbumName,
		AlbumImageURL: t.AlbumImageURL,
		PreviewURL:    t.PreviewURL,
		Popularity:    t.Popularity,
	}
}

func toTrackResponses(tracks []track.Track) []TrackResponse {
	out := make([]TrackResponse, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, toTrackResponse(t))
	}
	return out
}

// SongResponse is the wire form of a persisted swipe.
type SongResponse struct {
	ID         string    `json:"id"`
	TrackID    string    `json:"track_id"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	ImageURL   string    `json:"image_url,omitempty"`
	PreviewURL string    `json:"preview_url,omitempty"`
	Popularity int       `json:"popularity"`
	Verdict    string    `json:"verdict"`
	CreatedAt  time.Time `json:"created_at"`
}

func toSongResponse(s track.Song) SongResponse {
	return SongResponse{
		ID:         s.ID,
		TrackID:    s.TrackID,
		Title:      s.Title,
		Artist:     s.Artist,
		ImageURL:   s.ImageURL,
		PreviewURL: s.PreviewURL,
		Popularity: s.Popularity,
		Verdict:    string(s.Verdict),
		CreatedAt:  s.CreatedAt,
	}
}

// CountersResponse is the wire form of the swipe counters.
type CountersResponse struct {
	Swipes   int `json:"swipes"`
	Likes    int `json:"likes"`
	Dislikes int `json:"dislikes"`
}

// SessionResponse is the wire form of a swipe session.
type SessionResponse struct {
	Status    string         `json:"status"`
	Current   *TrackResponse `json:"current,omitempty"`
	QueueSize int            `json:"queue_size"`
}

func toSessionResponse(s *swipe.Session) SessionResponse {
	resp := SessionResponse{
		Status:    s.GetStatus().String(),
		QueueSize: s.QueueSize(),
	}
	if current, ok := s.Current(); ok {
		tr := toTrackResponse(*current)
		resp.Current = &tr
	}
	return resp
}
