// this file defines the data structures to be used throughout
package main

type Song struct {
	SongID   string   `json:"song_id"`
	Title    string   `json:"title"`
	Artist   string   `json:"artist"`
	CoverURL string   `json:"cover_url"`
	AudioURL string   `json:"audio_url"`
	Lyric    string   `json:"lyric"`
	Sheets   []string `json:"sheets"`
}

type PlayableItem struct {
	SongID   string `json:"song_id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	CoverURL string `json:"cover_url,omitempty"`
	AudioURL string `json:"audio_url,omitempty"`
	Lyric    string `json:"lyric,omitempty"`
}

type PresentationItem struct {
	SongID        string `json:"song_id"`
	Title         string `json:"title"`
	SheetImageURL string `json:"sheet_image_url"`
}

type HalfParams struct {
	OffsetVh float64 `json:"offset_vh"`
	Zoom     float64 `json:"zoom"`
}

type ViewportParams struct {
	Top        HalfParams `json:"top"`
	Bottom     HalfParams `json:"bottom"`
	HideBottom bool       `json:"hide_bottom"`
}

func DefaultViewportParams() ViewportParams {
	return ViewportParams{
		Top:        HalfParams{OffsetVh: 0, Zoom: 1},
		Bottom:     HalfParams{OffsetVh: 0, Zoom: 1},
		HideBottom: false,
	}
}

// ParamsDocument is the wire shape of the parameter remote store:
// everything one save round-trips in a single request.
type ParamsDocument struct {
	Items         map[string]ViewportParams `json:"items"`
	BackgroundURL string                    `json:"background_url,omitempty"`
}

type User struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	Email     string `json:"email"`
}
