package model

// VideoMetadata describes the scanned upload as reported by the video
// metadata collaborator. Read-only once built.
type VideoMetadata struct {
	Title        string `json:"title"`
	Author       string `json:"author"`
	YouTubeURL   string `json:"youtube_url"`
	ViewsNumber  int64  `json:"views_number"`
	ThumbnailURL string `json:"thumbnail"`
}

// AudioArtifact is a short audio extract of the scanned video. It lives
// for the duration of a single scan and is never cached or reused.
type AudioArtifact struct {
	VideoID   string
	SourceURL string // where the extract was downloaded from
	Data      []byte
}

// IdentificationHit is one candidate match returned by the fingerprinting
// collaborator, carrying just enough to query the catalog service.
type IdentificationHit struct {
	Title     string
	Artists   string // joined artist names
	SpotifyID string // bare track ID, empty when the collaborator has none
	Score     float64
}

// CatalogTrack is an identification hit enriched with catalog metadata.
type CatalogTrack struct {
	Title       string  `json:"title"`
	Artists     string  `json:"artists"`
	SpotifyURL  string  `json:"spotify_url"`
	CoverURL    string  `json:"cover_url"`
	ReleaseDate string  `json:"release_date"`
	Label       string  `json:"label"`
	Score       float64 `json:"score"`
}

// ScanResult aggregates one full scan. MatchedSongs preserves the order
// in which hits came back from the fingerprinting collaborator.
type ScanResult struct {
	UploadedBeat *VideoMetadata `json:"uploaded_beat"`
	MatchedSongs []CatalogTrack `json:"matched_songs"`
	ResultsCount int            `json:"results_count"`
}
