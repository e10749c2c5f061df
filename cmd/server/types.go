package main

import (
	"fmt"

	"github.com/beatlink/backend/internal/model"
)

// ScanRequest is the request body for POST /scan.
type ScanRequest struct {
	YouTubeURL string `json:"youtube_url"`
}

// Validate checks if the request is valid. The full URL-shape check
// happens in the scan pipeline; this only rejects an absent field.
func (r *ScanRequest) Validate() error {
	if r.YouTubeURL == "" {
		return fmt.Errorf("youtube_url is required in request body")
	}
	return nil
}

// ScanSuccessResponse is the envelope for a completed scan. A scan with
// zero matches is still a success.
type ScanSuccessResponse struct {
	Success      bool                 `json:"success"`
	UploadedBeat *model.VideoMetadata `json:"uploaded_beat"`
	MatchedSongs []model.CatalogTrack `json:"matched_songs"`
	ResultsCount int                  `json:"results_count"`
}

// ScanErrorResponse is the envelope for a failed scan. Failures keep
// HTTP 200 and signal through the success flag, per the existing
// client contract.
type ScanErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the static response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
}
