package scan

import (
	"context"

	"github.com/beatlink/backend/internal/model"
)

// Service is the scan orchestrator as seen by the HTTP layer.
type Service interface {
	Scan(ctx context.Context, youtubeURL string) (*model.ScanResult, error)
}

// VideoMetadataProvider resolves a video ID to its public metadata.
type VideoMetadataProvider interface {
	VideoInfo(ctx context.Context, videoID string) (*model.VideoMetadata, error)
}

// AudioExtractor turns a video ID into a short audio extract via a
// job-based collaborator. Implementations must bound the job wait with
// a deadline and fail rather than hang past it.
type AudioExtractor interface {
	Extract(ctx context.Context, videoID string) (*model.AudioArtifact, error)
}

// AudioIdentifier fingerprints an audio artifact against a recording
// database. Zero hits is a non-error outcome.
type AudioIdentifier interface {
	Identify(ctx context.Context, artifact *model.AudioArtifact) ([]model.IdentificationHit, error)
}

// TrackCatalog enriches one identification hit with catalog metadata.
// Errors are per-item and never fatal to a scan.
type TrackCatalog interface {
	Lookup(ctx context.Context, hit model.IdentificationHit) (*model.CatalogTrack, error)
}

// Logger is the logging surface the orchestrator needs.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
