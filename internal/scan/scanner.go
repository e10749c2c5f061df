package scan

import (
	"context"
	"errors"
	"fmt"

	"github.com/beatlink/backend/internal/model"
	"github.com/beatlink/backend/pkg/logger"
	"github.com/beatlink/backend/pkg/utils"
)

// Scanner runs the fixed four-step pipeline: video metadata, audio
// extraction, fingerprint identification, per-hit catalog enrichment.
// It holds no mutable state; concurrent scans are independent.
type Scanner struct {
	video      VideoMetadataProvider
	extractor  AudioExtractor
	identifier AudioIdentifier
	catalog    TrackCatalog
	log        Logger
}

type Option func(*Scanner)

func WithLogger(log Logger) Option {
	return func(s *Scanner) {
		s.log = log
	}
}

func NewScanner(video VideoMetadataProvider, extractor AudioExtractor, identifier AudioIdentifier, catalog TrackCatalog, opts ...Option) *Scanner {
	s := &Scanner{
		video:      video,
		extractor:  extractor,
		identifier: identifier,
		catalog:    catalog,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.GetLogger()
	}
	return s
}

// Scan runs one scan end to end. Steps 1-4 are fail-fast and terminal
// for the request; step-5 enrichment failures only drop the affected hit.
func (s *Scanner) Scan(ctx context.Context, youtubeURL string) (*model.ScanResult, error) {
	// 1. Validate the URL before touching any collaborator.
	videoID, err := utils.ExtractVideoID(youtubeURL)
	if err != nil {
		return nil, WrapError(CodeInvalidInput, err, "youtube_url is not a recognized YouTube video URL")
	}

	// 2. Video metadata.
	s.log.Infof("scan %s: fetching video metadata", videoID)
	meta, err := s.video.VideoInfo(ctx, videoID)
	if err != nil {
		return nil, coerce(err, CodeUpstreamError, "failed to fetch video metadata")
	}

	// 3. Audio extraction. The extractor bounds the job wait itself.
	s.log.Infof("scan %s: extracting audio", videoID)
	artifact, err := s.extractor.Extract(ctx, videoID)
	if err != nil {
		return nil, coerce(err, CodeExtractionFailed, "audio extraction failed")
	}

	// 4. Fingerprint identification. Zero hits is success.
	s.log.Infof("scan %s: identifying audio (%d bytes)", videoID, len(artifact.Data))
	hits, err := s.identifier.Identify(ctx, artifact)
	if err != nil {
		return nil, coerce(err, CodeIdentificationFailed, "audio identification failed")
	}
	s.log.Infof("scan %s: %d identification hits", videoID, len(hits))

	// 5. Enrich each hit. A hit that fails enrichment is dropped;
	// partial results beat failing a scan that already identified tracks.
	songs := make([]model.CatalogTrack, 0, len(hits))
	for _, hit := range hits {
		track, err := s.catalog.Lookup(ctx, hit)
		if err != nil {
			s.log.Warnf("scan %s: dropping hit %q by %q: %v", videoID, hit.Title, hit.Artists, err)
			continue
		}
		songs = append(songs, *track)
	}

	// 6. Aggregate, preserving hit order.
	return &model.ScanResult{
		UploadedBeat: meta,
		MatchedSongs: songs,
		ResultsCount: len(songs),
	}, nil
}

// coerce passes typed scan errors through untouched and wraps anything
// else with the default code for the failing stage.
func coerce(err error, code Code, msg string) error {
	var scanErr *Error
	if errors.As(err, &scanErr) {
		return scanErr
	}
	return &Error{Code: code, Message: fmt.Sprintf("%s: %v", msg, err), Err: err}
}
