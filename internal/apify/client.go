// Package apify drives the audio-extraction collaborator: an Apify actor
// that downloads the audio track of a YouTube video as MP3.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/beatlink/backend/internal/model"
	"github.com/beatlink/backend/internal/scan"
	"github.com/beatlink/backend/pkg/logger"
	"github.com/beatlink/backend/pkg/utils"
)

const (
	defaultBaseURL = "https://api.apify.com"
	defaultActorID = "marielise.dev~youtube-video-downloader"
)

// The actor's output schema is not pinned down; these are the field
// names it has been observed to put the download URL under.
var downloadURLFields = []string{
	"downloadUrl", "url", "audioUrl", "fileUrl", "mp3Url",
	"link", "file", "audio", "downloadLink", "mp3File",
}

// Terminal run statuses other than SUCCEEDED.
var failedRunStatuses = map[string]bool{
	"FAILED":    true,
	"ABORTED":   true,
	"TIMED-OUT": true,
}

// Config holds the extraction policy. Bitrate and MaxDurationSeconds are
// a cost-control choice, not a technical requirement: fingerprinting does
// not need more than a short low-bitrate extract.
type Config struct {
	BaseURL            string
	ActorID            string
	Token              string
	BitrateKbps        int
	MaxDurationSeconds int
	Timeout            time.Duration // bound on the whole submit+poll+download sequence
	PollInterval       time.Duration
}

// Client submits extraction jobs and waits for their artifact. Job
// submissions go through a rate limiter since every actor run is billed.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithLimiter(limiter *rate.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

func NewClient(cfg Config, opts ...ClientOption) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.ActorID == "" {
		cfg.ActorID = defaultActorID
	}
	if cfg.BitrateKbps == 0 {
		cfg.BitrateKbps = 128
	}
	if cfg.MaxDurationSeconds == 0 {
		cfg.MaxDurationSeconds = 30
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 3 * time.Second
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 2),
		log:        logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type runInput struct {
	Format      string        `json:"format"`
	Bitrate     int           `json:"bitrate"`
	MaxDuration int           `json:"maxDuration"`
	URLs        []runInputURL `json:"urls"`
}

type runInputURL struct {
	URL string `json:"url"`
}

type runEnvelope struct {
	Data struct {
		ID               string `json:"id"`
		Status           string `json:"status"`
		DefaultDatasetID string `json:"defaultDatasetId"`
	} `json:"data"`
}

// Extract submits an extraction run for the video and waits for the MP3
// artifact, polling run status until it succeeds, fails or the configured
// deadline passes.
func (c *Client) Extract(ctx context.Context, videoID string) (*model.AudioArtifact, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	run, err := c.submitRun(ctx, videoID)
	if err != nil {
		return nil, err
	}
	c.log.Infof("apify: run %s submitted for video %s", run.Data.ID, videoID)

	datasetID, err := c.awaitRun(ctx, run)
	if err != nil {
		return nil, err
	}

	downloadURL, err := c.datasetDownloadURL(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	data, err := c.download(ctx, downloadURL)
	if err != nil {
		return nil, err
	}
	c.log.Infof("apify: downloaded %d bytes for video %s", len(data), videoID)

	return &model.AudioArtifact{
		VideoID:   videoID,
		SourceURL: downloadURL,
		Data:      data,
	}, nil
}

func (c *Client) submitRun(ctx context.Context, videoID string) (*runEnvelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, scan.WrapError(scan.CodeExtractionFailed, err, "waiting for extraction rate limiter")
	}

	input := runInput{
		Format:      "mp3",
		Bitrate:     c.cfg.BitrateKbps,
		MaxDuration: c.cfg.MaxDurationSeconds,
		URLs:        []runInputURL{{URL: utils.WatchURL(videoID)}},
	}
	body, err := json.Marshal(input)
	if err != nil {
		return nil, scan.WrapError(scan.CodeExtractionFailed, err, "encoding extraction job input")
	}

	endpoint := fmt.Sprintf("%s/v2/acts/%s/runs?token=%s", c.cfg.BaseURL, url.PathEscape(c.cfg.ActorID), url.QueryEscape(c.cfg.Token))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, scan.WrapError(scan.CodeExtractionFailed, err, "building extraction job request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, scan.WrapError(scan.CodeExtractionFailed, err, "submitting extraction job")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, scan.NewError(scan.CodeExtractionFailed, "extraction job submission returned status %d", resp.StatusCode)
	}

	var run runEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return nil, scan.WrapError(scan.CodeExtractionFailed, err, "decoding extraction job response")
	}
	if run.Data.ID == "" {
		return nil, scan.NewError(scan.CodeExtractionFailed, "extraction job response carried no run ID")
	}
	return &run, nil
}

// awaitRun polls run status on a fixed interval until the run reaches a
// terminal state or the context deadline fires.
func (c *Client) awaitRun(ctx context.Context, run *runEnvelope) (string, error) {
	status := run.Data.Status
	datasetID := run.Data.DefaultDatasetID

	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if status == "SUCCEEDED" {
			if datasetID == "" {
				return "", scan.NewError(scan.CodeExtractionFailed, "extraction run %s finished without a dataset", run.Data.ID)
			}
			return datasetID, nil
		}
		if failedRunStatuses[status] {
			return "", scan.NewError(scan.CodeExtractionFailed, "extraction run %s ended with status %s", run.Data.ID, status)
		}

		select {
		case <-ctx.Done():
			return "", scan.WrapError(scan.CodeExtractionFailed, ctx.Err(), "extraction run %s did not finish within the deadline", run.Data.ID)
		case <-ticker.C:
		}

		current, err := c.runStatus(ctx, run.Data.ID)
		if err != nil {
			return "", err
		}
		status = current.Data.Status
		if current.Data.DefaultDatasetID != "" {
			datasetID = current.Data.DefaultDatasetID
		}
		c.log.Debugf("apify: run %s status %s", run.Data.ID, status)
	}
}

func (c *Client) runStatus(ctx context.Context, runID string) (*runEnvelope, error) {
	endpoint := fmt.Sprintf("%s/v2/actor-runs/%s?token=%s", c.cfg.BaseURL, url.PathEscape(runID), url.QueryEscape(c.cfg.Token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, scan.WrapError(scan.CodeExtractionFailed, err, "building run status request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, scan.WrapError(scan.CodeExtractionFailed, err, "polling extraction run status")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, scan.NewError(scan.CodeExtractionFailed, "run status poll returned status %d", resp.StatusCode)
	}

	var run runEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return nil, scan.WrapError(scan.CodeExtractionFailed, err, "decoding run status response")
	}
	return &run, nil
}

// datasetDownloadURL reads the run's dataset and locates the artifact URL
// among the field names the actor is known to use.
func (c *Client) datasetDownloadURL(ctx context.Context, datasetID string) (string, error) {
	endpoint := fmt.Sprintf("%s/v2/datasets/%s/items?token=%s", c.cfg.BaseURL, url.PathEscape(datasetID), url.QueryEscape(c.cfg.Token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", scan.WrapError(scan.CodeExtractionFailed, err, "building dataset request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", scan.WrapError(scan.CodeExtractionFailed, err, "fetching extraction dataset")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", scan.NewError(scan.CodeExtractionFailed, "dataset fetch returned status %d", resp.StatusCode)
	}

	var items []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return "", scan.WrapError(scan.CodeExtractionFailed, err, "decoding extraction dataset")
	}
	if len(items) == 0 {
		return "", scan.NewError(scan.CodeExtractionFailed, "extraction run produced no dataset items")
	}

	item := items[0]
	for _, field := range downloadURLFields {
		if value, ok := item[field].(string); ok && value != "" {
			return value, nil
		}
	}
	return "", scan.NewError(scan.CodeExtractionFailed, "no download URL in extraction result (fields: %v)", keysOf(item))
}

func (c *Client) download(ctx context.Context, downloadURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, scan.WrapError(scan.CodeExtractionFailed, err, "building artifact download request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, scan.WrapError(scan.CodeExtractionFailed, err, "downloading audio artifact")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, scan.NewError(scan.CodeExtractionFailed, "artifact download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, scan.WrapError(scan.CodeExtractionFailed, err, "reading audio artifact")
	}
	if len(data) == 0 {
		return nil, scan.NewError(scan.CodeExtractionFailed, "audio artifact was empty")
	}
	return data, nil
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
