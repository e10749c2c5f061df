// Package acrcloud implements the fingerprinting collaborator using the
// ACRCloud identification API.
package acrcloud

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/beatlink/backend/internal/model"
	"github.com/beatlink/backend/internal/scan"
	"github.com/beatlink/backend/pkg/logger"
)

const (
	identifyPath     = "/v1/identify"
	signatureVersion = "1"
	dataType         = "audio"

	// ACRCloud status codes.
	statusSuccess  = 0
	statusNoResult = 1001
)

// Config carries ACRCloud credentials and the match acceptance policy.
type Config struct {
	Host      string // e.g. identify-eu-west-1.acrcloud.com
	AccessKey string
	SecretKey string
	MinScore  float64 // hits below this confidence are discarded
}

// Client identifies audio samples. Zero hits is a non-error outcome;
// errors are reserved for transport, auth and service failures.
type Client struct {
	cfg        Config
	scheme     string
	httpClient *http.Client
	log        *logger.Logger
	now        func() time.Time
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithPlainHTTP switches to http://, for tests against local servers.
func WithPlainHTTP() ClientOption {
	return func(c *Client) {
		c.scheme = "http"
	}
}

func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

func NewClient(cfg Config, opts ...ClientOption) *Client {
	if cfg.MinScore == 0 {
		cfg.MinScore = 85
	}
	c := &Client{
		cfg:        cfg,
		scheme:     "https",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logger.GetLogger(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type identifyResponse struct {
	Status struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"status"`
	Metadata struct {
		Music []struct {
			Title   string  `json:"title"`
			Score   float64 `json:"score"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
			ExternalMetadata struct {
				Spotify struct {
					Track struct {
						ID string `json:"id"`
					} `json:"track"`
				} `json:"spotify"`
			} `json:"external_metadata"`
		} `json:"music"`
	} `json:"metadata"`
}

// Identify submits the audio sample for fingerprint identification and
// returns the hits at or above the configured confidence floor.
func (c *Client) Identify(ctx context.Context, artifact *model.AudioArtifact) ([]model.IdentificationHit, error) {
	timestamp := strconv.FormatInt(c.now().Unix(), 10)
	signature := c.sign(timestamp)

	body, contentType, err := c.buildForm(artifact.Data, timestamp, signature)
	if err != nil {
		return nil, scan.WrapError(scan.CodeIdentificationFailed, err, "building identification request")
	}

	endpoint := fmt.Sprintf("%s://%s%s", c.scheme, c.cfg.Host, identifyPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, scan.WrapError(scan.CodeIdentificationFailed, err, "building identification request")
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, scan.WrapError(scan.CodeIdentificationFailed, err, "identification request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, scan.NewError(scan.CodeIdentificationFailed, "identification service returned status %d", resp.StatusCode)
	}

	var payload identifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, scan.WrapError(scan.CodeIdentificationFailed, err, "decoding identification response")
	}

	switch payload.Status.Code {
	case statusSuccess:
	case statusNoResult:
		c.log.Infof("acrcloud: no matches for video %s", artifact.VideoID)
		return nil, nil
	default:
		return nil, scan.NewError(scan.CodeIdentificationFailed, "identification service error %d: %s", payload.Status.Code, payload.Status.Msg)
	}

	hits := make([]model.IdentificationHit, 0, len(payload.Metadata.Music))
	for _, music := range payload.Metadata.Music {
		if music.Score < c.cfg.MinScore {
			c.log.Debugf("acrcloud: skipping %q (score %.1f below %.1f)", music.Title, music.Score, c.cfg.MinScore)
			continue
		}

		names := make([]string, 0, len(music.Artists))
		for _, artist := range music.Artists {
			if artist.Name != "" {
				names = append(names, artist.Name)
			}
		}

		hits = append(hits, model.IdentificationHit{
			Title:     music.Title,
			Artists:   strings.Join(names, ", "),
			SpotifyID: music.ExternalMetadata.Spotify.Track.ID,
			Score:     music.Score,
		})
	}

	c.log.Infof("acrcloud: %d hits at or above score %.0f", len(hits), c.cfg.MinScore)
	return hits, nil
}

// sign produces the base64 HMAC-SHA1 request signature the identify
// endpoint expects.
func (c *Client) sign(timestamp string) string {
	stringToSign := strings.Join([]string{
		http.MethodPost,
		identifyPath,
		c.cfg.AccessKey,
		dataType,
		signatureVersion,
		timestamp,
	}, "\n")

	mac := hmac.New(sha1.New, []byte(c.cfg.SecretKey))
	mac.Write([]byte(stringToSign))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *Client) buildForm(sample []byte, timestamp, signature string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := map[string]string{
		"access_key":        c.cfg.AccessKey,
		"data_type":         dataType,
		"signature_version": signatureVersion,
		"signature":         signature,
		"sample_bytes":      strconv.Itoa(len(sample)),
		"timestamp":         timestamp,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	part, err := writer.CreateFormFile("sample", "audio.mp3")
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(sample); err != nil {
		return nil, "", err
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}
