// Package spotify implements the catalog collaborator: per-hit track
// metadata enrichment via the Spotify Web API.
package spotify

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/beatlink/backend/internal/model"
	"github.com/beatlink/backend/pkg/logger"
)

const (
	defaultAccountsURL = "https://accounts.spotify.com"
	defaultAPIURL      = "https://api.spotify.com"

	trackURLPrefix = "https://open.spotify.com/track/"

	// Refresh the token a minute before Spotify expires it.
	tokenExpiryMargin = time.Minute

	// Album art size preferred for clients; Spotify ships 640/300/64.
	preferredCoverHeight = 300
)

// Client enriches identification hits through the client-credentials
// flow. The cached token is the only shared mutable state and is
// mutex-guarded so concurrent scans can share one client.
type Client struct {
	accountsURL  string
	apiURL       string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	log          *logger.Logger
	now          func() time.Time

	mu             sync.Mutex
	token          string
	tokenExpiresAt time.Time
}

type ClientOption func(*Client)

func WithAccountsURL(accountsURL string) ClientOption {
	return func(c *Client) {
		c.accountsURL = accountsURL
	}
}

func WithAPIURL(apiURL string) ClientOption {
	return func(c *Client) {
		c.apiURL = apiURL
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

func NewClient(clientID, clientSecret string, opts ...ClientOption) *Client {
	c := &Client{
		accountsURL:  defaultAccountsURL,
		apiURL:       defaultAPIURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		log:          logger.GetLogger(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type trackResponse struct {
	Album struct {
		Label       string `json:"label"`
		ReleaseDate string `json:"release_date"`
		Images      []struct {
			URL    string `json:"url"`
			Height int    `json:"height"`
		} `json:"images"`
	} `json:"album"`
}

// Lookup enriches one hit. Hits without a Spotify track ID are passed
// through unenriched rather than dropped; only a failing catalog call is
// an error (the orchestrator drops those items).
func (c *Client) Lookup(ctx context.Context, hit model.IdentificationHit) (*model.CatalogTrack, error) {
	track := &model.CatalogTrack{
		Title:   hit.Title,
		Artists: hit.Artists,
		Score:   hit.Score,
	}

	trackID := normalizeTrackID(hit.SpotifyID)
	if trackID == "" {
		c.log.Debugf("spotify: hit %q has no track ID, skipping enrichment", hit.Title)
		return track, nil
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/v1/tracks/%s?market=from_token", c.apiURL, url.PathEscape(trackID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building track request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("track request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("track %s lookup returned status %d", trackID, resp.StatusCode)
	}

	var payload trackResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding track response: %w", err)
	}

	track.SpotifyURL = trackURLPrefix + trackID
	track.Label = payload.Album.Label
	track.ReleaseDate = payload.Album.ReleaseDate
	track.CoverURL = pickCover(payload)
	return track, nil
}

// accessToken returns the cached token, refreshing it when absent or
// within a minute of expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiresAt) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.accountsURL+"/api/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request returned status %d", resp.StatusCode)
	}

	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response carried no access token")
	}

	c.token = payload.AccessToken
	c.tokenExpiresAt = c.now().Add(time.Duration(payload.ExpiresIn)*time.Second - tokenExpiryMargin)
	c.log.Debugf("spotify: access token refreshed, valid until %s", c.tokenExpiresAt.Format(time.RFC3339))
	return c.token, nil
}

// normalizeTrackID accepts both bare IDs and spotify:track:xxx URIs.
func normalizeTrackID(id string) string {
	if strings.HasPrefix(id, "spotify:track:") {
		return strings.TrimPrefix(id, "spotify:track:")
	}
	return id
}

func pickCover(payload trackResponse) string {
	for _, img := range payload.Album.Images {
		if img.Height == preferredCoverHeight {
			return img.URL
		}
	}
	if len(payload.Album.Images) > 0 {
		return payload.Album.Images[0].URL
	}
	return ""
}
