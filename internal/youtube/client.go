package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/beatlink/backend/internal/model"
	"github.com/beatlink/backend/internal/scan"
	"github.com/beatlink/backend/pkg/logger"
	"github.com/beatlink/backend/pkg/utils"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

// Thumbnail qualities in preference order.
var thumbnailQualities = []string{"maxres", "high", "medium", "default"}

// Client fetches video metadata from the YouTube Data API v3.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *logger.Logger
}

type ClientOption func(*Client)

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		log:        logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type videoListResponse struct {
	Items []struct {
		Snippet struct {
			Title        string `json:"title"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   map[string]struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount string `json:"viewCount"`
		} `json:"statistics"`
	} `json:"items"`
}

// VideoInfo fetches title, channel, view count and thumbnail for a video.
// An empty items list means the video does not exist, is private or was
// deleted, and maps to VideoNotFound.
func (c *Client) VideoInfo(ctx context.Context, videoID string) (*model.VideoMetadata, error) {
	endpoint := fmt.Sprintf("%s/videos?%s", c.baseURL, url.Values{
		"id":   {videoID},
		"part": {"snippet,statistics"},
		"key":  {c.apiKey},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, scan.WrapError(scan.CodeUpstreamError, err, "building YouTube API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, scan.WrapError(scan.CodeUpstreamError, err, "YouTube API request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, scan.NewError(scan.CodeUpstreamError, "YouTube API returned status %d", resp.StatusCode)
	}

	var payload videoListResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, scan.WrapError(scan.CodeUpstreamError, err, "decoding YouTube API response")
	}

	if len(payload.Items) == 0 {
		return nil, scan.NewError(scan.CodeVideoNotFound, "video %s not found, private or deleted", videoID)
	}

	item := payload.Items[0]

	views, err := strconv.ParseInt(item.Statistics.ViewCount, 10, 64)
	if err != nil || views < 0 {
		views = 0
	}

	var thumbnail string
	for _, quality := range thumbnailQualities {
		if thumb, ok := item.Snippet.Thumbnails[quality]; ok && thumb.URL != "" {
			thumbnail = thumb.URL
			break
		}
	}

	c.log.Debugf("youtube: metadata for %s: %q by %q (%d views)", videoID, item.Snippet.Title, item.Snippet.ChannelTitle, views)

	return &model.VideoMetadata{
		Title:        item.Snippet.Title,
		Author:       item.Snippet.ChannelTitle,
		YouTubeURL:   utils.WatchURL(videoID),
		ViewsNumber:  views,
		ThumbnailURL: thumbnail,
	}, nil
}
