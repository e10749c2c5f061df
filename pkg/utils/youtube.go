package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Canonical YouTube IDs are 11 characters, but the length is not a
// published guarantee, so only the alphabet is checked.
var videoIDPattern = regexp.MustCompile(`^[0-9A-Za-z_-]{1,64}$`)

// ExtractVideoID pulls the video ID out of the common YouTube URL
// shapes: watch?v=, youtu.be/, /embed/, /shorts/ and /v/. Bare IDs and
// anything that does not parse as a YouTube URL are rejected.
func ExtractVideoID(youtubeURL string) (string, error) {
	if strings.TrimSpace(youtubeURL) == "" {
		return "", fmt.Errorf("empty URL")
	}

	u, err := url.Parse(youtubeURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	host := strings.ToLower(u.Host)

	if strings.HasSuffix(host, "youtu.be") {
		id := strings.Trim(u.Path, "/")
		if slash := strings.Index(id, "/"); slash != -1 {
			id = id[:slash]
		}
		return validateID(id, youtubeURL)
	}

	if strings.HasSuffix(host, "youtube.com") {
		if strings.HasPrefix(u.Path, "/watch") {
			return validateID(u.Query().Get("v"), youtubeURL)
		}
		for _, prefix := range []string{"/embed/", "/shorts/", "/v/"} {
			if strings.HasPrefix(u.Path, prefix) {
				id := strings.TrimPrefix(u.Path, prefix)
				if slash := strings.Index(id, "/"); slash != -1 {
					id = id[:slash]
				}
				return validateID(id, youtubeURL)
			}
		}
	}

	return "", fmt.Errorf("unable to extract video ID from URL: %s", youtubeURL)
}

func validateID(id, original string) (string, error) {
	if !videoIDPattern.MatchString(id) {
		return "", fmt.Errorf("no valid video ID in URL: %s", original)
	}
	return id, nil
}

// WatchURL builds the canonical watch URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
