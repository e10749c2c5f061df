// Package config loads the service configuration from the process
// environment and fails fast when a collaborator credential is missing.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Required environment variables; the service refuses to start without them.
var requiredVars = []string{
	"YOUTUBE_API_KEY",
	"APIFY_API_TOKEN",
	"ACR_HOST",
	"ACR_ACCESS_KEY",
	"ACR_SECRET_KEY",
	"SPOTIFY_CLIENT_ID",
	"SPOTIFY_CLIENT_SECRET",
}

// Config is the full startup configuration. Credentials and endpoints
// for all four collaborators come from the environment.
type Config struct {
	Port           int
	AllowedOrigins []string

	YouTubeAPIKey  string
	YouTubeBaseURL string

	ApifyToken   string
	ApifyBaseURL string
	ApifyActorID string

	ExtractionTimeout      time.Duration
	ExtractionPollInterval time.Duration
	AudioBitrateKbps       int
	AudioDurationSeconds   int

	ACRHost      string
	ACRAccessKey string
	ACRSecretKey string
	MinScore     float64

	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyAccountsURL  string
	SpotifyAPIURL       string
}

// Load reads the environment and validates it. The returned error names
// every missing required variable.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 5000)
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("YOUTUBE_API_URL", "https://www.googleapis.com/youtube/v3")
	v.SetDefault("APIFY_API_URL", "https://api.apify.com")
	v.SetDefault("APIFY_ACTOR_ID", "marielise.dev~youtube-video-downloader")
	v.SetDefault("EXTRACTION_TIMEOUT", "180s")
	v.SetDefault("EXTRACTION_POLL_INTERVAL", "3s")
	v.SetDefault("AUDIO_BITRATE_KBPS", 128)
	v.SetDefault("AUDIO_DURATION_SECONDS", 30)
	v.SetDefault("MIN_MATCH_SCORE", 85.0)
	v.SetDefault("SPOTIFY_ACCOUNTS_URL", "https://accounts.spotify.com")
	v.SetDefault("SPOTIFY_API_URL", "https://api.spotify.com")

	var missing []string
	for _, name := range requiredVars {
		if v.GetString(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	cfg := &Config{
		Port:           v.GetInt("PORT"),
		AllowedOrigins: splitOrigins(v.GetString("ALLOWED_ORIGINS")),

		YouTubeAPIKey:  v.GetString("YOUTUBE_API_KEY"),
		YouTubeBaseURL: v.GetString("YOUTUBE_API_URL"),

		ApifyToken:   v.GetString("APIFY_API_TOKEN"),
		ApifyBaseURL: v.GetString("APIFY_API_URL"),
		ApifyActorID: v.GetString("APIFY_ACTOR_ID"),

		ExtractionTimeout:      v.GetDuration("EXTRACTION_TIMEOUT"),
		ExtractionPollInterval: v.GetDuration("EXTRACTION_POLL_INTERVAL"),
		AudioBitrateKbps:       v.GetInt("AUDIO_BITRATE_KBPS"),
		AudioDurationSeconds:   v.GetInt("AUDIO_DURATION_SECONDS"),

		ACRHost:      v.GetString("ACR_HOST"),
		ACRAccessKey: v.GetString("ACR_ACCESS_KEY"),
		ACRSecretKey: v.GetString("ACR_SECRET_KEY"),
		MinScore:     v.GetFloat64("MIN_MATCH_SCORE"),

		SpotifyClientID:     v.GetString("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: v.GetString("SPOTIFY_CLIENT_SECRET"),
		SpotifyAccountsURL:  v.GetString("SPOTIFY_ACCOUNTS_URL"),
		SpotifyAPIURL:       v.GetString("SPOTIFY_API_URL"),
	}

	if cfg.ExtractionTimeout <= 0 {
		return nil, fmt.Errorf("EXTRACTION_TIMEOUT must be positive, got %s", cfg.ExtractionTimeout)
	}
	if cfg.ExtractionPollInterval <= 0 {
		return nil, fmt.Errorf("EXTRACTION_POLL_INTERVAL must be positive, got %s", cfg.ExtractionPollInterval)
	}

	return cfg, nil
}

func splitOrigins(raw string) []string {
	if raw == "" || raw == "*" {
		return []string{"*"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
