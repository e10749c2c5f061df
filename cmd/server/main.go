package main

import (
	"github.com/beatlink/backend/internal/acrcloud"
	"github.com/beatlink/backend/internal/apify"
	"github.com/beatlink/backend/internal/config"
	"github.com/beatlink/backend/internal/scan"
	"github.com/beatlink/backend/internal/spotify"
	"github.com/beatlink/backend/internal/youtube"
	"github.com/beatlink/backend/pkg/logger"
)

func main() {
	log := logger.GetLogger()
	log.Infof("Starting BeatLink backend...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	videoClient := youtube.NewClient(cfg.YouTubeAPIKey,
		youtube.WithBaseURL(cfg.YouTubeBaseURL),
	)

	extractorClient := apify.NewClient(apify.Config{
		BaseURL:            cfg.ApifyBaseURL,
		ActorID:            cfg.ApifyActorID,
		Token:              cfg.ApifyToken,
		BitrateKbps:        cfg.AudioBitrateKbps,
		MaxDurationSeconds: cfg.AudioDurationSeconds,
		Timeout:            cfg.ExtractionTimeout,
		PollInterval:       cfg.ExtractionPollInterval,
	})

	identifierClient := acrcloud.NewClient(acrcloud.Config{
		Host:      cfg.ACRHost,
		AccessKey: cfg.ACRAccessKey,
		SecretKey: cfg.ACRSecretKey,
		MinScore:  cfg.MinScore,
	})

	catalogClient := spotify.NewClient(cfg.SpotifyClientID, cfg.SpotifyClientSecret,
		spotify.WithAccountsURL(cfg.SpotifyAccountsURL),
		spotify.WithAPIURL(cfg.SpotifyAPIURL),
	)

	scanner := scan.NewScanner(videoClient, extractorClient, identifierClient, catalogClient)

	server := NewServer(scanner, &ServerConfig{
		Port:           cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	if err := server.Start(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
