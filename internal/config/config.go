package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken  string
	APIBaseURL     string
	SessionDB      string
	HTTPTimeout    time.Duration
	DigestInterval time.Duration
	DigestTime     string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken:  strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		APIBaseURL:     strings.TrimRight(strings.TrimSpace(os.Getenv("API_BASE_URL")), "/"),
		SessionDB:      strings.TrimSpace(os.Getenv("SESSION_DB")),
		HTTPTimeout:    parseSeconds(strings.TrimSpace(os.Getenv("HTTP_TIMEOUT_SECONDS"))),
		DigestInterval: parseHours(strings.TrimSpace(os.Getenv("DIGEST_INTERVAL_HOURS"))),
		DigestTime:     strings.TrimSpace(os.Getenv("DIGEST_TIME")),
	}

	if cfg.SessionDB == "" {
		cfg.SessionDB = "taskdeck.db"
	}

	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	if cfg.APIBaseURL == "" {
		return cfg, fmt.Errorf("API_BASE_URL is required")
	}

	return cfg, nil
}

func parseSeconds(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func parseHours(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}
