// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DeploymentMode selects how browser instances are acquired.
type DeploymentMode string

const (
	// ModeRemote connects to a hosted automation broker over CDP.
	ModeRemote DeploymentMode = "remote"
	// ModeContainer launches a dockerised Chrome and connects over CDP.
	ModeContainer DeploymentMode = "container"
	// ModeLocal launches a Playwright-managed local Chromium.
	ModeLocal DeploymentMode = "local"
)

// Config holds everything the server needs to run.
type Config struct {
	ListenAddr string
	DataDir    string

	// Club portal.
	DashboardURL string
	Username     string
	Password     string

	// Browser acquisition.
	Mode        DeploymentMode
	BrokerWSURL string
	Headless    bool
	MaxBrowsers int64

	// Booking.
	Companions []string

	// Collaborators.
	OpenAIKey          string
	OpenAIModel        string
	OpenAIBaseURL      string
	CalendarWebhookURL string

	// Registry policy.
	IdleWindow time.Duration
}

// Load reads configuration from the environment and validates the
// parts that are fatal to start without.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:         getenv("LISTEN_ADDR", ":8080"),
		DataDir:            getenv("DATA_DIR", "./storage"),
		DashboardURL:       os.Getenv("CLUB_DASHBOARD_URL"),
		Username:           os.Getenv("CLUB_USERNAME"),
		Password:           os.Getenv("CLUB_PASSWORD"),
		Mode:               DeploymentMode(getenv("BROWSER_MODE", string(ModeLocal))),
		BrokerWSURL:        os.Getenv("BROWSER_BROKER_WS_URL"),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        getenv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:      getenv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		CalendarWebhookURL: os.Getenv("CALENDAR_WEBHOOK_URL"),
	}

	cfg.Headless = getenvBool("BROWSER_HEADLESS", true)

	maxBrowsers, err := strconv.ParseInt(getenv("MAX_BROWSERS", "5"), 10, 64)
	if err != nil || maxBrowsers < 1 {
		return nil, fmt.Errorf("invalid MAX_BROWSERS: %q", os.Getenv("MAX_BROWSERS"))
	}
	cfg.MaxBrowsers = maxBrowsers

	idle, err := time.ParseDuration(getenv("SESSION_IDLE_WINDOW", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_IDLE_WINDOW: %w", err)
	}
	cfg.IdleWindow = idle

	for _, name := range strings.Split(getenv("BOOKING_COMPANIONS", ""), ",") {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cfg.Companions = append(cfg.Companions, trimmed)
		}
	}

	if cfg.DashboardURL == "" {
		return nil, fmt.Errorf("CLUB_DASHBOARD_URL is required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("CLUB_USERNAME and CLUB_PASSWORD are required")
	}

	switch cfg.Mode {
	case ModeRemote:
		if cfg.BrokerWSURL == "" {
			return nil, fmt.Errorf("BROWSER_BROKER_WS_URL is required in remote mode")
		}
	case ModeContainer, ModeLocal:
	default:
		return nil, fmt.Errorf("unsupported BROWSER_MODE: %q", cfg.Mode)
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
