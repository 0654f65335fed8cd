// Package config loads application configuration from environment variables
// and an optional dashboard-scope YAML file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":8080"`
	DBPath      string `envconfig:"DB_PATH" default:"clienthub.db"`

	// Auth: "api-key", "jwt" or "none"
	AuthMode  string `envconfig:"AUTH_MODE" default:"api-key"`
	APIKey    string `envconfig:"API_KEY"`
	JWTSecret string `envconfig:"JWT_SECRET"`

	// Workflow events
	EventCooldown  time.Duration `envconfig:"EVENT_COOLDOWN" default:"3s"`
	EventEntities  string        `envconfig:"EVENT_ENTITIES" default:"intake,proposal,project,invoice,task"`
	EventBuffer    int           `envconfig:"EVENT_BUFFER" default:"64"`
	WebhookSecret  string        `envconfig:"WEBHOOK_SECRET"`
	DashboardsFile string        `envconfig:"DASHBOARDS_FILE"`

	// Upcoming-deliverables projection defaults
	UpcomingHorizonDays int `envconfig:"UPCOMING_HORIZON_DAYS" default:"14"`
	UpcomingLimit       int `envconfig:"UPCOMING_LIMIT" default:"5"`

	// Slack notifications (optional; the server starts without Slack)
	SlackBotToken string `envconfig:"SLACK_BOT_TOKEN"`
	SlackChannel  string `envconfig:"SLACK_CHANNEL"`
}

// EventEntityList returns the parsed allow-list of relevant entity kinds.
func (c *Config) EventEntityList() []string {
	parts := strings.Split(c.EventEntities, ",")
	entities := make([]string, 0, len(parts))
	for _, e := range parts {
		e = strings.TrimSpace(e)
		if e != "" {
			entities = append(entities, e)
		}
	}
	return entities
}

// SlackEnabled returns true if Slack notifications are configured.
func (c *Config) SlackEnabled() bool {
	return c.SlackBotToken != "" && c.SlackChannel != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}
