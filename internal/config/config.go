package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Database configuration
	DatabasePath string

	// Schedule configuration
	IngestIntervalMinutes int
	IngestJitterSeconds   int
	ReportSchedule        string // "daily" or "weekly"

	// Scoring configuration
	ScoreWindowHours int
	DecayLambda      float64

	// Spike detection
	SpikeWindowHours int
	SpikeThreshold   int

	// Recommendation generation
	RecommendationWindowHours int

	// Sources: "name|url|selector" entries for HTML pages,
	// "name|url" entries for RSS feeds
	NewsPages []string
	RSSFeeds  []string

	// Per-source fetch timeout
	SourceTimeoutSeconds int

	// Classifier configuration
	ClassifierEndpoint string // empty means local VADER classifier
	ClassifierPoints   int    // ordinal scale size for remote classifier

	// Notification configuration
	AlertWebhookURL string
	AlertEmail      string
	SMTPHost        string
	SMTPPort        int
	SMTPUsername    string
	SMTPPassword    string

	// Report archive configuration
	StorageAccount   string
	StorageContainer string
	ArchiveDir       string

	// Entities to bootstrap: "name|segment|term1;term2" entries
	SeedEntities []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:  getEnv("PORT", "8080"),
		Debug: getBoolEnv("DEBUG", false),

		DatabasePath: getEnv("DATABASE_PATH", "reputation.db"),

		IngestIntervalMinutes: getIntEnv("INGEST_INTERVAL_MINUTES", 10),
		IngestJitterSeconds:   getIntEnv("INGEST_JITTER_SECONDS", 30),
		ReportSchedule:        getEnv("REPORT_SCHEDULE", "weekly"),

		ScoreWindowHours: getIntEnv("SCORE_WINDOW_HOURS", 72),
		DecayLambda:      getFloatEnv("DECAY_LAMBDA", 0.08),

		SpikeWindowHours: getIntEnv("SPIKE_WINDOW_HOURS", 6),
		SpikeThreshold:   getIntEnv("SPIKE_THRESHOLD", 5),

		RecommendationWindowHours: getIntEnv("RECOMMENDATION_WINDOW_HOURS", 48),

		NewsPages: getSliceEnv("NEWS_PAGES", nil),
		RSSFeeds:  getSliceEnv("RSS_FEEDS", nil),

		SourceTimeoutSeconds: getIntEnv("SOURCE_TIMEOUT_SECONDS", 30),

		ClassifierEndpoint: getEnv("CLASSIFIER_ENDPOINT", ""),
		ClassifierPoints:   getIntEnv("CLASSIFIER_POINTS", 5),

		AlertWebhookURL: getEnv("ALERT_WEBHOOK_URL", ""),
		AlertEmail:      getEnv("ALERT_EMAIL", ""),
		SMTPHost:        getEnv("SMTP_HOST", ""),
		SMTPPort:        getIntEnv("SMTP_PORT", 587),
		SMTPUsername:    getEnv("SMTP_USERNAME", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "reports"),
		ArchiveDir:       getEnv("ARCHIVE_DIR", "archive"),

		SeedEntities: getSliceEnv("SEED_ENTITIES", nil),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.ReportSchedule != "daily" && c.ReportSchedule != "weekly" {
		return fmt.Errorf("REPORT_SCHEDULE must be 'daily' or 'weekly'")
	}

	if c.IngestIntervalMinutes < 1 || c.IngestIntervalMinutes > 59 {
		return fmt.Errorf("INGEST_INTERVAL_MINUTES must be between 1 and 59")
	}

	if c.DecayLambda <= 0 {
		return fmt.Errorf("DECAY_LAMBDA must be positive")
	}

	if c.SpikeThreshold < 1 {
		return fmt.Errorf("SPIKE_THRESHOLD must be at least 1")
	}

	if c.ClassifierPoints < 3 {
		return fmt.Errorf("CLASSIFIER_POINTS must be at least 3")
	}

	if c.AlertEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when ALERT_EMAIL is set")
		}
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
