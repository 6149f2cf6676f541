package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the resolved runtime configuration, merged from file defaults and
// environment overrides so local and deployed runs share one schema.
type Config struct {
	ServiceID string

	HTTPPort int

	PostgresURL string
	SQLitePath  string
	MaxDBConns  int

	JWTSharedSecret string
	JWTPublicKeyPEM string
	// InternalToken guards the hook routes that carry no resolvable principal.
	InternalToken string

	DefaultPageSize int
	MaxPageSize     int
	RecentWindow    time.Duration

	KafkaBrokers []string
	// KafkaTopics routes an event type to a destination topic; unmapped event
	// types publish to a topic named after the event type.
	KafkaTopics        map[string]string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxRetries   int
}

// configFile mirrors the YAML schema used by configs/default.yaml. It stays
// separate from Config so runtime-only fields remain internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL  string            `yaml:"postgres_url"`
		SQLitePath   string            `yaml:"sqlite_path"`
		KafkaBrokers []string          `yaml:"kafka_brokers"`
		KafkaTopics  map[string]string `yaml:"kafka_topics"`
	} `yaml:"dependencies"`
	Paging struct {
		DefaultPageSize int `yaml:"default_page_size"`
		MaxPageSize     int `yaml:"max_page_size"`
	} `yaml:"paging"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:          "taskhub-api",
		HTTPPort:           8080,
		SQLitePath:         "taskhub.db",
		MaxDBConns:         20,
		DefaultPageSize:    20,
		MaxPageSize:        200,
		RecentWindow:       24 * time.Hour,
		OutboxPollInterval: 2 * time.Second,
		OutboxBatchSize:    100,
		OutboxMaxRetries:   5,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.PostgresURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.SQLitePath != "" {
			cfg.SQLitePath = f.Dependencies.SQLitePath
		}
		if len(f.Dependencies.KafkaBrokers) > 0 {
			cfg.KafkaBrokers = f.Dependencies.KafkaBrokers
		}
		if len(f.Dependencies.KafkaTopics) > 0 {
			cfg.KafkaTopics = f.Dependencies.KafkaTopics
		}
		if f.Paging.DefaultPageSize > 0 {
			cfg.DefaultPageSize = f.Paging.DefaultPageSize
		}
		if f.Paging.MaxPageSize > 0 {
			cfg.MaxPageSize = f.Paging.MaxPageSize
		}
	}

	cfg.PostgresURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.PostgresURL))
	cfg.SQLitePath = envOrDefault("SQLITE_PATH", cfg.SQLitePath)
	cfg.JWTSharedSecret = envOrDefault("JWT_SHARED_SECRET", cfg.JWTSharedSecret)
	cfg.JWTPublicKeyPEM = envOrDefault("JWT_PUBLIC_KEY_PEM", cfg.JWTPublicKeyPEM)
	cfg.InternalToken = envOrDefault("INTERNAL_TOKEN", cfg.InternalToken)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.MaxDBConns = envInt("DB_MAX_CONNS", cfg.MaxDBConns)
	cfg.DefaultPageSize = envInt("PAGE_SIZE_DEFAULT", cfg.DefaultPageSize)
	cfg.MaxPageSize = envInt("PAGE_SIZE_MAX", cfg.MaxPageSize)
	cfg.RecentWindow = time.Duration(envInt("STATS_RECENT_WINDOW_HOURS", int(cfg.RecentWindow.Hours()))) * time.Hour
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	if cfg.PostgresURL == "" && cfg.SQLitePath == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL or SQLITE_PATH")
	}
	if cfg.JWTSharedSecret == "" && cfg.JWTPublicKeyPEM == "" {
		return Config{}, fmt.Errorf("missing JWT_SHARED_SECRET or JWT_PUBLIC_KEY_PEM")
	}
	if cfg.InternalToken == "" {
		return Config{}, fmt.Errorf("missing INTERNAL_TOKEN")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envCSV parses comma-separated env vars and removes empty segments.
func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		parts = append(parts, trimmed)
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
