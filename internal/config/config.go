package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/alfredjeanlab/hookwatch/internal/logging"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Store       string // HOOKWATCH_STORE (default "postgres"; "memory" for development)
	DatabaseURL string // HOOKWATCH_DATABASE_URL (required for postgres)
	HTTPAddr    string // HOOKWATCH_HTTP_ADDR (default ":5000")
	GRPCAddr    string // HOOKWATCH_GRPC_ADDR (default ":9090"; set empty to disable)
	NATSURL     string // HOOKWATCH_NATS_URL (optional, empty = no events)
	AuthToken   string // HOOKWATCH_AUTH_TOKEN (optional, empty = /api open)

	RecentLimit       int           // HOOKWATCH_RECENT_LIMIT (default 1000; 0 = unbounded)
	AlertLimit        int           // HOOKWATCH_ALERT_LIMIT (default 1000; 0 = unbounded)
	SourceSilentAfter time.Duration // HOOKWATCH_SOURCE_SILENT_AFTER (default 15m)

	// Archive settings
	ArchiveInterval   time.Duration // HOOKWATCH_ARCHIVE_INTERVAL (default 0 = disabled)
	ArchiveS3Bucket   string        // HOOKWATCH_ARCHIVE_S3_BUCKET (required when archiving)
	ArchiveS3Endpoint string        // HOOKWATCH_ARCHIVE_S3_ENDPOINT (custom endpoint for MinIO)
	ArchiveS3Region   string        // HOOKWATCH_ARCHIVE_S3_REGION (default "us-east-1")
	ArchiveS3Prefix   string        // HOOKWATCH_ARCHIVE_S3_PREFIX (default "hookwatch/archive")

	Log logging.Config
}

func Load() (*Config, error) {
	c := &Config{
		Store:             strings.ToLower(envOrDefault("HOOKWATCH_STORE", StorePostgres)),
		DatabaseURL:       os.Getenv("HOOKWATCH_DATABASE_URL"),
		HTTPAddr:          envOrDefault("HOOKWATCH_HTTP_ADDR", ":5000"),
		GRPCAddr:          envOrEmpty("HOOKWATCH_GRPC_ADDR", ":9090"),
		NATSURL:           os.Getenv("HOOKWATCH_NATS_URL"),
		AuthToken:         os.Getenv("HOOKWATCH_AUTH_TOKEN"),
		ArchiveS3Bucket:   os.Getenv("HOOKWATCH_ARCHIVE_S3_BUCKET"),
		ArchiveS3Endpoint: os.Getenv("HOOKWATCH_ARCHIVE_S3_ENDPOINT"),
		ArchiveS3Region:   envOrDefault("HOOKWATCH_ARCHIVE_S3_REGION", "us-east-1"),
		ArchiveS3Prefix:   envOrDefault("HOOKWATCH_ARCHIVE_S3_PREFIX", "hookwatch/archive"),
	}

	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return nil, fmt.Errorf("HOOKWATCH_DATABASE_URL is required (or set HOOKWATCH_STORE=memory)")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("HOOKWATCH_STORE: unknown backend %q", c.Store)
	}

	var err error
	if c.RecentLimit, err = envInt("HOOKWATCH_RECENT_LIMIT", 1000); err != nil {
		return nil, err
	}
	if c.AlertLimit, err = envInt("HOOKWATCH_ALERT_LIMIT", 1000); err != nil {
		return nil, err
	}
	if c.SourceSilentAfter, err = envDuration("HOOKWATCH_SOURCE_SILENT_AFTER", 15*time.Minute); err != nil {
		return nil, err
	}
	if c.ArchiveInterval, err = envDuration("HOOKWATCH_ARCHIVE_INTERVAL", 0); err != nil {
		return nil, err
	}
	if c.ArchiveInterval > 0 && c.ArchiveS3Bucket == "" {
		return nil, fmt.Errorf("HOOKWATCH_ARCHIVE_S3_BUCKET is required when HOOKWATCH_ARCHIVE_INTERVAL is set")
	}
	if c.Log, err = loadLog(); err != nil {
		return nil, err
	}
	return c, nil
}

// RelayConfig configures the relay listener.
type RelayConfig struct {
	Addr           string        // HOOKWATCH_RELAY_ADDR (default ":8080")
	PrimaryURL     string        // HOOKWATCH_RELAY_PRIMARY_URL (default "http://localhost:5000")
	PrimaryTimeout time.Duration // HOOKWATCH_RELAY_PRIMARY_TIMEOUT (default 5s)
	LegacyTimeout  time.Duration // HOOKWATCH_RELAY_LEGACY_TIMEOUT (default 10s)
	Workers        int           // HOOKWATCH_RELAY_WORKERS (default 4)
	QueueSize      int           // HOOKWATCH_RELAY_QUEUE_SIZE (default 256)
	TargetsFile    string        // HOOKWATCH_RELAY_TARGETS_FILE (optional; .toml, .yaml or .yml)

	Targets Targets
	Log     logging.Config
}

// Targets lists the legacy downstream URLs per source type.
type Targets struct {
	Report  []string `toml:"report" yaml:"report"`
	Admin   []string `toml:"admin" yaml:"admin"`
	General []string `toml:"general" yaml:"general"`
}

func LoadRelay() (*RelayConfig, error) {
	c := &RelayConfig{
		Addr:        envOrDefault("HOOKWATCH_RELAY_ADDR", ":8080"),
		PrimaryURL:  strings.TrimRight(envOrDefault("HOOKWATCH_RELAY_PRIMARY_URL", "http://localhost:5000"), "/"),
		TargetsFile: os.Getenv("HOOKWATCH_RELAY_TARGETS_FILE"),
	}

	var err error
	if c.PrimaryTimeout, err = envDuration("HOOKWATCH_RELAY_PRIMARY_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if c.LegacyTimeout, err = envDuration("HOOKWATCH_RELAY_LEGACY_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if c.Workers, err = envInt("HOOKWATCH_RELAY_WORKERS", 4); err != nil {
		return nil, err
	}
	if c.QueueSize, err = envInt("HOOKWATCH_RELAY_QUEUE_SIZE", 256); err != nil {
		return nil, err
	}
	if c.Workers < 1 {
		return nil, fmt.Errorf("HOOKWATCH_RELAY_WORKERS must be at least 1")
	}
	if c.QueueSize < 1 {
		return nil, fmt.Errorf("HOOKWATCH_RELAY_QUEUE_SIZE must be at least 1")
	}
	if c.TargetsFile != "" {
		t, err := LoadTargets(c.TargetsFile)
		if err != nil {
			return nil, err
		}
		c.Targets = *t
	}
	if c.Log, err = loadLog(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadTargets reads a legacy targets file. The format is chosen by
// extension: .yaml and .yml are YAML, anything else is TOML.
func LoadTargets(path string) (*Targets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading targets file: %w", err)
	}

	var t Targets
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if _, err := toml.Decode(string(data), &t); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return &t, nil
}

func loadLog() (logging.Config, error) {
	c := logging.Config{
		Level:    os.Getenv("HOOKWATCH_LOG_LEVEL"),
		File:     os.Getenv("HOOKWATCH_LOG_FILE"),
		Compress: true,
	}
	var err error
	if c.MaxSizeMB, err = envInt("HOOKWATCH_LOG_MAX_SIZE_MB", 100); err != nil {
		return c, err
	}
	if c.MaxBackups, err = envInt("HOOKWATCH_LOG_MAX_BACKUPS", 5); err != nil {
		return c, err
	}
	if c.MaxAgeDays, err = envInt("HOOKWATCH_LOG_MAX_AGE_DAYS", 30); err != nil {
		return c, err
	}
	if _, err := logging.ParseLevel(c.Level); err != nil {
		return c, fmt.Errorf("HOOKWATCH_LOG_LEVEL: %w", err)
	}
	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envOrEmpty is like envOrDefault but an explicitly empty value wins.
func envOrEmpty(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s: must not be negative", key)
	}
	return n, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
