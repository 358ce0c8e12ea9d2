package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// allEnvVars lists every variable read by Load and LoadRelay.
var allEnvVars = []string{
	"HOOKWATCH_STORE", "HOOKWATCH_DATABASE_URL", "HOOKWATCH_HTTP_ADDR", "HOOKWATCH_GRPC_ADDR",
	"HOOKWATCH_NATS_URL", "HOOKWATCH_AUTH_TOKEN", "HOOKWATCH_RECENT_LIMIT", "HOOKWATCH_ALERT_LIMIT",
	"HOOKWATCH_SOURCE_SILENT_AFTER", "HOOKWATCH_ARCHIVE_INTERVAL", "HOOKWATCH_ARCHIVE_S3_BUCKET",
	"HOOKWATCH_ARCHIVE_S3_ENDPOINT", "HOOKWATCH_ARCHIVE_S3_REGION", "HOOKWATCH_ARCHIVE_S3_PREFIX",
	"HOOKWATCH_LOG_LEVEL", "HOOKWATCH_LOG_FILE", "HOOKWATCH_LOG_MAX_SIZE_MB",
	"HOOKWATCH_LOG_MAX_BACKUPS", "HOOKWATCH_LOG_MAX_AGE_DAYS",
	"HOOKWATCH_RELAY_ADDR", "HOOKWATCH_RELAY_PRIMARY_URL", "HOOKWATCH_RELAY_PRIMARY_TIMEOUT",
	"HOOKWATCH_RELAY_LEGACY_TIMEOUT", "HOOKWATCH_RELAY_WORKERS", "HOOKWATCH_RELAY_QUEUE_SIZE",
	"HOOKWATCH_RELAY_TARGETS_FILE",
}

// clearAllEnv unsets every hookwatch variable for the duration of the test.
func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "") // registers restore on cleanup
		os.Unsetenv(key)
	}
}

func TestLoad(t *testing.T) {
	for _, tc := range []struct {
		name         string
		env          map[string]string
		wantErr      bool
		wantStore    string
		wantGRPCAddr string
		wantHTTPAddr string
		wantNATSURL  string
	}{
		{
			name:    "MissingDatabaseURL",
			env:     map[string]string{},
			wantErr: true,
		},
		{
			name:    "UnknownStore",
			env:     map[string]string{"HOOKWATCH_STORE": "sqlite"},
			wantErr: true,
		},
		{
			name:         "MemoryNeedsNoDatabase",
			env:          map[string]string{"HOOKWATCH_STORE": "memory"},
			wantStore:    StoreMemory,
			wantGRPCAddr: ":9090",
			wantHTTPAddr: ":5000",
		},
		{
			name:         "DefaultAddresses",
			env:          map[string]string{"HOOKWATCH_DATABASE_URL": "postgres://localhost/hookwatch"},
			wantStore:    StorePostgres,
			wantGRPCAddr: ":9090",
			wantHTTPAddr: ":5000",
		},
		{
			name: "CustomAddresses",
			env: map[string]string{
				"HOOKWATCH_DATABASE_URL": "postgres://db:5432/hookwatch",
				"HOOKWATCH_GRPC_ADDR":    ":5050",
				"HOOKWATCH_HTTP_ADDR":    ":3000",
				"HOOKWATCH_NATS_URL":     "nats://localhost:4222",
			},
			wantStore:    StorePostgres,
			wantGRPCAddr: ":5050",
			wantHTTPAddr: ":3000",
			wantNATSURL:  "nats://localhost:4222",
		},
		{
			name: "GRPCDisabled",
			env: map[string]string{
				"HOOKWATCH_STORE":     "memory",
				"HOOKWATCH_GRPC_ADDR": "",
			},
			wantStore:    StoreMemory,
			wantGRPCAddr: "",
			wantHTTPAddr: ":5000",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Store != tc.wantStore {
				t.Errorf("Store = %q, want %q", cfg.Store, tc.wantStore)
			}
			if cfg.GRPCAddr != tc.wantGRPCAddr {
				t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, tc.wantGRPCAddr)
			}
			if cfg.HTTPAddr != tc.wantHTTPAddr {
				t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, tc.wantHTTPAddr)
			}
			if cfg.NATSURL != tc.wantNATSURL {
				t.Errorf("NATSURL = %q, want %q", cfg.NATSURL, tc.wantNATSURL)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("HOOKWATCH_STORE", "memory")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RecentLimit != 1000 || cfg.AlertLimit != 1000 {
		t.Errorf("limits = %d/%d, want 1000/1000", cfg.RecentLimit, cfg.AlertLimit)
	}
	if cfg.SourceSilentAfter != 15*time.Minute {
		t.Errorf("SourceSilentAfter = %v, want 15m", cfg.SourceSilentAfter)
	}
	if cfg.ArchiveInterval != 0 {
		t.Errorf("ArchiveInterval = %v, want 0 (disabled)", cfg.ArchiveInterval)
	}
	if cfg.ArchiveS3Region != "us-east-1" {
		t.Errorf("ArchiveS3Region = %q", cfg.ArchiveS3Region)
	}
	if cfg.ArchiveS3Prefix != "hookwatch/archive" {
		t.Errorf("ArchiveS3Prefix = %q", cfg.ArchiveS3Prefix)
	}
	if cfg.Log.MaxSizeMB != 100 || cfg.Log.MaxBackups != 5 || cfg.Log.MaxAgeDays != 30 {
		t.Errorf("unexpected log rotation defaults: %+v", cfg.Log)
	}
}

func TestLoadArchiveCustom(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("HOOKWATCH_STORE", "memory")
	t.Setenv("HOOKWATCH_ARCHIVE_INTERVAL", "10m")
	t.Setenv("HOOKWATCH_ARCHIVE_S3_BUCKET", "my-bucket")
	t.Setenv("HOOKWATCH_ARCHIVE_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("HOOKWATCH_ARCHIVE_S3_REGION", "eu-west-1")
	t.Setenv("HOOKWATCH_ARCHIVE_S3_PREFIX", "custom/prefix")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ArchiveInterval != 10*time.Minute {
		t.Errorf("ArchiveInterval = %v, want 10m", cfg.ArchiveInterval)
	}
	if cfg.ArchiveS3Bucket != "my-bucket" {
		t.Errorf("ArchiveS3Bucket = %q", cfg.ArchiveS3Bucket)
	}
	if cfg.ArchiveS3Endpoint != "http://minio:9000" {
		t.Errorf("ArchiveS3Endpoint = %q", cfg.ArchiveS3Endpoint)
	}
	if cfg.ArchiveS3Region != "eu-west-1" {
		t.Errorf("ArchiveS3Region = %q", cfg.ArchiveS3Region)
	}
	if cfg.ArchiveS3Prefix != "custom/prefix" {
		t.Errorf("ArchiveS3Prefix = %q", cfg.ArchiveS3Prefix)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	for key, val := range map[string]string{
		"HOOKWATCH_ARCHIVE_INTERVAL":    "not-a-duration",
		"HOOKWATCH_SOURCE_SILENT_AFTER": "soon",
		"HOOKWATCH_RECENT_LIMIT":        "many",
		"HOOKWATCH_ALERT_LIMIT":         "-1",
		"HOOKWATCH_LOG_LEVEL":           "chatty",
	} {
		t.Run(key, func(t *testing.T) {
			clearAllEnv(t)
			t.Setenv("HOOKWATCH_STORE", "memory")
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, val)
			}
		})
	}
}

func TestLoadArchiveNeedsBucket(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("HOOKWATCH_STORE", "memory")
	t.Setenv("HOOKWATCH_ARCHIVE_INTERVAL", "5m")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when archiving without a bucket")
	}
}

func TestLoadRelayDefaults(t *testing.T) {
	clearAllEnv(t)

	cfg, err := LoadRelay()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q", cfg.Addr)
	}
	if cfg.PrimaryURL != "http://localhost:5000" {
		t.Errorf("PrimaryURL = %q", cfg.PrimaryURL)
	}
	if cfg.PrimaryTimeout != 5*time.Second || cfg.LegacyTimeout != 10*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.PrimaryTimeout, cfg.LegacyTimeout)
	}
	if cfg.Workers != 4 || cfg.QueueSize != 256 {
		t.Errorf("pool = %d workers / %d queue", cfg.Workers, cfg.QueueSize)
	}
	if len(cfg.Targets.Report)+len(cfg.Targets.Admin)+len(cfg.Targets.General) != 0 {
		t.Errorf("expected no targets, got %+v", cfg.Targets)
	}
}

func TestLoadRelayTrimsPrimaryURL(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("HOOKWATCH_RELAY_PRIMARY_URL", "http://dash:5000/")

	cfg, err := LoadRelay()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.PrimaryURL != "http://dash:5000" {
		t.Errorf("PrimaryURL = %q", cfg.PrimaryURL)
	}
}

func TestLoadRelayZeroWorkers(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("HOOKWATCH_RELAY_WORKERS", "0")

	if _, err := LoadRelay(); err == nil {
		t.Fatal("expected error for zero workers")
	}
}

func TestLoadRelayZeroQueue(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("HOOKWATCH_RELAY_QUEUE_SIZE", "0")

	if _, err := LoadRelay(); err == nil {
		t.Fatal("expected error for zero queue size")
	}
}

func TestLoadTargetsTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.toml")
	writeFile(t, path, `
report = ["https://hooks.example.com/a", "https://hooks.example.com/b"]
admin = ["https://hooks.example.com/admin"]
`)

	tg, err := LoadTargets(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tg.Report) != 2 || tg.Report[1] != "https://hooks.example.com/b" {
		t.Errorf("Report = %v", tg.Report)
	}
	if len(tg.Admin) != 1 {
		t.Errorf("Admin = %v", tg.Admin)
	}
	if len(tg.General) != 0 {
		t.Errorf("General = %v", tg.General)
	}
}

func TestLoadTargetsYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yml")
	writeFile(t, path, `
report:
  - https://hooks.example.com/a
general:
  - https://hooks.example.com/g
`)

	tg, err := LoadTargets(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tg.Report) != 1 || len(tg.General) != 1 || len(tg.Admin) != 0 {
		t.Errorf("unexpected targets: %+v", tg)
	}
}

func TestLoadTargetsErrors(t *testing.T) {
	if _, err := LoadTargets(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.toml")
	writeFile(t, path, `report = [`)
	if _, err := LoadTargets(path); err == nil {
		t.Error("expected error for malformed TOML")
	}
}

func TestLoadRelayWithTargetsFile(t *testing.T) {
	clearAllEnv(t)
	path := filepath.Join(t.TempDir(), "targets.yaml")
	writeFile(t, path, "admin:\n  - https://hooks.example.com/admin\n")
	t.Setenv("HOOKWATCH_RELAY_TARGETS_FILE", path)

	cfg, err := LoadRelay()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Targets.Admin) != 1 {
		t.Errorf("Admin targets = %v", cfg.Targets.Admin)
	}
}

func TestEnvOrDefault(t *testing.T) {
	for _, tc := range []struct {
		name     string
		key      string
		envVal   string
		fallback string
		want     string
	}{
		{"EmptyUsesDefault", "TEST_ENVDEFAULT_EMPTY", "", "default-val", "default-val"},
		{"SetUsesEnv", "TEST_ENVDEFAULT_SET", "custom", "default-val", "custom"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.envVal)
			got := envOrDefault(tc.key, tc.fallback)
			if got != tc.want {
				t.Errorf("envOrDefault(%q, %q) = %q, want %q", tc.key, tc.fallback, got, tc.want)
			}
		})
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}
