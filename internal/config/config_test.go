package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kerbside/parkd/internal/billing"
)

// allEnvVars lists the env vars that must be cleared between tests.
var allEnvVars = []string{
	"PARKD_DATABASE_URL", "PARKD_HTTP_ADDR", "PARKD_NATS_URL", "PARKD_AUTH_TOKEN",
	"PARKD_CONFIG", "PARKD_CAPACITY", "PARKD_AUTO_CLOSE",
	"PARKD_HOURLY_CENTS", "PARKD_MINIMUM_CENTS", "PARKD_DAY_MAX_CENTS",
	"PARKD_LEDGER_INTERVAL", "PARKD_LEDGER_S3_BUCKET", "PARKD_LEDGER_S3_ENDPOINT",
	"PARKD_LEDGER_S3_REGION", "PARKD_LEDGER_S3_KEY", "PARKD_LEDGER_GIT_REPO",
	"PARKD_LEDGER_GIT_FILE", "PARKD_LEDGER_GIT_BRANCH",
}

func clearAllEnv(t *testing.T) {
	t.Helper()
	for _, key := range allEnvVars {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearAllEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q, want empty (in-memory)", cfg.DatabaseURL)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.Capacity != 100 {
		t.Errorf("Capacity = %d, want 100", cfg.Capacity)
	}
	if cfg.AutoClose != 10*time.Second {
		t.Errorf("AutoClose = %v, want 10s", cfg.AutoClose)
	}
	if cfg.Rates != billing.DefaultRates {
		t.Errorf("Rates = %+v, want defaults", cfg.Rates)
	}
	if cfg.LedgerInterval != 3*time.Minute {
		t.Errorf("LedgerInterval = %v, want 3m", cfg.LedgerInterval)
	}
	if cfg.LedgerS3Key != "parkd/ledger.jsonl" {
		t.Errorf("LedgerS3Key = %q", cfg.LedgerS3Key)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("PARKD_DATABASE_URL", "postgres://db:5432/parkd")
	t.Setenv("PARKD_HTTP_ADDR", ":3000")
	t.Setenv("PARKD_NATS_URL", "nats://localhost:4222")
	t.Setenv("PARKD_AUTH_TOKEN", "secret")
	t.Setenv("PARKD_CAPACITY", "42")
	t.Setenv("PARKD_AUTO_CLOSE", "5s")
	t.Setenv("PARKD_HOURLY_CENTS", "300")
	t.Setenv("PARKD_MINIMUM_CENTS", "100")
	t.Setenv("PARKD_DAY_MAX_CENTS", "3000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://db:5432/parkd" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.HTTPAddr != ":3000" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.NATSURL != "nats://localhost:4222" {
		t.Errorf("NATSURL = %q", cfg.NATSURL)
	}
	if cfg.AuthToken != "secret" {
		t.Errorf("AuthToken = %q", cfg.AuthToken)
	}
	if cfg.Capacity != 42 {
		t.Errorf("Capacity = %d, want 42", cfg.Capacity)
	}
	if cfg.AutoClose != 5*time.Second {
		t.Errorf("AutoClose = %v, want 5s", cfg.AutoClose)
	}
	want := billing.RateSchedule{HourlyCents: 300, MinimumCents: 100, DayMaxCents: 3000}
	if cfg.Rates != want {
		t.Errorf("Rates = %+v, want %+v", cfg.Rates, want)
	}
}

func TestLoadTOMLFile(t *testing.T) {
	clearAllEnv(t)

	path := filepath.Join(t.TempDir(), "facility.toml")
	content := `
capacity = 50
auto_close = "20s"

[rates]
hourly_cents = 400
minimum_cents = 200
day_max_cents = 4000
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv("PARKD_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Capacity != 50 {
		t.Errorf("Capacity = %d, want 50", cfg.Capacity)
	}
	if cfg.AutoClose != 20*time.Second {
		t.Errorf("AutoClose = %v, want 20s", cfg.AutoClose)
	}
	want := billing.RateSchedule{HourlyCents: 400, MinimumCents: 200, DayMaxCents: 4000}
	if cfg.Rates != want {
		t.Errorf("Rates = %+v, want %+v", cfg.Rates, want)
	}
}

func TestLoadEnvWinsOverTOML(t *testing.T) {
	clearAllEnv(t)

	path := filepath.Join(t.TempDir(), "facility.toml")
	if err := os.WriteFile(path, []byte("capacity = 50\n"), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv("PARKD_CONFIG", path)
	t.Setenv("PARKD_CAPACITY", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Capacity != 7 {
		t.Errorf("Capacity = %d, want env override 7", cfg.Capacity)
	}
}

func TestLoadInvalid(t *testing.T) {
	for _, tc := range []struct {
		name string
		env  map[string]string
	}{
		{"BadCapacity", map[string]string{"PARKD_CAPACITY": "lots"}},
		{"ZeroCapacity", map[string]string{"PARKD_CAPACITY": "0"}},
		{"BadAutoClose", map[string]string{"PARKD_AUTO_CLOSE": "soon"}},
		{"BadHourly", map[string]string{"PARKD_HOURLY_CENTS": "2.50"}},
		{"NegativeHourly", map[string]string{"PARKD_HOURLY_CENTS": "-1"}},
		{"MinimumAboveDayMax", map[string]string{"PARKD_MINIMUM_CENTS": "5000"}},
		{"BadLedgerInterval", map[string]string{"PARKD_LEDGER_INTERVAL": "not-a-duration"}},
		{"MissingConfigFile", map[string]string{"PARKD_CONFIG": "/nonexistent/facility.toml"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			clearAllEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoadLedgerSettings(t *testing.T) {
	clearAllEnv(t)
	t.Setenv("PARKD_LEDGER_INTERVAL", "10m")
	t.Setenv("PARKD_LEDGER_S3_BUCKET", "my-bucket")
	t.Setenv("PARKD_LEDGER_S3_ENDPOINT", "http://minio:9000")
	t.Setenv("PARKD_LEDGER_S3_REGION", "eu-west-1")
	t.Setenv("PARKD_LEDGER_S3_KEY", "custom/key.jsonl")
	t.Setenv("PARKD_LEDGER_GIT_REPO", "/tmp/repo")
	t.Setenv("PARKD_LEDGER_GIT_FILE", "custom.jsonl")
	t.Setenv("PARKD_LEDGER_GIT_BRANCH", "backup")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LedgerInterval != 10*time.Minute {
		t.Errorf("LedgerInterval = %v, want 10m", cfg.LedgerInterval)
	}
	if cfg.LedgerS3Bucket != "my-bucket" || cfg.LedgerS3Endpoint != "http://minio:9000" ||
		cfg.LedgerS3Region != "eu-west-1" || cfg.LedgerS3Key != "custom/key.jsonl" {
		t.Errorf("S3 settings = %+v", cfg)
	}
	if cfg.LedgerGitRepo != "/tmp/repo" || cfg.LedgerGitFile != "custom.jsonl" || cfg.LedgerGitBranch != "backup" {
		t.Errorf("git settings = %+v", cfg)
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
