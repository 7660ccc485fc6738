// Package config loads server configuration from PARKD_* environment
// variables, with an optional TOML facility file for the pricing and
// capacity settings. Environment variables win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/kerbside/parkd/internal/billing"
	"github.com/kerbside/parkd/internal/facility"
	"github.com/kerbside/parkd/internal/gate"
)

type Config struct {
	DatabaseURL string // PARKD_DATABASE_URL (optional, empty = in-memory store)
	HTTPAddr    string // PARKD_HTTP_ADDR (default ":8080")
	NATSURL     string // PARKD_NATS_URL (optional, empty = no events)
	AuthToken   string // PARKD_AUTH_TOKEN (optional, empty = auth disabled)

	// Facility settings
	Capacity  int                  // PARKD_CAPACITY (default 100)
	AutoClose time.Duration        // PARKD_AUTO_CLOSE (default 10s)
	Rates     billing.RateSchedule // PARKD_HOURLY_CENTS / _MINIMUM_CENTS / _DAY_MAX_CENTS

	// Ledger export settings
	LedgerInterval   time.Duration // PARKD_LEDGER_INTERVAL (default 3m; 0 = disabled)
	LedgerS3Bucket   string        // PARKD_LEDGER_S3_BUCKET (enables S3 when set)
	LedgerS3Endpoint string        // PARKD_LEDGER_S3_ENDPOINT (custom endpoint for MinIO)
	LedgerS3Region   string        // PARKD_LEDGER_S3_REGION (default "us-east-1")
	LedgerS3Key      string        // PARKD_LEDGER_S3_KEY (default "parkd/ledger.jsonl")
	LedgerGitRepo    string        // PARKD_LEDGER_GIT_REPO (enables git when set; path to clone)
	LedgerGitFile    string        // PARKD_LEDGER_GIT_FILE (default "parkd.jsonl")
	LedgerGitBranch  string        // PARKD_LEDGER_GIT_BRANCH (default "main")
}

// fileConfig is the shape of the optional TOML facility file pointed at by
// PARKD_CONFIG.
type fileConfig struct {
	Capacity  int                  `toml:"capacity"`
	AutoClose string               `toml:"auto_close"`
	Rates     billing.RateSchedule `toml:"rates"`
}

func Load() (*Config, error) {
	c := &Config{
		DatabaseURL:      os.Getenv("PARKD_DATABASE_URL"),
		HTTPAddr:         envOrDefault("PARKD_HTTP_ADDR", ":8080"),
		NATSURL:          os.Getenv("PARKD_NATS_URL"),
		AuthToken:        os.Getenv("PARKD_AUTH_TOKEN"),
		Capacity:         facility.DefaultCapacity,
		AutoClose:        gate.DefaultAutoClose,
		Rates:            billing.DefaultRates,
		LedgerS3Bucket:   os.Getenv("PARKD_LEDGER_S3_BUCKET"),
		LedgerS3Endpoint: os.Getenv("PARKD_LEDGER_S3_ENDPOINT"),
		LedgerS3Region:   envOrDefault("PARKD_LEDGER_S3_REGION", "us-east-1"),
		LedgerS3Key:      envOrDefault("PARKD_LEDGER_S3_KEY", "parkd/ledger.jsonl"),
		LedgerGitRepo:    os.Getenv("PARKD_LEDGER_GIT_REPO"),
		LedgerGitFile:    envOrDefault("PARKD_LEDGER_GIT_FILE", "parkd.jsonl"),
		LedgerGitBranch:  envOrDefault("PARKD_LEDGER_GIT_BRANCH", "main"),
	}

	if path := os.Getenv("PARKD_CONFIG"); path != "" {
		if err := c.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := c.applyEnvOverrides(); err != nil {
		return nil, err
	}

	intervalStr := envOrDefault("PARKD_LEDGER_INTERVAL", "3m")
	d, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("PARKD_LEDGER_INTERVAL: %w", err)
	}
	c.LedgerInterval = d

	if c.Capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", c.Capacity)
	}
	if !c.Rates.Valid() {
		return nil, fmt.Errorf("invalid rate schedule: %+v", c.Rates)
	}

	return c, nil
}

// applyFile merges the TOML facility file into the config. Only set fields
// override the defaults.
func (c *Config) applyFile(path string) error {
	var fc fileConfig
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if fc.Capacity > 0 {
		c.Capacity = fc.Capacity
	}
	if fc.AutoClose != "" {
		d, err := time.ParseDuration(fc.AutoClose)
		if err != nil {
			return fmt.Errorf("%s: auto_close: %w", path, err)
		}
		c.AutoClose = d
	}
	if fc.Rates != (billing.RateSchedule{}) {
		c.Rates = fc.Rates
	}
	return nil
}

// applyEnvOverrides applies the facility env vars, which win over the TOML
// file.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("PARKD_CAPACITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PARKD_CAPACITY: %w", err)
		}
		c.Capacity = n
	}
	if v := os.Getenv("PARKD_AUTO_CLOSE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("PARKD_AUTO_CLOSE: %w", err)
		}
		c.AutoClose = d
	}
	for _, ev := range []struct {
		name string
		dst  *int64
	}{
		{"PARKD_HOURLY_CENTS", &c.Rates.HourlyCents},
		{"PARKD_MINIMUM_CENTS", &c.Rates.MinimumCents},
		{"PARKD_DAY_MAX_CENTS", &c.Rates.DayMaxCents},
	} {
		if v := os.Getenv(ev.name); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", ev.name, err)
			}
			*ev.dst = n
		}
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
