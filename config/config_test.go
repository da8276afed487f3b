package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Driver != DriverChromedp {
		t.Errorf("Driver: got %q, want %q", cfg.Driver, DriverChromedp)
	}
	if cfg.ScrollPause != 2*time.Second {
		t.Errorf("ScrollPause: got %v, want 2s", cfg.ScrollPause)
	}
	if cfg.ClickWait != 3*time.Second {
		t.Errorf("ClickWait: got %v, want 3s", cfg.ClickWait)
	}
	if cfg.ClickTimeout != 5*time.Second {
		t.Errorf("ClickTimeout: got %v, want 5s", cfg.ClickTimeout)
	}
	if cfg.OperationTimeout != 10*time.Second {
		t.Errorf("OperationTimeout: got %v, want 10s", cfg.OperationTimeout)
	}
	if cfg.MaxRevealAttempts != 50 {
		t.Errorf("MaxRevealAttempts: got %d, want 50", cfg.MaxRevealAttempts)
	}
	if cfg.FingerprintChars != 100 {
		t.Errorf("FingerprintChars: got %d, want 100", cfg.FingerprintChars)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TARGET_URL", "https://example.com/list")
	t.Setenv("BROWSER_DRIVER", "ROD")
	t.Setenv("SCROLL_PAUSE_MS", "250")
	t.Setenv("MAX_REVEAL_ATTEMPTS", "7")
	t.Setenv("HEADLESS", "false")
	t.Setenv("BATCH_SIZE", "not-a-number")

	cfg := Load()

	if cfg.TargetURL != "https://example.com/list" {
		t.Errorf("TargetURL: got %q", cfg.TargetURL)
	}
	if cfg.Driver != DriverRod {
		t.Errorf("Driver: got %q, want %q", cfg.Driver, DriverRod)
	}
	if cfg.ScrollPause != 250*time.Millisecond {
		t.Errorf("ScrollPause: got %v, want 250ms", cfg.ScrollPause)
	}
	if cfg.MaxRevealAttempts != 7 {
		t.Errorf("MaxRevealAttempts: got %d, want 7", cfg.MaxRevealAttempts)
	}
	if cfg.Headless {
		t.Error("Headless should be false")
	}
	if cfg.BatchSize != 25 {
		t.Errorf("BatchSize should fall back to 25 on bad input, got %d", cfg.BatchSize)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad selector", func(c *Config) { c.ItemSelector = "div[" }, "ITEM_SELECTOR"},
		{"empty selector", func(c *Config) { c.TitleSelector = " " }, "TITLE_SELECTOR is empty"},
		{"zero cap", func(c *Config) { c.MaxRevealAttempts = 0 }, "MAX_REVEAL_ATTEMPTS"},
		{"zero scroll rounds", func(c *Config) { c.MaxScrollRounds = 0 }, "MAX_SCROLL_ROUNDS"},
		{"unknown driver", func(c *Config) { c.Driver = "selenium" }, "unknown BROWSER_DRIVER"},
		{"static without replay", func(c *Config) { c.Driver = DriverStatic }, "REPLAY_DIR"},
		{"no url", func(c *Config) { c.TargetURL = "" }, "TARGET_URL"},
		{"zero operation timeout", func(c *Config) { c.OperationTimeout = 0 }, "timeouts must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost: "db", PostgresPort: "5433", PostgresUser: "u",
		PostgresPassword: "p", PostgresDB: "d", PostgresSSLMode: "disable",
	}
	want := "host=db port=5433 user=u password=p dbname=d sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN: got %q, want %q", got, want)
	}
}
