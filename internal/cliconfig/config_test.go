package cliconfig

import (
	"strings"
	"testing"
	"time"

	"github.com/bft-labs/fragship/internal/app"
	"github.com/bft-labs/fragship/pkg/protocol"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Port != DefaultPort || cfg.Fragment != DefaultFragment {
		t.Errorf("port/fragment = %d/%d", cfg.Port, cfg.Fragment)
	}
	if cfg.ListenTimeout != 20*time.Second || cfg.InactivityTimeout != 3*time.Second {
		t.Errorf("timeouts = %v/%v", cfg.ListenTimeout, cfg.InactivityTimeout)
	}
	if !cfg.CompleteOnCount || cfg.Polynomial != "1001" {
		t.Errorf("complete-on-count/polynomial = %v/%s", cfg.CompleteOnCount, cfg.Polynomial)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"port too low", func(c *Config) { c.Port = 80 }, "port"},
		{"port too high", func(c *Config) { c.Port = 70000 }, "port"},
		{"bad polynomial", func(c *Config) { c.Polynomial = "0101" }, "polynomial"},
		{"zero ack timeout", func(c *Config) { c.AckTimeout = 0 }, "ack timeout"},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, "retries"},
		{"negative journal keep", func(c *Config) { c.JournalKeep = -1 }, "journal"},
		{"negative corrupt fragment", func(c *Config) { c.CorruptFragment = -2 }, "corrupt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.StateDir = t.TempDir()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_Derivations(t *testing.T) {
	tests := []struct {
		fragment int
		want     int
	}{
		{0, protocol.MinPayload},
		{-5, protocol.MinPayload},
		{512, 512},
		{5000, protocol.MaxPayload},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Fragment = tt.fragment
		cfg.OutputDir = ""
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
		if cfg.Fragment != tt.want {
			t.Errorf("fragment %d clamped to %d, want %d", tt.fragment, cfg.Fragment, tt.want)
		}
		if cfg.FragmentSize() != tt.want+protocol.HeaderSize {
			t.Errorf("FragmentSize() = %d", cfg.FragmentSize())
		}
		if cfg.OutputDir != "." || cfg.StateDir == "" {
			t.Errorf("derived dirs = %q/%q", cfg.OutputDir, cfg.StateDir)
		}
	}
}

func TestConfig_Engine(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AckTimeout = 2 * time.Second
	cfg.CompleteOnCount = false
	cfg.Polynomial = "1011"

	eng, err := cfg.Engine()
	if err != nil {
		t.Fatalf("Engine: %v", err)
	}
	if eng.AckTimeout != 2*time.Second || eng.CompleteOnCount || eng.Polynomial.String() != "1011" {
		t.Errorf("Engine() = %+v", eng)
	}
	if eng.MaxRetries != app.DefaultMaxRetries {
		t.Errorf("MaxRetries = %d", eng.MaxRetries)
	}
}

func TestConfig_Address(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Address(); got != "127.0.0.1:9090" {
		t.Errorf("Address() = %s", got)
	}
	cfg.Host = "::1"
	if got := cfg.Address(); got != "[::1]:9090" {
		t.Errorf("Address() = %s", got)
	}
}

func TestNewLogger(t *testing.T) {
	var sb strings.Builder
	logger, err := NewLogger(&sb, "warn")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(sb.String(), "hidden") || !strings.Contains(sb.String(), "shown") {
		t.Errorf("output = %q", sb.String())
	}

	if _, err := NewLogger(&sb, "loud"); err == nil {
		t.Error("NewLogger accepted an unknown level")
	}
}
