package cliconfig

import (
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	Fragment          int    `toml:"fragment"`
	OutputDir         string `toml:"output_dir"`
	StateDir          string `toml:"state_dir"`
	JournalKeep       *int   `toml:"journal_keep"`
	HandshakeTimeout  string `toml:"handshake_timeout"`
	ListenTimeout     string `toml:"listen_timeout"`
	AckTimeout        string `toml:"ack_timeout"`
	InactivityTimeout string `toml:"inactivity_timeout"`
	CompletionTimeout string `toml:"completion_timeout"`
	MaxRetries        *int   `toml:"max_retries"`
	CompleteOnCount   *bool  `toml:"complete_on_count"`
	Polynomial        string `toml:"polynomial"`
	LogLevel          string `toml:"log_level"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.fragship/config.toml, or "" if the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".fragship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("host", fc.Host, &cfg.Host)
	s.setString("output-dir", fc.OutputDir, &cfg.OutputDir)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("polynomial", fc.Polynomial, &cfg.Polynomial)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	s.setInt("port", fc.Port, &cfg.Port)
	s.setInt("fragment", fc.Fragment, &cfg.Fragment)
	s.setIntPtr("journal-keep", fc.JournalKeep, &cfg.JournalKeep)
	s.setIntPtr("max-retries", fc.MaxRetries, &cfg.MaxRetries)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"handshake-timeout", fc.HandshakeTimeout, &cfg.HandshakeTimeout},
		{"listen-timeout", fc.ListenTimeout, &cfg.ListenTimeout},
		{"ack-timeout", fc.AckTimeout, &cfg.AckTimeout},
		{"inactivity-timeout", fc.InactivityTimeout, &cfg.InactivityTimeout},
		{"completion-timeout", fc.CompletionTimeout, &cfg.CompletionTimeout},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setBool("complete-on-count", fc.CompleteOnCount, &cfg.CompleteOnCount)
	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
