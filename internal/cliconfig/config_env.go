package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "FRAGSHIP_"

// ApplyEnvConfig applies configuration from environment variables (FRAGSHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(name string) string { return os.Getenv(EnvPrefix + name) }

	s.setString("host", env("HOST"), &cfg.Host)
	s.setString("output-dir", env("OUTPUT_DIR"), &cfg.OutputDir)
	s.setString("state-dir", env("STATE_DIR"), &cfg.StateDir)
	s.setString("polynomial", env("POLYNOMIAL"), &cfg.Polynomial)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)

	ints := []struct {
		flag string
		name string
		dst  *int
	}{
		{"port", "PORT", &cfg.Port},
		{"fragment", "FRAGMENT", &cfg.Fragment},
		{"journal-keep", "JOURNAL_KEEP", &cfg.JournalKeep},
		{"max-retries", "MAX_RETRIES", &cfg.MaxRetries},
	}
	for _, i := range ints {
		if err := s.setIntFromString(i.flag, env(i.name), i.dst); err != nil {
			return err
		}
	}

	if err := s.setDuration("handshake-timeout", env("HANDSHAKE_TIMEOUT"), &cfg.HandshakeTimeout); err != nil {
		return err
	}
	if err := s.setDuration("listen-timeout", env("LISTEN_TIMEOUT"), &cfg.ListenTimeout); err != nil {
		return err
	}
	if err := s.setDuration("ack-timeout", env("ACK_TIMEOUT"), &cfg.AckTimeout); err != nil {
		return err
	}
	if err := s.setDuration("inactivity-timeout", env("INACTIVITY_TIMEOUT"), &cfg.InactivityTimeout); err != nil {
		return err
	}
	if err := s.setDuration("completion-timeout", env("COMPLETION_TIMEOUT"), &cfg.CompletionTimeout); err != nil {
		return err
	}

	s.setBoolFromString("complete-on-count", env("COMPLETE_ON_COUNT"), &cfg.CompleteOnCount)
	return nil
}
