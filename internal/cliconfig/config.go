package cliconfig

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bft-labs/fragship/internal/app"
	"github.com/bft-labs/fragship/pkg/protocol"
)

// Defaults for the CLI.
const (
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 9090
	DefaultFragment    = 1024
	DefaultJournalKeep = 20
	DefaultLogLevel    = "info"

	MinPort = 1024
	MaxPort = 65535
)

// Config holds CLI configuration for fragship.
type Config struct {
	Host string
	Port int

	// Fragment is the payload carried per data datagram, header excluded.
	Fragment int

	OutputDir   string
	StateDir    string
	JournalKeep int

	HandshakeTimeout  time.Duration
	ListenTimeout     time.Duration
	AckTimeout        time.Duration
	InactivityTimeout time.Duration
	CompletionTimeout time.Duration
	MaxRetries        int
	CompleteOnCount   bool
	Polynomial        string

	LogLevel        string
	Once            bool
	WatchConfig     bool
	CorruptFragment int
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Host:              DefaultHost,
		Port:              DefaultPort,
		Fragment:          DefaultFragment,
		OutputDir:         ".",
		StateDir:          "", // derived during Validate
		JournalKeep:       DefaultJournalKeep,
		HandshakeTimeout:  app.DefaultHandshakeTimeout,
		ListenTimeout:     app.DefaultListenTimeout,
		AckTimeout:        app.DefaultAckTimeout,
		InactivityTimeout: app.DefaultInactivityTimeout,
		CompletionTimeout: app.DefaultCompletionTimeout,
		MaxRetries:        app.DefaultMaxRetries,
		CompleteOnCount:   true,
		Polynomial:        protocol.DefaultGenerator,
		LogLevel:          DefaultLogLevel,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
// A fragment size outside the payload bounds is clamped rather than
// rejected.
func (c *Config) Validate() error {
	if c.Port < MinPort || c.Port > MaxPort {
		return fmt.Errorf("port %d outside [%d, %d]", c.Port, MinPort, MaxPort)
	}

	if c.Fragment < protocol.MinPayload {
		c.Fragment = protocol.MinPayload
	}
	if c.Fragment > protocol.MaxPayload {
		c.Fragment = protocol.MaxPayload
	}

	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.StateDir == "" {
		if h, err := os.UserHomeDir(); err == nil {
			c.StateDir = filepath.Join(h, ".fragship")
		} else {
			c.StateDir = ".fragship"
		}
	}

	if c.JournalKeep < 0 {
		return fmt.Errorf("journal keep must not be negative")
	}
	if c.CorruptFragment < 0 {
		return fmt.Errorf("corrupt fragment must not be negative")
	}
	if _, err := protocol.NewPolynomial(c.Polynomial); err != nil {
		return fmt.Errorf("polynomial: %w", err)
	}
	if _, err := c.Engine(); err != nil {
		return err
	}
	return nil
}

// Engine converts the protocol settings.
func (c Config) Engine() (app.EngineConfig, error) {
	poly, err := protocol.NewPolynomial(c.Polynomial)
	if err != nil {
		return app.EngineConfig{}, fmt.Errorf("polynomial: %w", err)
	}
	cfg := app.EngineConfig{
		HandshakeTimeout:  c.HandshakeTimeout,
		ListenTimeout:     c.ListenTimeout,
		AckTimeout:        c.AckTimeout,
		InactivityTimeout: c.InactivityTimeout,
		CompletionTimeout: c.CompletionTimeout,
		MaxRetries:        c.MaxRetries,
		CompleteOnCount:   c.CompleteOnCount,
		Polynomial:        poly,
	}
	if err := cfg.Validate(); err != nil {
		return app.EngineConfig{}, err
	}
	return cfg, nil
}

// Address returns host:port.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// FragmentSize returns the datagram capacity, header included.
func (c Config) FragmentSize() int {
	return c.Fragment + protocol.HeaderSize
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntPtr sets an int value from a pointer, zero included.
func (s *configSetter) setIntPtr(flag string, value *int, dst *int) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i < 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
