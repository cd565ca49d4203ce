package fragship

import (
	"io"
	"time"

	"github.com/bft-labs/fragship/internal/app"
	"github.com/bft-labs/fragship/internal/ports"
	"github.com/bft-labs/fragship/pkg/log"
)

// Option configures optional behavior of senders and servers.
type Option func(*options)

// options holds the optional configuration shared by SendFile, SendText and
// NewServer. Options that do not apply to a call are ignored.
type options struct {
	logger          ports.Logger
	settings        Settings
	journal         ports.Journal
	reportDir       string
	onReport        func(Report)
	observer        StateObserver
	console         io.Writer
	once            bool
	sessionTTL      time.Duration
	corruptFragment int
}

// defaultOptions returns options with sensible defaults.
func defaultOptions() options {
	return options{
		logger:     log.NewNoopLogger(),
		settings:   DefaultSettings(),
		sessionTTL: app.DefaultSessionTTL,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithSettings replaces the protocol timings, retry limit, completion rule
// and checksum generator.
func WithSettings(s Settings) Option {
	return func(o *options) {
		o.settings = s
	}
}

// WithJournal records handshake and transfer events to j.
// The caller keeps ownership and closes it.
func WithJournal(j Journal) Option {
	return func(o *options) {
		o.journal = j
	}
}

// WithReportDir persists the report of every transfer to dir/status.json.
func WithReportDir(dir string) Option {
	return func(o *options) {
		o.reportDir = dir
	}
}

// WithOnReport calls fn with the report of every transfer attempt.
// It is called synchronously; implementations should return quickly.
func WithOnReport(fn func(Report)) Option {
	return func(o *options) {
		o.onReport = fn
	}
}

// WithStateObserver is notified of every server lifecycle transition.
func WithStateObserver(observer StateObserver) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithConsole sets where a server writes received text messages.
// Defaults to discarding them.
func WithConsole(w io.Writer) Option {
	return func(o *options) {
		o.console = w
	}
}

// WithOnce makes Server.Run return after the first listen attempt.
func WithOnce(once bool) Option {
	return func(o *options) {
		o.once = once
	}
}

// WithSessionTTL bounds how long a server keeps a session it never closed.
func WithSessionTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.sessionTTL = ttl
		}
	}
}

// WithCorruptFragment damages the n-th outgoing data datagram (1-based) once,
// so the receiver rejects it and the sender has to retransmit.
// Zero disables it.
func WithCorruptFragment(n int) Option {
	return func(o *options) {
		o.corruptFragment = n
	}
}
