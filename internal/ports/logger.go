package ports

import "github.com/bft-labs/fragship/pkg/log"

// Logger is the logging port. It is the pkg/log interface so external
// loggers plug in without adapters.
type Logger = log.Logger

// NoopLogger discards everything.
type NoopLogger = log.NoopLogger

// Field is a structured logging field.
type Field = log.Field

// Field constructors re-exported for app code.
var (
	String   = log.String
	Int      = log.Int
	Int64    = log.Int64
	Bool     = log.Bool
	Duration = log.Duration
	Stringer = log.Stringer
	Err      = log.Err
	Any      = log.Any
)
