package cliconfig

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/bft-labs/fragship/pkg/log"
)

// NewLogger returns a console zerolog logger at the named level
// (debug, info, warn, error).
func NewLogger(w io.Writer, level string) (*log.ZerologAdapter, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return log.NewZerologAdapter(w, lvl), nil
}
