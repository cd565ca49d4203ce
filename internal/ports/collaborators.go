package ports

import (
	"context"

	"github.com/bft-labs/fragship/internal/domain"
)

// PathResolver chooses where a received file is written.
type PathResolver interface {
	// Exists reports whether path is already taken.
	Exists(path string) bool

	// Resolve returns a path for name that does not collide with an existing
	// file, appending "(n)" before the extension with the smallest free n.
	Resolve(name string) (string, error)
}

// Journal is a persistent log of transfer events. It is not required for
// correctness; implementations must not block the engines for long.
type Journal interface {
	Record(event string, fields ...Field)
	Close() error
}

// ReportRepository persists the most recent transfer report.
type ReportRepository interface {
	// Load returns the last saved report and false if none exists.
	Load(ctx context.Context) (domain.TransferReport, bool, error)

	// Save persists the report atomically.
	Save(ctx context.Context, report domain.TransferReport) error
}
