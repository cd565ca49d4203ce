// Package journal writes transfer events to a JSON-lines file, one file per
// process run, and prunes old journals.
package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bft-labs/fragship/internal/ports"
	"github.com/bft-labs/fragship/pkg/log"
)

const (
	filePrefix = "transfer_"
	fileSuffix = ".log"
	timeLayout = "20060102_150405"

	// DefaultKeep is the number of journal files retained.
	DefaultKeep = 20
)

// File is a ports.Journal backed by transfer_YYYYMMDD_HHMMSS.log.
type File struct {
	f      *os.File
	logger zerolog.Logger
}

var _ ports.Journal = (*File)(nil)

// FileName returns the journal name for a run started at t.
func FileName(t time.Time) string {
	return filePrefix + t.Format(timeLayout) + fileSuffix
}

// Open creates (or appends to) the journal for a run started at now in dir,
// then deletes all but the newest keep journals. keep <= 0 disables pruning.
func Open(dir string, now time.Time, keep int, logger ports.Logger) (*File, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	path := filepath.Join(dir, FileName(now))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if keep > 0 {
		removed, err := Prune(dir, keep)
		if err != nil && logger != nil {
			logger.Warn("journal pruning failed", ports.Err(err))
		}
		if len(removed) > 0 && logger != nil {
			logger.Debug("pruned old journals", ports.Int("removed", len(removed)))
		}
	}

	return &File{
		f:      f,
		logger: zerolog.New(f).With().Timestamp().Logger(),
	}, nil
}

// Path returns the journal file path.
func (j *File) Path() string { return j.f.Name() }

// Record appends one event line.
func (j *File) Record(event string, fields ...ports.Field) {
	e := j.logger.Log().Str("event", event)
	for _, f := range fields {
		e = log.AppendField(e, f)
	}
	e.Send()
}

// Close closes the file.
func (j *File) Close() error { return j.f.Close() }

// Prune removes the oldest journals in dir so that at most keep remain, and
// returns the removed paths. Files that do not look like journals are left
// alone.
func Prune(dir string, keep int) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range ents {
		if !e.IsDir() && isJournal(e.Name()) {
			names = append(names, e.Name())
		}
	}
	if len(names) <= keep {
		return nil, nil
	}
	// The timestamp layout sorts lexically in time order.
	sort.Strings(names)

	var removed []string
	var firstErr error
	for _, name := range names[:len(names)-keep] {
		path := filepath.Join(dir, name)
		if err := os.Remove(path); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed = append(removed, path)
	}
	return removed, firstErr
}

func isJournal(name string) bool {
	if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
		return false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	_, err := time.Parse(timeLayout, stamp)
	return err == nil
}
