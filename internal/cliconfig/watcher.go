package cliconfig

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/fragship/internal/ports"
)

// DefaultDebounce is the delay between the last change event and the reload.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads the config file when it changes and hands the result to a
// callback. Flags set on the command line keep their precedence.
type Watcher struct {
	path     string
	base     Config
	changed  map[string]bool
	debounce time.Duration
	logger   ports.Logger
	onChange func(Config)

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher watches path. base is the configuration before the file was
// applied (defaults plus flags) and changed holds the flags set by the user.
func NewWatcher(path string, base Config, changed map[string]bool, logger ports.Logger, onChange func(Config)) *Watcher {
	return &Watcher{
		path:     path,
		base:     base,
		changed:  changed,
		debounce: DefaultDebounce,
		logger:   logger,
		onChange: onChange,
	}
}

// Reload builds the configuration from base, the file and the environment.
func (w *Watcher) Reload() (Config, error) {
	cfg := w.base
	fc, err := LoadFileConfig(w.path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := ApplyFileConfig(&cfg, fc, w.changed); err != nil {
		return Config{}, err
	}
	if err := ApplyEnvConfig(&cfg, w.changed); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run watches until ctx ends. The directory is watched rather than the file
// so editors that replace the file are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.logger.Info("watching config file", ports.String("path", w.path))

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.schedule()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("config watcher error", ports.Err(err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) fire() {
	cfg, err := w.Reload()
	if err != nil {
		w.logger.Warn("ignoring config change", ports.Err(err))
		return
	}
	w.logger.Info("config reloaded", ports.String("path", w.path))
	w.onChange(cfg)
}
