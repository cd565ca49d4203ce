package cliconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bft-labs/fragship/pkg/log"
)

func TestWatcher_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("listen_timeout = \"3s\"\nport = 6000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	base := DefaultConfig()
	base.StateDir = t.TempDir()
	base.Port = 7000
	w := NewWatcher(path, base, map[string]bool{"port": true}, log.NewNoopLogger(), func(Config) {})

	cfg, err := w.Reload()
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if cfg.ListenTimeout != 3*time.Second {
		t.Errorf("ListenTimeout = %v, want 3s", cfg.ListenTimeout)
	}
	if cfg.Port != 7000 {
		t.Errorf("Port = %d, want flag value 7000", cfg.Port)
	}
}

func TestWatcher_ReloadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("ack_timeout = \"-1s\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewWatcher(path, DefaultConfig(), map[string]bool{}, log.NewNoopLogger(), func(Config) {})
	if _, err := w.Reload(); err == nil {
		t.Error("Reload accepted a negative timeout")
	}
}

func TestWatcher_RunDeliversChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("listen_timeout = \"3s\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	base := DefaultConfig()
	base.StateDir = dir
	got := make(chan Config, 4)
	w := NewWatcher(path, base, map[string]bool{}, log.NewNoopLogger(), func(c Config) { got <- c })
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("listen_timeout = \"8s\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-got:
		if c.ListenTimeout != 8*time.Second {
			t.Errorf("ListenTimeout = %v, want 8s", c.ListenTimeout)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload delivered")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run = %v", err)
	}
}
