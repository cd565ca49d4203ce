package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bft-labs/fragship/internal/ports"
)

func TestFileName(t *testing.T) {
	got := FileName(time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC))
	if got != "transfer_20240309_070501.log" {
		t.Errorf("FileName = %s", got)
	}
}

func TestRecord_WritesJSONLines(t *testing.T) {
	dir := t.TempDir()
	j, err := Open(dir, time.Now(), 0, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	j.Record("session_started", ports.String("peer", "127.0.0.1:9000"), ports.Int("fragments", 3))
	j.Record("transfer_finished", ports.Err(errors.New("boom")))
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(j.Path())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q is not JSON: %v", sc.Text(), err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if lines[0]["event"] != "session_started" || lines[0]["peer"] != "127.0.0.1:9000" || lines[0]["fragments"] != float64(3) {
		t.Errorf("line 0 = %v", lines[0])
	}
	if lines[1]["error"] != "boom" {
		t.Errorf("line 1 = %v", lines[1])
	}
	if _, ok := lines[0]["time"]; !ok {
		t.Error("line 0 has no timestamp")
	}
}

func TestOpen_PrunesOldJournals(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		path := filepath.Join(dir, FileName(base.Add(time.Duration(i)*time.Hour)))
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	unrelated := filepath.Join(dir, "transfer_notes.log")
	if err := os.WriteFile(unrelated, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	j, err := Open(dir, base.Add(24*time.Hour), 2, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer j.Close()

	ents, _ := os.ReadDir(dir)
	var names []string
	for _, e := range ents {
		names = append(names, e.Name())
	}
	want := map[string]bool{
		FileName(base.Add(3 * time.Hour)):  true,
		FileName(base.Add(24 * time.Hour)): true,
		"transfer_notes.log":               true,
	}
	if len(names) != len(want) {
		t.Fatalf("dir holds %v, want %v", names, want)
	}
	for _, n := range names {
		if !want[n] {
			t.Errorf("unexpected file %s kept", n)
		}
	}
}

func TestPrune_NothingToDo(t *testing.T) {
	dir := t.TempDir()
	removed, err := Prune(dir, 5)
	if err != nil || len(removed) != 0 {
		t.Errorf("Prune on empty dir = %v, %v", removed, err)
	}
}
