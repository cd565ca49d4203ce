package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf))

	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9000}
	z.Info("fragment acknowledged",
		String("kind", "ACK"),
		Int("fragment", 2),
		Bool("retransmit", false),
		Duration("wait", 5*time.Second),
		Stringer("peer", addr),
		Err(errors.New("boom")),
	)

	var got map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal %q: %v", buf.String(), err)
	}
	if got["message"] != "fragment acknowledged" {
		t.Errorf("message = %v", got["message"])
	}
	if got["kind"] != "ACK" {
		t.Errorf("kind = %v, want ACK", got["kind"])
	}
	if got["fragment"] != float64(2) {
		t.Errorf("fragment = %v, want 2", got["fragment"])
	}
	if got["peer"] != "127.0.0.1:9000" {
		t.Errorf("peer = %v, want 127.0.0.1:9000", got["peer"])
	}
	if got["error"] != "boom" {
		t.Errorf("error = %v, want boom", got["error"])
	}
}

func TestZerologAdapter_Level(t *testing.T) {
	var buf bytes.Buffer
	z := NewZerologAdapterWithLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))

	z.Debug("hidden")
	z.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
	z.Warn("shown")
	if buf.Len() == 0 {
		t.Fatal("expected warn output")
	}
}

func TestStringer_Nil(t *testing.T) {
	f := Stringer("peer", nil)
	if f.Value != "<nil>" {
		t.Errorf("Value = %v, want <nil>", f.Value)
	}
}
