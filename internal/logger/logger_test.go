package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"info":    slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestFileWriterDefaults(t *testing.T) {
	if w := (FileConfig{}).Writer(); w != nil {
		t.Fatalf("expected nil writer without path")
	}
	w := FileConfig{Path: "x.log"}.Writer()
	l, ok := w.(*lj.Logger)
	if !ok {
		t.Fatalf("writer is not lumberjack.Logger")
	}
	if l.MaxSize != 10 || l.MaxBackups != 3 || l.MaxAge != 7 {
		t.Fatalf("unexpected defaults: size=%d backups=%d age=%d", l.MaxSize, l.MaxBackups, l.MaxAge)
	}
	w = FileConfig{Path: "x.log", MaxSizeMB: 1, MaxBackups: 9, MaxAgeDays: 2, Compress: true}.Writer()
	l = w.(*lj.Logger)
	if l.MaxSize != 1 || l.MaxBackups != 9 || l.MaxAge != 2 || !l.Compress {
		t.Fatalf("overrides not applied: %+v", l)
	}
}

func TestNewTextAndLevel(t *testing.T) {
	var buf bytes.Buffer
	lg, c, err := newWithStderr(Config{Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = c.Close() }()
	lg.Info("hidden")
	lg.Warn("shown", "pid", 42)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") || !strings.Contains(out, "pid=42") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestNewJSONWithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graphdev.log")
	var buf bytes.Buffer
	lg, c, err := newWithStderr(Config{Format: FormatJSON, Color: true, File: FileConfig{Path: path}}, &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	lg.Info("started", "subgraph", "products")
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("stderr output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["subgraph"] != "products" {
		t.Fatalf("missing attr: %v", rec)
	}
	b, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(b), `"msg":"started"`) {
		t.Fatalf("file not written: %v %q", err, string(b))
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, _, err := New(Config{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if _, _, err := New(Config{Level: "nope"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestColorTextHandler(t *testing.T) {
	var buf bytes.Buffer
	lg, c, err := newWithStderr(Config{Color: true, Level: "debug"}, &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = c.Close() }()
	lg.With("component", "runner").Error("boom")
	out := buf.String()
	if !strings.Contains(out, "\033[31mERROR") || !strings.Contains(out, "component=runner") {
		t.Fatalf("expected coloured error with attrs, got %q", out)
	}
}
