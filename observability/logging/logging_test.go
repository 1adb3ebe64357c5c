package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetupWriterEmitsRenamedKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWriter(&buf, "justfriendsd", "test", "debug")
	defer slog.SetDefault(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	logger.Debug("hello", slog.String("hash", "0x01"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	for key, want := range map[string]string{
		"message":  "hello",
		"severity": "DEBUG",
		"service":  "justfriendsd",
		"env":      "test",
		"hash":     "0x01",
	} {
		if line[key] != want {
			t.Fatalf("%s = %v, want %s", key, line[key], want)
		}
	}
	if _, ok := line["timestamp"]; !ok {
		t.Fatalf("missing timestamp in %v", line)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInfoLevelDropsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWriter(&buf, "svc", "", "info")
	defer slog.SetDefault(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	logger.Debug("quiet")
	if buf.Len() != 0 {
		t.Fatalf("debug line leaked at info level: %s", buf.String())
	}
}

func TestFileWriterAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.log")
	w, err := FileWriter(path)
	if err != nil {
		t.Fatalf("file writer: %v", err)
	}
	logger := SetupWriter(w, "justfriendsd", "", "info")
	defer slog.SetDefault(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	logger.Info("rotated")
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), `"message":"rotated"`) {
		t.Fatalf("unexpected log file %q", raw)
	}
	if _, err := FileWriter(" "); err == nil {
		t.Fatalf("expected empty path to fail")
	}
}
