package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"verbose": zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBuild_JSONToConsole(t *testing.T) {
	var buf bytes.Buffer
	log, err := build(Options{Level: "info"}, &buf)
	if err != nil {
		t.Fatalf("build() error: %v", err)
	}
	log.Debug("hidden")
	log.Info("recorded", zap.Int64("child_id", 7))
	log.Sync()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1 (debug filtered): %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "recorded" || entry["child_id"] != float64(7) {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestBuild_FileSink(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "ganbari.log")
	var buf bytes.Buffer
	log, err := build(Options{File: file}, &buf)
	if err != nil {
		t.Fatalf("build() error: %v", err)
	}
	log.Warn("decay applied")
	log.Sync()

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "decay applied") {
		t.Errorf("log file missing entry: %q", data)
	}
}
