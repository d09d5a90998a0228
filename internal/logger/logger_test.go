package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "modal.log")
	cfg := DefaultFileConfig(logFile)
	cfg.Compress = false

	if err := InitWithFileConfig("debug", cfg, false); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	Named("bank").Debug("coefficients derived", zap.Int("modes", 12))
	Info("object ready", zap.String("object", "plate"))
	Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	text := string(data)
	for _, want := range []string{"coefficients derived", `"modes":12`, `"logger":"bank"`, "object ready"} {
		if !strings.Contains(text, want) {
			t.Errorf("log file missing %q:\n%s", want, text)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "warn.log")
	if err := InitWithFileConfig("warn", FileConfig{Path: logFile, MaxSizeMB: 1}, false); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}
	Debug("hidden debug")
	Info("hidden info")
	Warn("visible warn")
	Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if strings.Contains(string(data), "hidden") {
		t.Errorf("expected debug/info to be filtered:\n%s", data)
	}
	if !strings.Contains(string(data), "visible warn") {
		t.Errorf("expected warn entry:\n%s", data)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARNING": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
