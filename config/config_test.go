package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cwbudde/algo-modal/modal"
	"github.com/cwbudde/algo-modal/provider"
	"github.com/cwbudde/algo-modal/stream"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("expected sample rate 48000, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.QueueDepth < 2 {
		t.Errorf("expected queue depth >= 2, got %d", cfg.Audio.QueueDepth)
	}
	if cfg.Synth.GainPolicy != "block" {
		t.Errorf("expected block gain policy, got %s", cfg.Synth.GainPolicy)
	}
	if cfg.Contact.MaxPoints != 10 {
		t.Errorf("expected 10 contact points, got %d", cfg.Contact.MaxPoints)
	}
	if cfg.Friction.SilenceDB != -80 {
		t.Errorf("expected -80 dB friction silence, got %v", cfg.Friction.SilenceDB)
	}
	if cfg.Provider.Timeout != 30*time.Second {
		t.Errorf("expected 30s provider timeout, got %v", cfg.Provider.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "modal.yaml")
	yamlContent := `
audio:
  sample_rate: 44100
  block_size: 256
  mode: direct

synth:
  gain_policy: interpolate
  freq_scale: 1.5

provider:
  url: "http://analysis.local:5000/"
  timeout: 5s
  local: false

logging:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Audio.SampleRate != 44100 || cfg.Audio.BlockSize != 256 {
		t.Errorf("audio not loaded: %+v", cfg.Audio)
	}
	if cfg.Audio.QueueDepth != 8 {
		t.Errorf("unset queue depth should keep default, got %d", cfg.Audio.QueueDepth)
	}
	if cfg.Provider.Timeout != 5*time.Second || cfg.Provider.Local {
		t.Errorf("provider not loaded: %+v", cfg.Provider)
	}

	env := cfg.Env(nil)
	if env.Mode != stream.Direct {
		t.Errorf("expected direct mode, got %v", env.Mode)
	}
	if env.Bank.Policy != modal.GainInterpolate || env.Bank.Scales.Freq != 1.5 {
		t.Errorf("bank options not converted: %+v", env.Bank)
	}
	if env.Compressor == nil || env.Compressor.Limit != 2 {
		t.Errorf("compressor not converted: %+v", env.Compressor)
	}
	if err := env.Validate(); err != nil {
		t.Errorf("env invalid: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"audio.sample_rate": func(c *Config) { c.Audio.SampleRate = 0 },
		"audio.queue_depth": func(c *Config) { c.Audio.QueueDepth = 1 },
		"audio.mode":        func(c *Config) { c.Audio.Mode = "bogus" },
		"synth.gain_policy": func(c *Config) { c.Synth.GainPolicy = "mean" },
	}
	for field, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), field) {
			t.Errorf("%s: expected error naming the field, got %v", field, err)
		}
	}
}

func TestCompressorDisabled(t *testing.T) {
	cfg := Default()
	cfg.Compressor.Enabled = false
	if env := cfg.Env(nil); env.Compressor != nil {
		t.Errorf("expected no compressor")
	}
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "modal.yaml")
	cfg := Default()
	cfg.Synth.OutputGainDB = -6
	cfg.Logging.LogFile = "modal.log"
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Synth.OutputGainDB != -6 || got.Logging.LogFile != "modal.log" {
		t.Errorf("round trip lost values: %+v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestProviderSelection(t *testing.T) {
	cfg := Default()
	p, err := cfg.ModelProvider(nil)
	if err != nil {
		t.Fatalf("local provider: %v", err)
	}
	if _, ok := p.(*provider.Local); !ok {
		t.Fatalf("expected *provider.Local, got %T", p)
	}

	cfg.Provider.Local = false
	p, err = cfg.ModelProvider(nil)
	if err != nil {
		t.Fatalf("http provider: %v", err)
	}
	if _, ok := p.(*provider.HTTP); !ok {
		t.Fatalf("expected *provider.HTTP, got %T", p)
	}

	cfg.Provider.URL = "ftp://example.com/"
	if _, err := cfg.ModelProvider(nil); err == nil {
		t.Fatalf("expected unsupported scheme error")
	}
}
