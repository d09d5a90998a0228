package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-modal/modal"
	"github.com/cwbudde/algo-modal/stream"
)

// Load loads configuration with priority: defaults < file. An empty path
// looks for ./modal.yaml and falls back to defaults when none exists.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		if _, err := os.Stat("modal.yaml"); err == nil {
			path = "modal.yaml"
		}
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// SaveTo writes the config to a specific path.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	a := c.Audio
	switch {
	case a.SampleRate <= 0:
		return fmt.Errorf("audio.sample_rate must be > 0, got %d", a.SampleRate)
	case a.BlockSize <= 0:
		return fmt.Errorf("audio.block_size must be > 0, got %d", a.BlockSize)
	case a.DeviceBlockSize < 0:
		return fmt.Errorf("audio.device_block_size must be >= 0, got %d", a.DeviceBlockSize)
	case a.QueueDepth < 2:
		return fmt.Errorf("audio.queue_depth must be >= 2, got %d", a.QueueDepth)
	case a.Channels <= 0:
		return fmt.Errorf("audio.channels must be > 0, got %d", a.Channels)
	}
	if _, err := stream.ParseMode(a.Mode); err != nil {
		return fmt.Errorf("audio.mode: %w", err)
	}
	if _, err := modal.ParseGainPolicy(c.Synth.GainPolicy); err != nil {
		return fmt.Errorf("synth.gain_policy: %w", err)
	}
	if c.Contact.MaxPoints < 0 {
		return fmt.Errorf("contact.max_points must be >= 0, got %d", c.Contact.MaxPoints)
	}
	if c.Provider.Timeout < 0 {
		return fmt.Errorf("provider.timeout must be >= 0, got %v", c.Provider.Timeout)
	}
	return nil
}
