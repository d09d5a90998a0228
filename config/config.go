// Package config handles engine configuration loading and management.
package config

import "time"

// Config holds all engine settings.
type Config struct {
	Audio      AudioConfig      `yaml:"audio"`
	Synth      SynthConfig      `yaml:"synth"`
	Compressor CompressorConfig `yaml:"compressor"`
	Impact     ImpactConfig     `yaml:"impact"`
	SoftImpact SoftImpactConfig `yaml:"soft_impact"`
	Friction   FrictionConfig   `yaml:"friction"`
	Contact    ContactConfig    `yaml:"contact"`
	Provider   ProviderConfig   `yaml:"provider"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AudioConfig holds device and block settings.
type AudioConfig struct {
	SampleRate      int    `yaml:"sample_rate"`
	BlockSize       int    `yaml:"block_size"`        // queue block, samples
	DeviceBlockSize int    `yaml:"device_block_size"` // callback, frames
	QueueDepth      int    `yaml:"queue_depth"`
	Channels        int    `yaml:"channels"`
	Mode            string `yaml:"mode"` // queued or direct
}

// SynthConfig holds resonator bank settings.
type SynthConfig struct {
	GainPolicy       string  `yaml:"gain_policy"` // block or interpolate
	FreqScale        float32 `yaml:"freq_scale"`
	DecayScale       float32 `yaml:"decay_scale"`
	GainScale        float32 `yaml:"gain_scale"`
	OutputGainDB     float32 `yaml:"output_gain_db"`
	NormalizeByModes bool    `yaml:"normalize_by_modes"`
	Dither           bool    `yaml:"dither"`
}

// CompressorConfig holds the output soft limiter.
type CompressorConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Limit    float32 `yaml:"limit"`
	Growth   float32 `yaml:"growth"`
	Midpoint float32 `yaml:"midpoint"`
}

// ImpactConfig holds the noise-burst impact generator.
type ImpactConfig struct {
	DecayTime float32 `yaml:"decay_time"`
	ThreshDB  float32 `yaml:"thresh_db"`
}

// SoftImpactConfig holds the raised-cosine impact generator.
type SoftImpactConfig struct {
	MinDuration float32 `yaml:"min_duration"`
	MaxDuration float32 `yaml:"max_duration"`
	RefSpeed    float32 `yaml:"ref_speed"`
}

// FrictionConfig holds the friction oscillator and its kinematic mapping.
type FrictionConfig struct {
	DecayTime float32 `yaml:"decay_time"`
	BaseLevel float32 `yaml:"base_level"`
	MinPct    float32 `yaml:"min_pct"`
	MaxPct    float32 `yaml:"max_pct"`
	SilenceDB float32 `yaml:"silence_db"`
	FullDB    float32 `yaml:"full_db"`
	MaxSpeed  float32 `yaml:"max_speed"`
}

// ContactConfig holds collision intake settings.
type ContactConfig struct {
	MaxPoints       int  `yaml:"max_points"`
	ProjectToBounds bool `yaml:"project_to_bounds"`
}

// ProviderConfig selects where models come from.
type ProviderConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	Local   bool          `yaml:"local"` // analyse in-process instead of calling URL
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:      48000,
			BlockSize:       128,
			DeviceBlockSize: 512,
			QueueDepth:      8,
			Channels:        2,
			Mode:            "queued",
		},
		Synth: SynthConfig{
			GainPolicy: "block",
			FreqScale:  1,
			DecayScale: 1,
			GainScale:  1,
		},
		Compressor: CompressorConfig{
			Enabled:  true,
			Limit:    2,
			Growth:   0.00015,
			Midpoint: 0,
		},
		Impact: ImpactConfig{
			DecayTime: 0.15,
			ThreshDB:  -80,
		},
		SoftImpact: SoftImpactConfig{
			MinDuration: 0.0005,
			MaxDuration: 0.005,
			RefSpeed:    10,
		},
		Friction: FrictionConfig{
			DecayTime: 0.15,
			BaseLevel: 35000,
			MinPct:    0.5,
			MaxPct:    2,
			SilenceDB: -80,
			FullDB:    0,
			MaxSpeed:  5,
		},
		Contact: ContactConfig{
			MaxPoints:       10,
			ProjectToBounds: true,
		},
		Provider: ProviderConfig{
			URL:     "http://127.0.0.1:5000/",
			Timeout: 30 * time.Second,
			Local:   true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
