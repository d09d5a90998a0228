package config

import (
	"go.uber.org/zap"

	"github.com/cwbudde/algo-modal/contact"
	"github.com/cwbudde/algo-modal/dsp"
	"github.com/cwbudde/algo-modal/force"
	"github.com/cwbudde/algo-modal/modal"
	"github.com/cwbudde/algo-modal/provider"
	"github.com/cwbudde/algo-modal/sonic"
	"github.com/cwbudde/algo-modal/stream"
)

// Env converts the configuration into the engine environment. It assumes
// Validate succeeded.
func (c *Config) Env(log *zap.Logger) sonic.Env {
	mode, _ := stream.ParseMode(c.Audio.Mode)
	policy, _ := modal.ParseGainPolicy(c.Synth.GainPolicy)

	env := sonic.Env{
		SampleRate:      c.Audio.SampleRate,
		BlockSize:       c.Audio.BlockSize,
		QueueDepth:      c.Audio.QueueDepth,
		Channels:        c.Audio.Channels,
		DeviceBlockSize: c.Audio.DeviceBlockSize,
		Mode:            mode,
		Bank: modal.BankOptions{
			Policy: policy,
			Scales: modal.Scales{
				Freq:  c.Synth.FreqScale,
				Decay: c.Synth.DecayScale,
				Gain:  c.Synth.GainScale,
			},
			OutputGainDB:     c.Synth.OutputGainDB,
			NormalizeByModes: c.Synth.NormalizeByModes,
			Dither:           c.Synth.Dither,
		},
		Impact: force.ImpactOptions{
			DecayTime: c.Impact.DecayTime,
			ThreshDB:  c.Impact.ThreshDB,
		},
		Soft: force.SoftImpactOptions{
			MinDuration: c.SoftImpact.MinDuration,
			MaxDuration: c.SoftImpact.MaxDuration,
			RefSpeed:    c.SoftImpact.RefSpeed,
		},
		Friction: force.FrictionOptions{
			DecayTime: c.Friction.DecayTime,
			InitialDB: c.Friction.SilenceDB,
			BaseLevel: c.Friction.BaseLevel,
		},
		Slide: sonic.SlideMapping{
			MinPct:    c.Friction.MinPct,
			MaxPct:    c.Friction.MaxPct,
			SilenceDB: c.Friction.SilenceDB,
			FullDB:    c.Friction.FullDB,
			MaxSpeed:  c.Friction.MaxSpeed,
		},
		Contact: contact.MapperOptions{
			MaxPoints:       c.Contact.MaxPoints,
			ProjectToBounds: c.Contact.ProjectToBounds,
		},
		Logger: log,
	}
	if c.Compressor.Enabled {
		env.Compressor = &dsp.Compressor{
			Limit:    c.Compressor.Limit,
			Growth:   c.Compressor.Growth,
			Midpoint: c.Compressor.Midpoint,
		}
	}
	return env
}

// ModelProvider returns the model provider selected by the provider section:
// the in-process analysis when provider.local is set, the HTTP service
// otherwise.
func (c *Config) ModelProvider(log *zap.Logger) (provider.Provider, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if c.Provider.Local {
		return provider.NewLocal(provider.LocalOptions{}, log.Named("local")), nil
	}
	h, err := provider.NewHTTP(c.Provider.URL, c.Provider.Timeout, log.Named("http"))
	if err != nil {
		return nil, err
	}
	return h, nil
}
