// Package sonic ties the synthesis pieces into sounding objects: a modal
// model with its resonator bank, a contact mapper over a shared spatial
// index, impact and friction forces, and the block queue feeding the audio
// callback. A Scene owns the shared caches and runs the generation workers.
package sonic

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-modal/contact"
	"github.com/cwbudde/algo-modal/dsp"
	"github.com/cwbudde/algo-modal/force"
	"github.com/cwbudde/algo-modal/modal"
	"github.com/cwbudde/algo-modal/stream"
)

// SlideMapping maps kinematic sliding state to friction pitch and level.
type SlideMapping struct {
	MinPct    float32 // pitch multiple at rest
	MaxPct    float32 // pitch multiple at MaxSpeed
	SilenceDB float32 // level when not sliding
	FullDB    float32 // level at MaxSpeed
	MaxSpeed  float32 // m/s
}

// DefaultSlideMapping returns the standard mapping.
func DefaultSlideMapping() SlideMapping {
	return SlideMapping{MinPct: 0.5, MaxPct: 2, SilenceDB: -80, FullDB: 0, MaxSpeed: 5}
}

// Map returns the friction pitch multiple and level for a sliding speed.
// Objects that are airborne or at rest get SilenceDB.
func (s SlideMapping) Map(speed float32, grounded bool) (pct, db float32) {
	if speed < 0 {
		speed = -speed
	}
	if !grounded || speed == 0 || !dsp.IsFinite(speed) || s.MaxSpeed <= 0 {
		return s.MinPct, s.SilenceDB
	}
	t := dsp.Clamp(speed/s.MaxSpeed, 0, 1)
	return dsp.Lerp(s.MinPct, s.MaxPct, t), dsp.Lerp(s.SilenceDB, s.FullDB, t)
}

// Env is the shared engine configuration injected into every object.
type Env struct {
	SampleRate      int
	BlockSize       int // queue block size
	QueueDepth      int
	Channels        int
	DeviceBlockSize int // frames per device callback
	Mode            stream.Mode

	Bank       modal.BankOptions
	Compressor *dsp.Compressor // nil disables output compression

	Impact   force.ImpactOptions
	Soft     force.SoftImpactOptions
	Friction force.FrictionOptions
	Slide    SlideMapping
	Contact  contact.MapperOptions

	Logger *zap.Logger
}

// DefaultEnv returns a 48 kHz stereo engine with 128-sample blocks.
func DefaultEnv() Env {
	comp := dsp.DefaultCompressor()
	return Env{
		SampleRate:      48000,
		BlockSize:       128,
		QueueDepth:      8,
		Channels:        2,
		DeviceBlockSize: 512,
		Mode:            stream.Queued,
		Bank:            modal.BankOptions{Scales: modal.DefaultScales()},
		Compressor:      &comp,
		Impact:          force.DefaultImpactOptions(),
		Soft:            force.DefaultSoftImpactOptions(),
		Friction:        force.DefaultFrictionOptions(),
		Slide:           DefaultSlideMapping(),
		Contact:         contact.DefaultMapperOptions(),
	}
}

// Validate checks the structural parameters.
func (e Env) Validate() error {
	switch {
	case e.SampleRate <= 0:
		return fmt.Errorf("sample rate must be > 0, got %d", e.SampleRate)
	case e.BlockSize <= 0:
		return fmt.Errorf("block size must be > 0, got %d", e.BlockSize)
	case e.QueueDepth < 2:
		return fmt.Errorf("queue depth must be >= 2, got %d", e.QueueDepth)
	case e.Channels <= 0:
		return fmt.Errorf("channels must be > 0, got %d", e.Channels)
	case e.DeviceBlockSize < 0:
		return fmt.Errorf("device block size must be >= 0, got %d", e.DeviceBlockSize)
	}
	return nil
}

func (e Env) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}
