// Package device connects a frame source to the platform audio output.
// The default build plays through oto; the headless build tag replaces it
// with a clocked sink that drives the source at real-time cadence.
package device

import (
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
)

// Source fills interleaved float32 frames. It is called from the device's
// callback goroutine and must not block.
type Source interface {
	Fill(out []float32, channels int)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(out []float32, channels int)

// Fill implements Source.
func (f SourceFunc) Fill(out []float32, channels int) { f(out, channels) }

// Options configure a device.
type Options struct {
	SampleRate  int
	Channels    int
	BlockFrames int // frames per callback, hint for the backend
	Logger      *zap.Logger
}

func (o Options) withDefaults() (Options, error) {
	if o.SampleRate <= 0 {
		return o, errors.New("device: sample rate must be > 0")
	}
	if o.Channels <= 0 {
		o.Channels = 2
	}
	if o.BlockFrames <= 0 {
		o.BlockFrames = 512
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o, nil
}

// counters are shared by both backends.
type counters struct {
	callbacks atomic.Uint64
	frames    atomic.Uint64
}

// Callbacks returns the number of source callbacks so far.
func (c *counters) Callbacks() uint64 { return c.callbacks.Load() }

// Frames returns the number of frames pulled from the source.
func (c *counters) Frames() uint64 { return c.frames.Load() }
