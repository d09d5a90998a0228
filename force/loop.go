package force

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-modal/internal/wavio"
)

// LoadLoop reads a friction loop from a WAV file, mixes it to mono and
// resamples it to sampleRate.
func LoadLoop(path string, sampleRate int) ([]float32, error) {
	in, err := wavio.ReadMonoAt(path, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("load friction loop: %w", err)
	}
	if len(in) < 2 {
		return nil, fmt.Errorf("load friction loop %s: too short (%d samples)", path, len(in))
	}
	return wavio.ToFloat32(in), nil
}

// Loop resolves a friction loop name: "sine" and "noise" are built in,
// anything else is read as a WAV path.
func Loop(name string, sampleRate int) ([]float32, error) {
	switch name {
	case "sine":
		return SineLoop(sampleRate / 100), nil
	case "noise":
		return NoiseLoop(sampleRate/10, 1), nil
	default:
		return LoadLoop(name, sampleRate)
	}
}

// SineLoop returns one cycle of a sine wave of length samples, usable when no
// recorded loop is available.
func SineLoop(length int) []float32 {
	if length < 2 {
		length = 2
	}
	out := make([]float32, length)
	for i := range out {
		out[i] = float32(math.Sin(2 * math.Pi * float64(i) / float64(length)))
	}
	return out
}

// NoiseLoop returns a deterministic band-limited noise loop, a rough stand-in
// for a sliding-contact recording.
func NoiseLoop(length int, seed uint64) []float32 {
	if length < 2 {
		length = 2
	}
	im := NewImpact(48000, ImpactOptions{DecayTime: 1e6, Seed: seed})
	im.AddImpact(1 / impactGain)
	out := make([]float32, length)
	im.Produce(out, length)
	peak := float32(0)
	for _, v := range out {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak > 0 {
		for i := range out {
			out[i] /= peak
		}
	}
	return out
}
