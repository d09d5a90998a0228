// Package wavio reads and writes 16-bit PCM WAV files for loops, renders
// and fit targets.
package wavio

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// ReadMono decodes path, mixes all channels down to mono and normalizes the
// samples to [-1, 1].
func ReadMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("invalid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("invalid wav buffer: %s", path)
	}
	bits := buf.SourceBitDepth
	if bits <= 0 {
		bits = int(dec.BitDepth)
	}
	if bits <= 0 {
		bits = 16
	}
	scale := 1.0 / math.Exp2(float64(bits-1))
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	out := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < ch; c++ {
			sum += float64(buf.Data[i*ch+c])
		}
		out[i] = sum / float64(ch) * scale
	}
	return out, buf.Format.SampleRate, nil
}

// ReadMonoAt reads path and resamples it to sampleRate.
func ReadMonoAt(path string, sampleRate int) ([]float64, error) {
	in, rate, err := ReadMono(path)
	if err != nil {
		return nil, err
	}
	return Resample(in, rate, sampleRate)
}

// Resample converts in from fromRate to toRate. Equal rates return in.
func Resample(in []float64, fromRate int, toRate int) ([]float64, error) {
	if fromRate == toRate {
		return in, nil
	}
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("invalid resample rates %d -> %d", fromRate, toRate)
	}
	r, err := dspresample.NewForRates(
		float64(fromRate),
		float64(toRate),
		dspresample.WithQuality(dspresample.QualityBest),
	)
	if err != nil {
		return nil, err
	}
	return r.Process(in), nil
}

// WriteMono writes a mono 16-bit file.
func WriteMono(path string, data []float32, sampleRate int) error {
	return WriteInterleaved(path, data, sampleRate, 1)
}

// WriteInterleaved writes interleaved samples with the given channel count.
func WriteInterleaved(path string, samples []float32, sampleRate int, channels int) error {
	if channels < 1 {
		return fmt.Errorf("invalid channel count %d", channels)
	}
	if len(samples)%channels != 0 {
		return fmt.Errorf("sample count %d is not a multiple of %d channels", len(samples), channels)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  sampleRate,
			NumChannels: channels,
		},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ToFloat32 converts samples to float32.
func ToFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}

// RMS returns the root mean square of samples.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
