//go:build !headless

package device

import (
	"encoding/binary"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"go.uber.org/zap"
)

// Device plays a Source through oto.
type Device struct {
	counters

	opts   Options
	ctx    *oto.Context
	player *oto.Player
	src    Source
	buf    []float32

	mu      sync.Mutex // setup and control only
	started bool
}

// Open creates the oto context and a player pulling from src.
func Open(src Source, opts Options) (*Device, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   opts.SampleRate,
		ChannelCount: opts.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   time.Duration(opts.BlockFrames) * time.Second / time.Duration(opts.SampleRate),
	})
	if err != nil {
		return nil, err
	}
	<-ready
	d := &Device{
		opts: opts,
		ctx:  ctx,
		src:  src,
		buf:  make([]float32, opts.BlockFrames*opts.Channels),
	}
	d.player = ctx.NewPlayer(d)
	opts.Logger.Info("audio device opened",
		zap.Int("sample_rate", opts.SampleRate),
		zap.Int("channels", opts.Channels))
	return d, nil
}

// Read implements io.Reader for the oto player.
func (d *Device) Read(p []byte) (int, error) {
	samples := len(p) / 4
	samples -= samples % d.opts.Channels
	if samples == 0 {
		clear(p)
		return len(p), nil
	}
	if len(d.buf) < samples {
		d.buf = make([]float32, samples)
	}
	buf := d.buf[:samples]
	d.src.Fill(buf, d.opts.Channels)
	d.callbacks.Add(1)
	d.frames.Add(uint64(samples / d.opts.Channels))
	for i, s := range buf {
		binary.LittleEndian.PutUint32(p[4*i:], math.Float32bits(s))
	}
	return samples * 4, nil
}

// Start begins playback.
func (d *Device) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started && d.player != nil {
		d.player.Play()
		d.started = true
	}
}

// Started reports whether playback is running.
func (d *Device) Started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

// Close stops playback and releases the player.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.started = false
	if d.player == nil {
		return nil
	}
	err := d.player.Close()
	d.player = nil
	return err
}
