//go:build headless

package device

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Device is a clocked sink: it pulls one block from the source per block
// period and discards it.
type Device struct {
	counters

	opts Options
	src  Source
	buf  []float32

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
}

// Open creates a headless device pulling from src.
func Open(src Source, opts Options) (*Device, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	opts.Logger.Info("headless audio device opened",
		zap.Int("sample_rate", opts.SampleRate),
		zap.Int("block_frames", opts.BlockFrames))
	return &Device{opts: opts, src: src, buf: make([]float32, opts.BlockFrames*opts.Channels)}, nil
}

// Start begins pulling blocks.
func (d *Device) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	period := time.Duration(float64(d.opts.BlockFrames) / float64(d.opts.SampleRate) * float64(time.Second))
	go d.run(period, d.stop, d.done)
}

func (d *Device) run(period time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.src.Fill(d.buf, d.opts.Channels)
			d.callbacks.Add(1)
			d.frames.Add(uint64(d.opts.BlockFrames))
		}
	}
}

// Started reports whether the clock is running.
func (d *Device) Started() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

// Close stops the clock and waits for the last callback to return.
func (d *Device) Close() error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return nil
	}
	d.started = false
	close(d.stop)
	done := d.done
	d.mu.Unlock()
	<-done
	return nil
}
