package sonic

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-modal/contact"
	"github.com/cwbudde/algo-modal/force"
	"github.com/cwbudde/algo-modal/modal"
	"github.com/cwbudde/algo-modal/stream"
)

// ErrNoModel is returned by NewObject when no model was supplied.
var ErrNoModel = errors.New("sonic: object has no modal model")

// ObjectConfig describes one sounding object.
type ObjectConfig struct {
	Name         string
	Model        *modal.Model
	Index        *contact.Index // nil excites vertex 0 on every contact
	Pose         contact.Pose
	FrictionLoop []float32 // nil disables friction
}

// Collision is one contact event delivered by the physics collaborator.
type Collision struct {
	Points           []r3.Vec // world space, truncated to the mapper cap
	RelativeVelocity r3.Vec
	Mass             float64
	Soft             bool // raised-cosine pulse instead of a noise burst
}

// Magnitude is the impact strength: mass times squared relative speed.
func (c Collision) Magnitude() float32 {
	return float32(c.Mass * r3.Norm2(c.RelativeVelocity))
}

// Object is one sounding object. Collision and friction methods may be
// called from any goroutine; Fill is the audio callback; Run is the
// generation worker.
type Object struct {
	name string
	env  Env
	log  *zap.Logger

	model    *modal.Model
	bank     *modal.Bank
	mapper   *contact.Mapper
	indexed  bool
	impact   *force.Impact
	soft     *force.SoftImpact
	friction *force.Friction
	mix      *force.Mix

	excitation []float32

	queue  *stream.Queue
	output *stream.Output
	gen    *stream.Generator

	// mu serialises collision intake; the force queues have one producer.
	mu   sync.Mutex
	pose contact.Pose
}

// NewObject builds an object for env. It always returns a usable object:
// when the model is missing or invalid the object stays silent and the
// error is returned alongside it.
func NewObject(env Env, cfg ObjectConfig) (*Object, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	log := env.logger().With(zap.String("object", cfg.Name))
	o := &Object{
		name:       cfg.Name,
		env:        env,
		log:        log,
		pose:       cfg.Pose,
		excitation: make([]float32, env.BlockSize),
		queue:      stream.NewQueue(env.BlockSize, env.QueueDepth),
	}
	if o.pose == (contact.Pose{}) {
		o.pose = contact.Identity()
	}
	o.output = stream.NewOutput(o.queue, o, stream.OutputOptions{Mode: env.Mode, Compressor: env.Compressor})
	o.gen = stream.NewGenerator(o.queue, o, stream.GeneratorOptions{SampleRate: env.SampleRate, Logger: log})

	if cfg.Model == nil {
		log.Warn("object silent", zap.Error(ErrNoModel))
		return o, ErrNoModel
	}
	bank, err := modal.NewBank(cfg.Model, env.SampleRate, nil, env.Bank)
	if err != nil {
		log.Warn("object silent", zap.Error(err))
		return o, fmt.Errorf("object %s: %w", cfg.Name, err)
	}
	o.model = cfg.Model
	o.bank = bank
	o.mapper = contact.NewMapper(cfg.Index, env.Contact)
	o.indexed = cfg.Index != nil
	o.impact = force.NewImpact(env.SampleRate, env.Impact)
	o.soft = force.NewSoftImpact(env.SampleRate, env.Soft)
	o.mix = force.NewMix(o.impact, o.soft)
	if len(cfg.FrictionLoop) > 0 {
		fo := env.Friction
		fo.InitialDB = env.Slide.SilenceDB
		o.friction = force.NewFriction(cfg.FrictionLoop, env.SampleRate, fo)
		o.mix.Add(o.friction)
	}

	o.output.SetReady(true)
	log.Info("object ready",
		zap.Stringer("model", cfg.Model),
		zap.Bool("indexed", cfg.Index != nil),
		zap.Bool("friction", o.friction != nil),
		zap.Stringer("mode", env.Mode))
	return o, nil
}

// Name returns the object name.
func (o *Object) Name() string { return o.name }

// Ready reports whether the object produces sound.
func (o *Object) Ready() bool { return o.output.Ready() }

// Model returns the modal model, nil for a silent object.
func (o *Object) Model() *modal.Model { return o.model }

// Bank returns the resonator bank, nil for a silent object.
func (o *Object) Bank() *modal.Bank { return o.bank }

// Output returns the audio callback side.
func (o *Object) Output() *stream.Output { return o.output }

// Queue returns the block queue between generator and output.
func (o *Object) Queue() *stream.Queue { return o.queue }

// SetPose updates the object's world transform used for contact mapping.
func (o *Object) SetPose(p contact.Pose) {
	o.mu.Lock()
	o.pose = p
	o.mu.Unlock()
}

// Collide maps the contact points to a fresh gain vector and excites the
// object. It reports whether an excitation was queued.
func (o *Object) Collide(c Collision) bool {
	if o.bank == nil {
		return false
	}
	mag := c.Magnitude()

	o.mu.Lock()
	defer o.mu.Unlock()

	var hits []contact.Hit
	switch {
	case len(c.Points) == 0:
	case o.indexed:
		hits = o.mapper.LocateAndWeight(c.Points, o.pose)
	case o.model.NumVertices > 0:
		hits = []contact.Hit{{Weights: [3]float64{1, 0, 0}}}
	}
	if g := contact.Gains(hits, o.model, o.bank.Coefficients()); g != nil {
		o.bank.Gains().Store(g)
	}
	if c.Soft {
		return o.soft.AddHit(float32(r3.Norm(c.RelativeVelocity)), mag)
	}
	return o.impact.AddImpact(mag)
}

// Slide updates the friction oscillator from kinematic state.
func (o *Object) Slide(speed float32, grounded bool) {
	pct, db := o.env.Slide.Map(speed, grounded)
	o.SetFriction(pct, db)
}

// SetFriction sets the friction pitch multiple and level directly.
func (o *Object) SetFriction(pct, db float32) {
	if o.friction == nil {
		return
	}
	o.friction.SetFrequencyPct(pct)
	o.friction.SetLevel(db)
}

// RenderBlock implements stream.Renderer: forces are mixed into the
// excitation, then filtered by the bank. out is overwritten.
func (o *Object) RenderBlock(out []float32) {
	if o.bank == nil {
		clear(out)
		return
	}
	for len(out) > 0 {
		n := min(len(out), len(o.excitation))
		o.mix.Produce(o.excitation, n)
		clear(out[:n])
		o.bank.Render(out[:n], o.excitation[:n])
		out = out[n:]
	}
}

// Fill is the audio callback for this object alone.
func (o *Object) Fill(out []float32, channels int) {
	o.output.Fill(out, channels)
}

// Run keeps the queue filled until ctx is cancelled. In direct mode the
// callback renders and Run only waits.
func (o *Object) Run(ctx context.Context) error {
	if o.env.Mode == stream.Direct || o.bank == nil {
		<-ctx.Done()
		return nil
	}
	err := o.gen.Run(ctx)
	st := o.output.Stats()
	o.log.Info("object stopped",
		zap.Uint64("callbacks", st.Callbacks),
		zap.Uint64("underruns", st.Underruns),
		zap.Uint64("missing_frames", st.MissingFrames),
		zap.Uint64("overflows", st.Overflows))
	return err
}

// Close silences the object. The callback keeps working afterwards.
func (o *Object) Close() {
	o.output.SetReady(false)
}

// Stats returns the output counters.
func (o *Object) Stats() stream.Stats { return o.output.Stats() }
