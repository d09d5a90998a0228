package sonic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/cwbudde/algo-modal/contact"
	"github.com/cwbudde/algo-modal/force"
	"github.com/cwbudde/algo-modal/provider"
)

// ObjectSpec describes an object to be set up by a Scene.
type ObjectSpec struct {
	Name     string
	ModelID  string // defaults to Name
	Mesh     *contact.Mesh
	Material provider.Material
	Pose     contact.Pose
	// FrictionLoop is a WAV path or a built-in loop name ("sine", "noise");
	// empty disables friction.
	FrictionLoop string
}

// Scene owns the objects of one output device and the caches they share:
// models by mesh and material, spatial indices by geometry and friction
// loops by path.
type Scene struct {
	env    Env
	log    *zap.Logger
	models *provider.Cache
	index  *contact.IndexCache

	loopMu sync.RWMutex
	loops  map[string][]float32
	loadSF singleflight.Group

	addMu   sync.Mutex
	objects atomic.Pointer[[]*Object]
	scratch []float32
}

// NewScene creates a scene fetching models from p.
func NewScene(env Env, p provider.Provider) (*Scene, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errors.New("sonic: nil model provider")
	}
	s := &Scene{
		env:    env,
		log:    env.logger().Named("scene"),
		models: provider.NewCache(p),
		index:  contact.NewIndexCache(),
		loops:  make(map[string][]float32),
	}
	frames := env.DeviceBlockSize
	if frames <= 0 {
		frames = env.BlockSize
	}
	s.scratch = make([]float32, frames*env.Channels)
	s.objects.Store(&[]*Object{})
	return s, nil
}

// Env returns the scene configuration.
func (s *Scene) Env() Env { return s.env }

// AddObject fetches the model, builds or reuses the spatial index and loads
// the friction loop, then adds the object. The object is added even when
// some step failed: it is then silent or lacks friction, and the joined
// errors are returned with it.
func (s *Scene) AddObject(ctx context.Context, spec ObjectSpec) (*Object, error) {
	id := spec.ModelID
	if id == "" {
		id = spec.Name
	}
	var errs []error
	cfg := ObjectConfig{Name: spec.Name, Pose: spec.Pose}

	if spec.Mesh == nil {
		errs = append(errs, contact.ErrEmptyMesh)
	} else {
		model, err := s.models.FetchModel(ctx, id, spec.Mesh, spec.Material)
		if err != nil {
			errs = append(errs, fmt.Errorf("fetch model: %w", err))
		}
		cfg.Model = model
		if ix, err := s.index.Get(spec.Mesh); err != nil {
			errs = append(errs, fmt.Errorf("spatial index: %w", err))
		} else {
			cfg.Index = ix
		}
	}
	if spec.FrictionLoop != "" {
		loop, err := s.loop(spec.FrictionLoop)
		if err != nil {
			errs = append(errs, err)
		}
		cfg.FrictionLoop = loop
	}

	obj, err := NewObject(s.env, cfg)
	if obj == nil {
		return nil, err
	}
	if err != nil && !errors.Is(err, ErrNoModel) {
		errs = append(errs, err)
	}

	s.addMu.Lock()
	cur := *s.objects.Load()
	next := make([]*Object, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, obj)
	s.objects.Store(&next)
	s.addMu.Unlock()

	if len(errs) > 0 {
		err := errors.Join(errs...)
		s.log.Warn("object degraded", zap.String("object", spec.Name), zap.Error(err))
		return obj, err
	}
	return obj, nil
}

func (s *Scene) loop(path string) ([]float32, error) {
	s.loopMu.RLock()
	l, ok := s.loops[path]
	s.loopMu.RUnlock()
	if ok {
		return l, nil
	}
	v, err, _ := s.loadSF.Do(path, func() (any, error) {
		l, err := force.Loop(path, s.env.SampleRate)
		if err != nil {
			return nil, err
		}
		s.loopMu.Lock()
		s.loops[path] = l
		s.loopMu.Unlock()
		return l, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]float32), nil
}

// Objects returns a snapshot of the scene's objects.
func (s *Scene) Objects() []*Object {
	return *s.objects.Load()
}

// Object returns the first object named name.
func (s *Scene) Object(name string) (*Object, bool) {
	for _, o := range s.Objects() {
		if o.Name() == name {
			return o, true
		}
	}
	return nil, false
}

// Run runs the generation worker of every object added so far until ctx is
// cancelled or one worker fails.
func (s *Scene) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, o := range s.Objects() {
		g.Go(func() error { return o.Run(ctx) })
	}
	return g.Wait()
}

// Fill is the device callback: it sums the output of every object into out.
// Callbacks larger than the configured device block grow the scratch buffer
// once.
func (s *Scene) Fill(out []float32, channels int) {
	clear(out)
	objs := s.Objects()
	if len(objs) == 0 {
		return
	}
	if len(s.scratch) < len(out) {
		s.scratch = make([]float32, len(out))
	}
	tmp := s.scratch[:len(out)]
	for _, o := range objs {
		o.Fill(tmp, channels)
		for i, v := range tmp {
			out[i] += v
		}
	}
}

// Close silences every object.
func (s *Scene) Close() {
	for _, o := range s.Objects() {
		o.Close()
	}
}
