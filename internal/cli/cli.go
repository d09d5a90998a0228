// Package cli holds the setup shared by the rendering and playback commands:
// logger initialisation, object construction from flags and hit schedules.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-modal/config"
	"github.com/cwbudde/algo-modal/contact"
	"github.com/cwbudde/algo-modal/device"
	"github.com/cwbudde/algo-modal/force"
	"github.com/cwbudde/algo-modal/internal/logger"
	"github.com/cwbudde/algo-modal/modelfile"
	"github.com/cwbudde/algo-modal/provider"
	"github.com/cwbudde/algo-modal/sonic"
)

// InitLogger initialises the global logger from cfg, forcing debug level
// when debug is set.
func InitLogger(cfg *config.Config, debug bool) error {
	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	return logger.Init(level, cfg.Logging.LogFile)
}

// ObjectFlags select what the command makes sound: a saved model file, or a
// primitive mesh analysed for a material preset.
type ObjectFlags struct {
	Model    string
	Mesh     string
	Size     float64
	Detail   int
	Material string
	Friction string
}

// Register adds the object flags to fs.
func (f *ObjectFlags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.Model, "model", "", "Model JSON path (overrides -mesh)")
	fs.StringVar(&f.Mesh, "mesh", "plate", "Primitive mesh: plate|sphere")
	fs.Float64Var(&f.Size, "size", 0.2, "Primitive extent in metres")
	fs.IntVar(&f.Detail, "detail", 0, "Plate subdivisions or icosphere level (0 = 8 for plates, 2 for spheres)")
	fs.StringVar(&f.Material, "material", "wood", "Material preset: "+strings.Join(provider.MaterialNames(), "|"))
	fs.StringVar(&f.Friction, "friction", "", "Friction loop: WAV path, sine or noise (empty disables)")
}

// Built is a ready object and the source to hand to an output.
type Built struct {
	Source device.Source
	Object *sonic.Object
	Mesh   *contact.Mesh // nil for model files
	run    func(ctx context.Context) error
}

// Build constructs the object. Model files become a single unindexed object;
// meshes go through a Scene so the model comes from cfg's provider and the
// object gets a spatial index. A degraded object is returned with its error.
func (f ObjectFlags) Build(ctx context.Context, cfg *config.Config, env sonic.Env, log *zap.Logger) (*Built, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if f.Model != "" {
		oc := sonic.ObjectConfig{Name: f.Model}
		var errs []error
		m, err := modelfile.LoadJSON(f.Model)
		if err != nil {
			errs = append(errs, err)
		}
		oc.Model = m
		if f.Friction != "" {
			loop, err := force.Loop(f.Friction, env.SampleRate)
			if err != nil {
				errs = append(errs, err)
			}
			oc.FrictionLoop = loop
		}
		obj, err := sonic.NewObject(env, oc)
		if obj == nil {
			return nil, err
		}
		if err != nil && !errors.Is(err, sonic.ErrNoModel) {
			errs = append(errs, err)
		}
		return &Built{Source: obj, Object: obj, run: obj.Run}, errors.Join(errs...)
	}

	detail := f.Detail
	if detail <= 0 {
		detail = 8
		if f.Mesh != "plate" {
			detail = 2
		}
	}
	mesh, err := contact.Primitive(f.Mesh, f.Size, detail)
	if err != nil {
		return nil, err
	}
	mt, err := provider.LookupMaterial(f.Material)
	if err != nil {
		return nil, err
	}
	p, err := cfg.ModelProvider(log)
	if err != nil {
		return nil, err
	}
	scene, err := sonic.NewScene(env, p)
	if err != nil {
		return nil, err
	}
	name := fmt.Sprintf("%s:%s", f.Mesh, f.Material)
	obj, err := scene.AddObject(ctx, sonic.ObjectSpec{
		Name:         name,
		Mesh:         mesh,
		Material:     mt,
		FrictionLoop: f.Friction,
	})
	if obj == nil {
		return nil, err
	}
	return &Built{Source: scene, Object: obj, Mesh: mesh, run: scene.Run}, err
}

// Run runs the generation workers until ctx is cancelled.
func (b *Built) Run(ctx context.Context) error { return b.run(ctx) }

// HitPoint returns the world position of vertex on the mesh. Objects built
// from model files have no geometry and map every contact to vertex 0.
func (b *Built) HitPoint(vertex int) r3.Vec {
	if b.Mesh == nil || len(b.Mesh.Vertices) == 0 {
		return r3.Vec{}
	}
	vertex = min(max(vertex, 0), len(b.Mesh.Vertices)-1)
	return b.Mesh.Vertices[vertex]
}

// Hit is one scheduled contact.
type Hit struct {
	At     time.Duration
	Vertex int
}

// ParseHits parses a comma separated list of "seconds[@vertex]" entries,
// e.g. "0,0.5@12,1.25". The result is sorted by time.
func ParseHits(raw string) ([]Hit, error) {
	var hits []Hit
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		at, vtx, hasVertex := strings.Cut(part, "@")
		sec, err := strconv.ParseFloat(at, 64)
		if err != nil || sec < 0 {
			return nil, fmt.Errorf("hit %q: time must be seconds >= 0", part)
		}
		h := Hit{At: time.Duration(sec * float64(time.Second))}
		if hasVertex {
			v, err := strconv.Atoi(vtx)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("hit %q: vertex must be an integer >= 0", part)
			}
			h.Vertex = v
		}
		hits = append(hits, h)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].At < hits[j].At })
	return hits, nil
}
