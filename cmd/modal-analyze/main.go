package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cwbudde/algo-modal/config"
	"github.com/cwbudde/algo-modal/contact"
	"github.com/cwbudde/algo-modal/internal/cli"
	"github.com/cwbudde/algo-modal/internal/logger"
	"github.com/cwbudde/algo-modal/modal"
	"github.com/cwbudde/algo-modal/modelfile"
	"github.com/cwbudde/algo-modal/provider"
)

func main() {
	configPath := flag.String("config", "", "Config YAML path (default ./modal.yaml if present)")
	meshName := flag.String("mesh", "plate", "Primitive mesh: plate|sphere")
	size := flag.Float64("size", 0.2, "Primitive extent in metres")
	detail := flag.Int("detail", 8, "Plate subdivisions or icosphere level")
	materialName := flag.String("material", "wood", "Material preset: "+strings.Join(provider.MaterialNames(), "|"))
	youngs := flag.Float64("youngs", 0, "Override Young's modulus (0 keeps preset)")
	thickness := flag.Float64("thickness", 0, "Override thickness (0 keeps preset)")
	density := flag.Float64("density", 0, "Override density (0 keeps preset)")
	visco := flag.Float64("visco", -1, "Override visco-elastic damping (< 0 keeps preset)")
	fluid := flag.Float64("fluid", -1, "Override fluid damping (< 0 keeps preset)")
	service := flag.String("service", "", "Analysis service URL (empty uses config provider)")
	maxModes := flag.Int("max-modes", 256, "Keep at most this many modes")
	timeout := flag.Duration("timeout", 2*time.Minute, "Analysis timeout")
	id := flag.String("id", "", "Model id (default mesh:material)")
	output := flag.String("output", "model.json", "Output model JSON path")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		die("Error loading config: %v", err)
	}
	if err := cli.InitLogger(cfg, *debug); err != nil {
		die("Error initialising logger: %v", err)
	}
	defer logger.Sync()

	mesh, err := contact.Primitive(*meshName, *size, *detail)
	if err != nil {
		die("Error building mesh: %v", err)
	}
	mt, err := provider.LookupMaterial(*materialName)
	if err != nil {
		die("Error: %v", err)
	}
	mt = override(mt, *youngs, *thickness, *density, *visco, *fluid)

	var p provider.Provider
	switch {
	case *service != "":
		p, err = provider.NewHTTP(*service, *timeout, logger.Named("http"))
	case cfg.Provider.Local:
		p = provider.NewLocal(provider.LocalOptions{MaxModes: *maxModes}, logger.Named("local"))
	default:
		p, err = cfg.ModelProvider(logger.Log)
	}
	if err != nil {
		die("Error creating provider: %v", err)
	}

	modelID := *id
	if modelID == "" {
		modelID = *meshName + ":" + *materialName
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	fmt.Printf("Analysing %s (%d vertices, %d triangles) as %s...\n", modelID, len(mesh.Vertices), mesh.NumTriangles(), *materialName)
	start := time.Now()
	m, err := p.FetchModel(ctx, modelID, mesh, mt)
	if err != nil {
		die("Error analysing mesh: %v", err)
	}
	logger.Info("model ready", zap.Stringer("model", m), zap.Duration("elapsed", time.Since(start)))

	if err := modelfile.SaveJSON(*output, m); err != nil {
		die("Error writing model: %v", err)
	}
	printSummary(m)
	fmt.Printf("Successfully wrote %s (%d modes) in %.2fs\n", *output, m.NumModes, time.Since(start).Seconds())
}

func override(mt provider.Material, youngs, thickness, density, visco, fluid float64) provider.Material {
	if youngs > 0 {
		mt.Youngs = youngs
	}
	if thickness > 0 {
		mt.Thickness = thickness
	}
	if density > 0 {
		mt.Density = density
	}
	if visco >= 0 {
		mt.Visco = visco
	}
	if fluid >= 0 {
		mt.Fluid = fluid
	}
	return mt
}

func printSummary(m *modal.Model) {
	n := min(m.NumModes, 8)
	for k := 0; k < n; k++ {
		fmt.Printf("  mode %3d: %9.2f Hz  decay %8.2f 1/s\n", k, m.Freqs[k], m.Decays[k])
	}
	if m.NumModes > n {
		fmt.Printf("  ... %d more\n", m.NumModes-n)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
