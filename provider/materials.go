package provider

import (
	"fmt"
	"sort"
	"strings"
)

// Presets are tuned for the spring network rather than taken from handbooks:
// their lowest modes land in the audible range on decimetre-sized meshes
// of a few hundred vertices.
var materials = map[string]Material{
	"unity":   {Youngs: 1e4, Thickness: 1000, Density: 1, Visco: 1e-10, Fluid: 1e-10},
	"wood":    {Youngs: 1.5e4, Thickness: 0.01, Density: 1, Visco: 8e-6, Fluid: 2},
	"steel":   {Youngs: 2.6e4, Thickness: 0.002, Density: 1, Visco: 2e-8, Fluid: 0.5},
	"glass":   {Youngs: 2.8e4, Thickness: 0.004, Density: 1, Visco: 1e-7, Fluid: 1},
	"plastic": {Youngs: 2.5e3, Thickness: 0.003, Density: 1, Visco: 3e-6, Fluid: 5},
}

// LookupMaterial returns the named preset.
func LookupMaterial(name string) (Material, error) {
	m, ok := materials[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Material{}, fmt.Errorf("unknown material %q (known: %s)", name, strings.Join(MaterialNames(), ", "))
	}
	return m, nil
}

// MaterialNames lists the presets in sorted order.
func MaterialNames() []string {
	names := make([]string, 0, len(materials))
	for n := range materials {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
