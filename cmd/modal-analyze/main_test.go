package main

import (
	"testing"

	"github.com/cwbudde/algo-modal/provider"
)

func TestOverrideKeepsPresetForUnsetFlags(t *testing.T) {
	base, err := provider.LookupMaterial("steel")
	if err != nil {
		t.Fatalf("LookupMaterial: %v", err)
	}
	if got := override(base, 0, 0, 0, -1, -1); got != base {
		t.Fatalf("override changed unset fields: %+v", got)
	}
	got := override(base, 5e4, 0, 2, 0, 3)
	if got.Youngs != 5e4 || got.Density != 2 || got.Visco != 0 || got.Fluid != 3 || got.Thickness != base.Thickness {
		t.Fatalf("unexpected override result %+v", got)
	}
}
