package modelfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cwbudde/algo-modal/modal"
)

func TestLoadJSONUsesFileNameAsDefaultID(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bowl.json")
	content := `{
  "modes": 2,
  "vertices": 1,
  "freqs": [440, 1210.5],
  "decays": [-5, -12],
  "gains": [0.8, 0.2]
}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	m, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if m.ID != "bowl" {
		t.Fatalf("ID = %q, want bowl", m.ID)
	}
	if m.NumModes != 2 || m.Freqs[1] != 1210.5 || m.Gain(0, 1) != 0.2 {
		t.Fatalf("model mismatch: %+v", m)
	}
}

func TestDecodeRejectsShapeMismatch(t *testing.T) {
	in := `{"id":"x","modes":2,"vertices":2,"freqs":[1,2],"decays":[-1,-1],"gains":[1,2,3]}`
	_, err := Decode(strings.NewReader(in))
	if !errors.Is(err, modal.ErrShape) {
		t.Fatalf("expected ErrShape, got %v", err)
	}
	if !strings.Contains(err.Error(), `"x"`) {
		t.Fatalf("error should name the model: %v", err)
	}
}

func TestDecodeRejectsEmptyModel(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"id":"empty","modes":0,"vertices":0,"freqs":[],"decays":[],"gains":[]}`))
	if !errors.Is(err, modal.ErrNoModes) {
		t.Fatalf("expected ErrNoModes, got %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	m := &modal.Model{
		ID:          "plate",
		NumModes:    1,
		NumVertices: 3,
		Freqs:       []float32{523.25},
		Decays:      []float32{-7},
		Gains:       []float32{0.1, 0.2, 0.3},
	}
	path := filepath.Join(t.TempDir(), "nested", "plate.json")
	if err := SaveJSON(path, m); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	got, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if got.ID != "plate" || got.NumVertices != 3 || got.Gains[2] != 0.3 {
		t.Fatalf("loaded model mismatch: %+v", got)
	}
}
