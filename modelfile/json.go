// Package modelfile reads and writes modal models in the JSON format
// exchanged with the model service.
package modelfile

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/algo-modal/modal"
)

// File is the JSON schema of a modal model.
type File struct {
	ID       string    `json:"id"`
	Modes    int       `json:"modes"`
	Vertices int       `json:"vertices"`
	Freqs    []float32 `json:"freqs"`
	Decays   []float32 `json:"decays"`
	Gains    []float32 `json:"gains"`
}

// FromModel converts a model to its wire form.
func FromModel(m *modal.Model) *File {
	return &File{
		ID:       m.ID,
		Modes:    m.NumModes,
		Vertices: m.NumVertices,
		Freqs:    m.Freqs,
		Decays:   m.Decays,
		Gains:    m.Gains,
	}
}

// Model validates f and converts it to a model.
func (f *File) Model() (*modal.Model, error) {
	if f == nil {
		return nil, fmt.Errorf("nil model file")
	}
	m := &modal.Model{
		ID:          strings.TrimSpace(f.ID),
		NumModes:    f.Modes,
		NumVertices: f.Vertices,
		Freqs:       f.Freqs,
		Decays:      f.Decays,
		Gains:       f.Gains,
	}
	if err := m.Validate(); err != nil {
		if m.ID != "" {
			return nil, fmt.Errorf("model %q: %w", m.ID, err)
		}
		return nil, err
	}
	return m, nil
}

// Decode reads one model from r.
func Decode(r io.Reader) (*modal.Model, error) {
	var f File
	dec := json.NewDecoder(r)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode modal model: %w", err)
	}
	return f.Model()
}

// Encode writes m to w.
func Encode(w io.Writer, m *modal.Model) error {
	if err := m.Validate(); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	return enc.Encode(FromModel(m))
}

// LoadJSON loads a model file.
func LoadJSON(path string) (*modal.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if m.ID == "" {
		m.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return m, nil
}

// SaveJSON writes m to path with indentation, creating parent directories.
func SaveJSON(path string, m *modal.Model) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(FromModel(m), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
