package provider

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	pdefd "github.com/cwbudde/algo-pde/fd"
	pdepoisson "github.com/cwbudde/algo-pde/poisson"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/cwbudde/algo-modal/contact"
	"github.com/cwbudde/algo-modal/modal"
)

func testMaterial() Material {
	return Material{Youngs: 1e7, Thickness: 0.002, Density: 1000, Visco: 1e-7, Fluid: 1}
}

func TestDiscriminationThreshold(t *testing.T) {
	for _, c := range []struct{ f, want float64 }{{15, 3}, {2000, 45}, {8000, 90}} {
		if got := discrimination(c.f); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("discrimination(%v) = %v, want %v", c.f, got, c.want)
		}
	}
}

func TestAggregateMergesCloseModes(t *testing.T) {
	modes := []mode{
		{freq: 200, decay: -3, shape: []float64{1, 0}},
		{freq: 100, decay: -1, shape: []float64{0.5, 0.25}},
		{freq: 101, decay: -2, shape: []float64{0.5, 0.25}},
		{freq: 900, decay: -4, shape: []float64{1e-9, -1e-9}},
	}
	out := aggregate(modes)
	if len(out) != 2 {
		t.Fatalf("got %d modes, want 2: %+v", len(out), out)
	}
	if out[0].freq != 100 || out[0].decay != -1 {
		t.Fatalf("leader should keep freq and decay: %+v", out[0])
	}
	if out[0].shape[0] != 1 || out[0].shape[1] != 0.5 {
		t.Fatalf("merged shape = %v, want [1 0.5]", out[0].shape)
	}
	if out[1].freq != 200 {
		t.Fatalf("second mode freq = %v, want 200", out[1].freq)
	}
}

func TestGeneralizedEigenMatchesPeriodicDifferenceOperator(t *testing.T) {
	const n = 64
	const h = 1.0 / n

	ring := mat.NewSymDense(n, nil)
	mass := make([]float64, n)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		ring.SetSym(i, i, ring.At(i, i)+1)
		ring.SetSym(j, j, ring.At(j, j)+1)
		ring.SetSym(i, j, ring.At(i, j)-1)
		mass[i] = 1
	}
	vals, vecs, err := generalizedEigen(ring, mass)
	if err != nil {
		t.Fatalf("generalizedEigen: %v", err)
	}
	if r, c := vecs.Dims(); r != n || c != n {
		t.Fatalf("vectors are %dx%d", r, c)
	}

	ref := pdefd.Eigenvalues(n, h, pdepoisson.Periodic)
	if len(ref) != n {
		t.Fatalf("reference count = %d", len(ref))
	}
	want := make([]float64, n)
	for i, v := range ref {
		want[i] = v * h * h
	}
	sort.Float64s(want)
	for i := range vals {
		if math.Abs(vals[i]-want[i]) > 1e-9 {
			t.Fatalf("eigenvalue %d = %.12f, want %.12f", i, vals[i], want[i])
		}
	}
}

func TestGeneralizedEigenIsMassNormalized(t *testing.T) {
	k := mat.NewSymDense(2, []float64{2, -1, -1, 2})
	mass := []float64{4, 1}
	_, vecs, err := generalizedEigen(k, mass)
	if err != nil {
		t.Fatalf("generalizedEigen: %v", err)
	}
	for j := 0; j < 2; j++ {
		var norm float64
		for i := 0; i < 2; i++ {
			v := vecs.At(i, j)
			norm += mass[i] * v * v
		}
		if math.Abs(norm-1) > 1e-9 {
			t.Fatalf("mode %d: v'Mv = %v, want 1", j, norm)
		}
	}
}

func TestAnalyzePlate(t *testing.T) {
	mesh := contact.Plate(0.2, 0.2, 4, 4)
	opts := DefaultLocalOptions()
	m, err := Analyze(mesh, testMaterial(), opts)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("invalid model: %v", err)
	}
	if m.NumVertices != len(mesh.Vertices) {
		t.Fatalf("NumVertices = %d, want %d", m.NumVertices, len(mesh.Vertices))
	}
	for k := 0; k < m.NumModes; k++ {
		f := float64(m.Freqs[k])
		if f <= opts.MinFreq || f >= opts.MaxFreq {
			t.Fatalf("freq[%d] = %v outside audible range", k, f)
		}
		if m.Decays[k] >= 0 {
			t.Fatalf("decay[%d] = %v, want < 0", k, m.Decays[k])
		}
		if k > 0 {
			prev := float64(m.Freqs[k-1])
			if f-prev < discrimination(prev)-1e-2 {
				t.Fatalf("modes %d and %d closer than threshold: %v, %v", k-1, k, prev, f)
			}
		}
	}
}

func TestMaterialPresetsAreAudible(t *testing.T) {
	mesh := contact.Plate(0.2, 0.2, 4, 4)
	for _, name := range MaterialNames() {
		mt, err := LookupMaterial(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if err := mt.Validate(); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		m, err := Analyze(mesh, mt, DefaultLocalOptions())
		if err != nil {
			t.Fatalf("%s: Analyze: %v", name, err)
		}
		if m.NumModes == 0 {
			t.Fatalf("%s: no audible modes", name)
		}
	}
	if _, err := LookupMaterial(" Steel "); err != nil {
		t.Fatalf("lookup should ignore case and space: %v", err)
	}
	if _, err := LookupMaterial("cheese"); err == nil {
		t.Fatalf("expected unknown material error")
	}
}

func TestAnalyzeGivesUnreferencedVerticesZeroGain(t *testing.T) {
	mesh := contact.Plate(0.2, 0.2, 3, 3)
	mesh.Vertices = append(mesh.Vertices, r3.Vec{X: 5, Y: 5, Z: 5})
	m, err := Analyze(mesh, testMaterial(), DefaultLocalOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	last := len(mesh.Vertices) - 1
	for k := 0; k < m.NumModes; k++ {
		if g := m.Gain(last, k); g != 0 {
			t.Fatalf("gain of loose vertex at mode %d = %v", k, g)
		}
	}
}

func TestAnalyzeCapsModes(t *testing.T) {
	opts := DefaultLocalOptions()
	opts.MaxModes = 3
	m, err := Analyze(contact.Plate(0.2, 0.2, 4, 4), testMaterial(), opts)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if m.NumModes > 3 {
		t.Fatalf("NumModes = %d, want <= 3", m.NumModes)
	}
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	if _, err := Analyze(&contact.Mesh{}, testMaterial(), DefaultLocalOptions()); !errors.Is(err, contact.ErrEmptyMesh) {
		t.Fatalf("expected ErrEmptyMesh, got %v", err)
	}
	bad := testMaterial()
	bad.Density = 0
	if _, err := Analyze(contact.Plate(1, 1, 1, 1), bad, DefaultLocalOptions()); err == nil || !strings.Contains(err.Error(), "density") {
		t.Fatalf("expected density error, got %v", err)
	}
	opts := DefaultLocalOptions()
	opts.MaxVertices = 4
	if _, err := Analyze(contact.Plate(1, 1, 4, 4), testMaterial(), opts); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
}

func TestHTTPRoundTrip(t *testing.T) {
	local := NewLocal(LocalOptions{}, nil)
	srv := httptest.NewServer(NewHandler(local, nil))
	defer srv.Close()

	client, err := NewHTTP(srv.URL, 5*time.Second, nil)
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	mesh := contact.Plate(0.2, 0.2, 3, 3)
	got, err := client.FetchModel(context.Background(), "plate", mesh, testMaterial())
	if err != nil {
		t.Fatalf("FetchModel: %v", err)
	}
	want, err := Analyze(mesh, testMaterial(), DefaultLocalOptions())
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got.ID != "plate" || got.NumModes != want.NumModes || got.NumVertices != want.NumVertices {
		t.Fatalf("model mismatch: got %v want %v", got, want)
	}
	for i := range want.Gains {
		if got.Gains[i] != want.Gains[i] {
			t.Fatalf("gains[%d] = %v, want %v", i, got.Gains[i], want.Gains[i])
		}
	}
}

func TestHTTPNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewHTTP(srv.URL+"/", 0, nil)
	if err != nil {
		t.Fatalf("NewHTTP: %v", err)
	}
	_, err = client.FetchModel(context.Background(), "", contact.Plate(1, 1, 1, 1), testMaterial())
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("expected ErrStatus, got %v", err)
	}
}

func TestHandlerRoutes(t *testing.T) {
	h := NewHandler(NewLocal(LocalOptions{}, nil), nil)
	for _, path := range []string{"/mmapi/modalmodel", "/mmapi/modalmodel/7"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("GET %s = %d, want 404", path, rec.Code)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/3", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad body = %d, want 400", rec.Code)
	}
}

func TestCacheCollapsesConcurrentMisses(t *testing.T) {
	var calls atomic.Int32
	slow := Func(func(ctx context.Context, id string, mesh *contact.Mesh, mat Material) (*modal.Model, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return &modal.Model{ID: id, NumModes: 1, Freqs: []float32{440}, Decays: []float32{-1}}, nil
	})
	c := NewCache(slow)
	mesh := contact.Plate(1, 1, 2, 2)

	var wg sync.WaitGroup
	models := make([]*modal.Model, 8)
	for i := range models {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := c.FetchModel(context.Background(), "a", mesh, testMaterial())
			if err != nil {
				t.Errorf("FetchModel: %v", err)
			}
			models[i] = m
		}(i)
	}
	wg.Wait()
	if calls.Load() != 1 {
		t.Fatalf("provider called %d times, want 1", calls.Load())
	}
	for _, m := range models[1:] {
		if m != models[0] {
			t.Fatalf("expected one shared model")
		}
	}

	// Same geometry under another ID, different material.
	other := contact.Plate(1, 1, 2, 2)
	other.ID = "b"
	steel := testMaterial()
	steel.Youngs = 2e11
	if _, err := c.FetchModel(context.Background(), "b", other, steel); err != nil {
		t.Fatalf("FetchModel: %v", err)
	}
	if c.Len() != 2 || calls.Load() != 2 {
		t.Fatalf("Len = %d calls = %d, want 2 and 2", c.Len(), calls.Load())
	}
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	var calls atomic.Int32
	failing := Func(func(context.Context, string, *contact.Mesh, Material) (*modal.Model, error) {
		calls.Add(1)
		return nil, ErrStatus
	})
	c := NewCache(failing)
	mesh := contact.Plate(1, 1, 1, 1)
	for i := 0; i < 2; i++ {
		if _, err := c.FetchModel(context.Background(), "x", mesh, testMaterial()); !errors.Is(err, ErrStatus) {
			t.Fatalf("expected ErrStatus, got %v", err)
		}
	}
	if calls.Load() != 2 || c.Len() != 0 {
		t.Fatalf("calls = %d Len = %d", calls.Load(), c.Len())
	}
}

func TestLocalHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocal(LocalOptions{}, nil).FetchModel(ctx, "p", contact.Plate(1, 1, 1, 1), testMaterial()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
