package drafter

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
)

// fakeCutter is a controllable GPUCutter for pipeline tests.
type fakeCutter struct {
	mu       sync.Mutex
	initErr  error
	cutErr   error
	capacity int
	grown    []int
	cuts     int
	closed   bool
	logger   *slog.Logger
}

func (f *fakeCutter) Name() string { return "fake" }

func (f *fakeCutter) Init() error { return f.initErr }

func (f *fakeCutter) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeCutter) Capacity() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.capacity
}

func (f *fakeCutter) Grow(n int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grown = append(f.grown, n)
	if f.capacity < n {
		f.capacity = n
	}
	return nil
}

func (f *fakeCutter) CutMesh(plane SectionPlane, m *Mesh, cfg CutterConfig) ([]CutSegment, error) {
	f.mu.Lock()
	f.cuts++
	err := f.cutErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	segs, _ := CutMesh(plane, m, cfg)
	return segs, nil
}

func (f *fakeCutter) SetLogger(l *slog.Logger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logger = l
}

func TestRegisterCutter(t *testing.T) {
	defer UnregisterCutter()

	f := &fakeCutter{}
	if err := RegisterCutter(f); err != nil {
		t.Fatalf("RegisterCutter: %v", err)
	}
	if Cutter() != GPUCutter(f) {
		t.Fatal("registered cutter not returned")
	}

	// Replacement closes the previous cutter.
	g := &fakeCutter{}
	if err := RegisterCutter(g); err != nil {
		t.Fatalf("RegisterCutter: %v", err)
	}
	if !f.closed {
		t.Error("replaced cutter not closed")
	}

	UnregisterCutter()
	if Cutter() != nil {
		t.Error("cutter still registered after unregister")
	}
	if !g.closed {
		t.Error("unregistered cutter not closed")
	}
}

func TestRegisterCutter_InitFailure(t *testing.T) {
	defer UnregisterCutter()

	f := &fakeCutter{initErr: errors.New("no device")}
	if err := RegisterCutter(f); err == nil {
		t.Fatal("expected init error")
	}
	if Cutter() != nil {
		t.Error("failing cutter was registered")
	}
}

func TestRegisterCutter_Nil(t *testing.T) {
	if err := RegisterCutter(nil); err == nil {
		t.Fatal("expected error for nil cutter")
	}
}

func TestGenerate_UsesInjectedCutter(t *testing.T) {
	f := &fakeCutter{}
	gen := NewGenerator(WithCutter(f))

	plane := SectionPlane{Axis: AxisZ, Offset: 0.5}
	d, err := gen.Generate(context.Background(), plane, []*Mesh{boxMesh(1, 1, 1)}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if f.cuts == 0 {
		t.Error("injected cutter never used")
	}
	if !d.Stats.GPUUsed {
		t.Error("GPUUsed not set")
	}
	if len(f.grown) == 0 {
		t.Error("cutter buffers never grown")
	}

	// Close releases owned cutters.
	gen.Close()
	if !f.closed {
		t.Error("injected cutter not closed with generator")
	}
}

func TestGenerate_FallbackToCPU(t *testing.T) {
	f := &fakeCutter{cutErr: ErrFallbackToCPU}
	gen := NewGenerator(WithCutter(f))
	defer gen.Close()

	plane := SectionPlane{Axis: AxisZ, Offset: 0.5}
	d, err := gen.Generate(context.Background(), plane, []*Mesh{boxMesh(1, 1, 1)}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if d.Stats.GPUUsed {
		t.Error("GPUUsed set despite fallback")
	}
	// The CPU path still produces the cut.
	if len(d.CutPolygons) != 1 {
		t.Errorf("cut polygons = %d, want 1", len(d.CutPolygons))
	}
}

func TestGenerate_DeviceLostAborts(t *testing.T) {
	f := &fakeCutter{cutErr: ErrDeviceLost}
	gen := NewGenerator(WithCutter(f))
	defer gen.Close()

	plane := SectionPlane{Axis: AxisZ, Offset: 0.5}
	_, err := gen.Generate(context.Background(), plane, []*Mesh{boxMesh(1, 1, 1)}, nil)
	if !errors.Is(err, ErrDeviceLost) {
		t.Fatalf("err = %v, want ErrDeviceLost", err)
	}
}

func TestSetLogger_PropagatesToCutter(t *testing.T) {
	defer UnregisterCutter()
	defer SetLogger(nil)

	f := &fakeCutter{}
	if err := RegisterCutter(f); err != nil {
		t.Fatalf("RegisterCutter: %v", err)
	}
	if f.logger == nil {
		t.Fatal("logger not propagated at registration")
	}

	l := slog.New(slog.NewTextHandler(discardWriter{}, nil))
	SetLogger(l)
	f.mu.Lock()
	got := f.logger
	f.mu.Unlock()
	if got != l {
		t.Error("logger not propagated by SetLogger")
	}
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
