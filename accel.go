package drafter

import (
	"errors"
	"sync"
)

// ErrFallbackToCPU indicates the GPU cutter cannot handle this mesh.
// The caller should transparently fall back to CPU cutting.
var ErrFallbackToCPU = errors.New("drafter: falling back to CPU cutting")

// ErrDeviceLost indicates an unrecoverable GPU host-environment failure.
// Unlike capability or capacity problems, a lost device aborts generation.
var ErrDeviceLost = errors.New("drafter: GPU device lost")

// GPUCutter is an optional GPU implementation of the section cutter.
//
// When registered via RegisterCutter, the Generator cuts each mesh on the
// GPU first. If the cutter returns ErrFallbackToCPU the mesh is cut on
// the CPU instead; ErrDeviceLost aborts the generation run.
//
// Implementations are provided by GPU backend packages. Users opt in via
// blank import:
//
//	import _ "github.com/gobim/drafter/gpu" // enables GPU cutting
type GPUCutter interface {
	// Name returns the cutter name (e.g. "wgpu").
	Name() string

	// Init initializes GPU resources. Called once during registration.
	Init() error

	// Close releases GPU resources.
	Close()

	// Capacity returns the triangle capacity of the currently allocated
	// output buffers. Zero means nothing is allocated yet.
	Capacity() int

	// Grow reallocates buffers to hold at least n triangles. Growth is
	// by capacity doubling so repeated small overruns stay cheap.
	Grow(n int) error

	// CutMesh intersects every triangle of the mesh with the plane and
	// returns the resulting segments. Order between segments carries no
	// meaning; triangles are cut independently.
	CutMesh(plane SectionPlane, mesh *Mesh, cfg CutterConfig) ([]CutSegment, error)
}

var (
	cutterMu sync.RWMutex
	cutter   GPUCutter
)

// RegisterCutter registers a GPU section cutter.
//
// Only one cutter can be registered; subsequent calls replace (and close)
// the previous one. The cutter's Init method is called during
// registration; if it fails the cutter is not registered and the error
// is returned.
func RegisterCutter(c GPUCutter) error {
	if c == nil {
		return errors.New("drafter: cutter must not be nil")
	}
	if err := c.Init(); err != nil {
		return err
	}
	propagateLogger(c, Logger())
	cutterMu.Lock()
	old := cutter
	cutter = c
	cutterMu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// Cutter returns the currently registered GPU cutter, or nil if none.
func Cutter() GPUCutter {
	cutterMu.RLock()
	c := cutter
	cutterMu.RUnlock()
	return c
}

// UnregisterCutter removes and closes the registered cutter, if any.
// Mainly useful in tests.
func UnregisterCutter() {
	cutterMu.Lock()
	old := cutter
	cutter = nil
	cutterMu.Unlock()
	if old != nil {
		old.Close()
	}
}
