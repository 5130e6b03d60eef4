//go:build !nogpu

// Package gpu registers the GPU section cutter for hardware-accelerated
// plane cutting.
//
// Import this package to cut meshes with a wgpu/hal compute shader that
// evaluates one triangle per invocation. If GPU initialization fails
// (no Vulkan available), registration is silently skipped and cutting
// falls back to the CPU path.
//
// Usage:
//
//	import _ "github.com/gobim/drafter/gpu" // enable GPU section cutting
package gpu

import (
	"github.com/gobim/drafter"
	gpuimpl "github.com/gobim/drafter/internal/gpu"
)

func init() {
	cutter := gpuimpl.NewSectionCutter()
	if err := drafter.RegisterCutter(cutter); err != nil {
		drafter.Logger().Warn("GPU section cutter not available", "err", err)
	}
}
