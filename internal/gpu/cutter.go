//go:build !nogpu

// Package gpu implements the section cutter as a wgpu/hal compute kernel:
// one invocation per triangle, output slots reserved with an atomic
// counter. Buffers are cached across meshes and grow by doubling; when
// the GPU is unavailable every call reports ErrFallbackToCPU.
package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/gobim/drafter"
)

//go:embed shaders/section_cut.wgsl
var sectionCutShaderSource string

// segmentStride is the GPU-side size of one output segment:
// two vec4 endpoints plus two vec2 projections.
const segmentStride = 48

// paramsSize is the size of the uniform Params block.
const paramsSize = 32

// dispatchTimeout bounds one dispatch; a wedged queue degrades to the
// CPU path instead of hanging generation.
const dispatchTimeout = 5 * time.Second

// SectionCutter is the GPU implementation of drafter.GPUCutter.
//
// All state is guarded by mu: a cutter bound to one GPU device must not
// serve overlapping requests, matching the generator's non-reentrancy
// contract.
type SectionCutter struct {
	mu  sync.Mutex
	log *slog.Logger

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	shader     hal.ShaderModule
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	pipeline   hal.ComputePipeline

	// Cached per-device buffers, grown on demand.
	posBuf     hal.Buffer
	idxBuf     hal.Buffer
	segBuf     hal.Buffer
	countBuf   hal.Buffer
	paramBuf   hal.Buffer
	stagingSeg hal.Buffer
	stagingCnt hal.Buffer

	posCap   int // floats
	idxCap   int // indices
	capacity int // triangles the output buffer can hold

	gpuReady bool
}

var _ drafter.GPUCutter = (*SectionCutter)(nil)

// NewSectionCutter creates an uninitialized GPU cutter. Init acquires
// the device; construction never touches the GPU.
func NewSectionCutter() *SectionCutter {
	return &SectionCutter{log: drafter.Logger()}
}

// Name implements drafter.GPUCutter.
func (c *SectionCutter) Name() string { return "wgpu" }

// SetLogger lets drafter.SetLogger propagate the shared logger.
func (c *SectionCutter) SetLogger(l *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = l
}

// Init acquires a GPU adapter and builds the compute pipeline. A missing
// GPU is not an error: the cutter stays in fallback mode and every
// CutMesh call reports ErrFallbackToCPU.
func (c *SectionCutter) Init() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.initGPU(); err != nil {
		c.log.Warn("GPU init failed, section cutting stays on CPU", "err", err)
	}
	return nil
}

func (c *SectionCutter) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	c.instance = instance

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	c.device = openDev.Device
	c.queue = openDev.Queue

	if err := c.createPipeline(); err != nil {
		c.device.Destroy()
		c.device = nil
		c.queue = nil
		return fmt.Errorf("create pipeline: %w", err)
	}
	c.gpuReady = true
	c.log.Info("GPU section cutter initialized", "adapter", selected.Info.Name)
	return nil
}

func (c *SectionCutter) createPipeline() error {
	shader, err := c.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "section_cut",
		Source: hal.ShaderSource{WGSL: sectionCutShaderSource},
	})
	if err != nil {
		return fmt.Errorf("compile section_cut shader: %w", err)
	}
	c.shader = shader

	bindLayout, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "section_cut_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 3, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
			{Binding: 4, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return fmt.Errorf("create bind group layout: %w", err)
	}
	c.bindLayout = bindLayout

	pipeLayout, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "section_cut_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{c.bindLayout},
	})
	if err != nil {
		return fmt.Errorf("create pipeline layout: %w", err)
	}
	c.pipeLayout = pipeLayout

	pipeline, err := c.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: "section_cut_pipeline", Layout: c.pipeLayout,
		Compute: hal.ComputeState{Module: c.shader, EntryPoint: "main"},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	c.pipeline = pipeline
	return nil
}

// Close releases every GPU resource the cutter owns.
func (c *SectionCutter) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyBuffers()
	c.destroyPipeline()
	if c.device != nil {
		c.device.Destroy()
		c.device = nil
	}
	if c.instance != nil {
		c.instance.Destroy()
		c.instance = nil
	}
	c.queue = nil
	c.gpuReady = false
}

// Capacity implements drafter.GPUCutter.
func (c *SectionCutter) Capacity() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capacity
}

// Grow implements drafter.GPUCutter: reallocate the output buffers to
// hold at least n triangles, doubling the previous capacity so repeated
// small overruns settle quickly.
func (c *SectionCutter) Grow(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.gpuReady {
		return drafter.ErrFallbackToCPU
	}
	target := c.capacity
	if target == 0 {
		target = 1024
	}
	for target < n {
		target *= 2
	}
	if target == c.capacity {
		return nil
	}
	return c.allocOutput(target)
}

func (c *SectionCutter) allocOutput(triangles int) error {
	if c.segBuf != nil {
		c.device.DestroyBuffer(c.segBuf)
		c.segBuf = nil
	}
	if c.stagingSeg != nil {
		c.device.DestroyBuffer(c.stagingSeg)
		c.stagingSeg = nil
	}

	segSize := uint64(triangles) * segmentStride
	segBuf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "section_segments", Size: segSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return fmt.Errorf("create segment buffer: %w", err)
	}
	stagingSeg, err := c.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "section_segments_staging", Size: segSize,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		c.device.DestroyBuffer(segBuf)
		return fmt.Errorf("create segment staging buffer: %w", err)
	}
	c.segBuf = segBuf
	c.stagingSeg = stagingSeg
	c.capacity = triangles
	c.log.Debug("GPU segment buffers grown", "triangles", triangles)
	return nil
}

// CutMesh implements drafter.GPUCutter. The mesh's triangles are cut in
// one dispatch; segment order carries no meaning.
func (c *SectionCutter) CutMesh(plane drafter.SectionPlane, m *drafter.Mesh, cfg drafter.CutterConfig) ([]drafter.CutSegment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.gpuReady {
		return nil, drafter.ErrFallbackToCPU
	}
	tris := m.TriangleCount()
	if tris == 0 {
		return nil, nil
	}
	if tris > c.capacity {
		return nil, drafter.ErrFallbackToCPU
	}
	if err := c.ensureInputs(len(m.Positions), len(m.Indices)); err != nil {
		return nil, err
	}

	c.queue.WriteBuffer(c.posBuf, 0, floatBytes(m.Positions))
	c.queue.WriteBuffer(c.idxBuf, 0, uint32Bytes(m.Indices))
	c.queue.WriteBuffer(c.paramBuf, 0, packParams(plane, cfg, tris))
	c.queue.WriteBuffer(c.countBuf, 0, make([]byte, 4))

	bindGroup, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: "section_cut_bind", Layout: c.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: c.paramBuf.NativeHandle(), Offset: 0, Size: paramsSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: c.posBuf.NativeHandle(), Offset: 0, Size: uint64(len(m.Positions)) * 4}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: c.idxBuf.NativeHandle(), Offset: 0, Size: uint64(len(m.Indices)) * 4}},
			{Binding: 3, Resource: gputypes.BufferBinding{Buffer: c.segBuf.NativeHandle(), Offset: 0, Size: uint64(c.capacity) * segmentStride}},
			{Binding: 4, Resource: gputypes.BufferBinding{Buffer: c.countBuf.NativeHandle(), Offset: 0, Size: 4}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group: %w", err)
	}
	defer c.device.DestroyBindGroup(bindGroup)

	if err := c.dispatch(bindGroup, tris); err != nil {
		return nil, err
	}
	return c.readback(m)
}

func (c *SectionCutter) dispatch(bindGroup hal.BindGroup, tris int) error {
	encoder, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "section_cut_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("section_cut"); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "section_cut_pass"})
	pass.SetPipeline(c.pipeline)
	pass.SetBindGroup(0, bindGroup, nil)
	pass.Dispatch(uint32((tris+63)/64), 1, 1)
	pass.End()

	encoder.CopyBufferToBuffer(c.segBuf, c.stagingSeg, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: uint64(c.capacity) * segmentStride},
	})
	encoder.CopyBufferToBuffer(c.countBuf, c.stagingCnt, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: 4},
	})

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer c.device.FreeCommandBuffer(cmdBuf)

	idx, err := c.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		return fmt.Errorf("submit: %w: %w", drafter.ErrDeviceLost, err)
	}
	return c.waitSubmission(idx)
}

// waitSubmission polls the queue until the submission index retires.
// The HAL fences submissions internally; PollCompleted reports the
// highest index the GPU has finished.
func (c *SectionCutter) waitSubmission(idx uint64) error {
	deadline := time.Now().Add(dispatchTimeout)
	for c.queue.PollCompleted() < idx {
		if time.Now().After(deadline) {
			return fmt.Errorf("wait for GPU submission %d: timeout: %w", idx, drafter.ErrDeviceLost)
		}
		time.Sleep(100 * time.Microsecond)
	}
	return nil
}

func (c *SectionCutter) readback(m *drafter.Mesh) ([]drafter.CutSegment, error) {
	cntRaw, err := c.readStaging(c.stagingCnt, 4)
	if err != nil {
		return nil, fmt.Errorf("read segment count: %w", err)
	}
	count := int(binary.LittleEndian.Uint32(cntRaw))
	if count > c.capacity {
		// The atomic counter can run past the buffer; the overflow
		// slots were never written.
		count = c.capacity
	}
	if count == 0 {
		return nil, nil
	}

	raw, err := c.readStaging(c.stagingSeg, count*segmentStride)
	if err != nil {
		return nil, fmt.Errorf("read segments: %w", err)
	}

	segs := make([]drafter.CutSegment, 0, count)
	for i := 0; i < count; i++ {
		o := i * segmentStride
		segs = append(segs, drafter.CutSegment{
			A3: drafter.Vec3{
				X: float64(f32at(raw, o)),
				Y: float64(f32at(raw, o+4)),
				Z: float64(f32at(raw, o+8)),
			},
			B3: drafter.Vec3{
				X: float64(f32at(raw, o+16)),
				Y: float64(f32at(raw, o+20)),
				Z: float64(f32at(raw, o+24)),
			},
			A: drafter.Point2D{
				X: float64(f32at(raw, o+32)),
				Y: float64(f32at(raw, o+36)),
			},
			B: drafter.Point2D{
				X: float64(f32at(raw, o+40)),
				Y: float64(f32at(raw, o+44)),
			},
			EntityID:   m.EntityID,
			IfcType:    m.IfcType,
			ModelIndex: m.ModelIndex,
		})
	}
	return segs, nil
}

// readStaging maps a MapRead staging buffer and copies size bytes out.
// The caller has already waited for the producing submission, so the
// GPU is not writing the range while it is mapped.
func (c *SectionCutter) readStaging(buf hal.Buffer, size int) ([]byte, error) {
	mapping, err := c.device.MapBuffer(buf, 0, uint64(size))
	if err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	out := make([]byte, size)
	copy(out, unsafe.Slice((*byte)(mapping.Ptr), size))
	if err := c.device.UnmapBuffer(buf); err != nil {
		return nil, fmt.Errorf("unmap staging buffer: %w", err)
	}
	return out, nil
}

// ensureInputs sizes the input, uniform, and counter buffers. Input
// buffers also grow by doubling so alternating mesh sizes do not thrash.
func (c *SectionCutter) ensureInputs(floats, indices int) error {
	if c.paramBuf == nil {
		buf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "section_params", Size: paramsSize,
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create params buffer: %w", err)
		}
		c.paramBuf = buf
	}
	if c.countBuf == nil {
		buf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "section_count", Size: 4,
			Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create counter buffer: %w", err)
		}
		c.countBuf = buf
	}
	if c.stagingCnt == nil {
		buf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "section_count_staging", Size: 4,
			Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create counter staging buffer: %w", err)
		}
		c.stagingCnt = buf
	}
	if floats > c.posCap {
		if c.posBuf != nil {
			c.device.DestroyBuffer(c.posBuf)
			c.posBuf = nil
		}
		size := 1024
		if c.posCap > size {
			size = c.posCap
		}
		for size < floats {
			size *= 2
		}
		buf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "section_positions", Size: uint64(size) * 4,
			Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create position buffer: %w", err)
		}
		c.posBuf = buf
		c.posCap = size
	}
	if indices > c.idxCap {
		if c.idxBuf != nil {
			c.device.DestroyBuffer(c.idxBuf)
			c.idxBuf = nil
		}
		size := 1024
		if c.idxCap > size {
			size = c.idxCap
		}
		for size < indices {
			size *= 2
		}
		buf, err := c.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "section_indices", Size: uint64(size) * 4,
			Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create index buffer: %w", err)
		}
		c.idxBuf = buf
		c.idxCap = size
	}
	return nil
}

func (c *SectionCutter) destroyBuffers() {
	if c.device == nil {
		return
	}
	for _, b := range []hal.Buffer{c.posBuf, c.idxBuf, c.segBuf, c.countBuf, c.paramBuf, c.stagingSeg, c.stagingCnt} {
		if b != nil {
			c.device.DestroyBuffer(b)
		}
	}
	c.posBuf, c.idxBuf, c.segBuf, c.countBuf, c.paramBuf, c.stagingSeg, c.stagingCnt = nil, nil, nil, nil, nil, nil, nil
	c.posCap, c.idxCap, c.capacity = 0, 0, 0
}

func (c *SectionCutter) destroyPipeline() {
	if c.device == nil {
		return
	}
	if c.pipeline != nil {
		c.device.DestroyComputePipeline(c.pipeline)
		c.pipeline = nil
	}
	if c.pipeLayout != nil {
		c.device.DestroyPipelineLayout(c.pipeLayout)
		c.pipeLayout = nil
	}
	if c.bindLayout != nil {
		c.device.DestroyBindGroupLayout(c.bindLayout)
		c.bindLayout = nil
	}
	if c.shader != nil {
		c.device.DestroyShaderModule(c.shader)
		c.shader = nil
	}
}

// packParams serializes the uniform Params block.
func packParams(plane drafter.SectionPlane, cfg drafter.CutterConfig, tris int) []byte {
	out := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(out[0:], uint32(plane.Axis))
	binary.LittleEndian.PutUint32(out[4:], boolU32(plane.Negated))
	binary.LittleEndian.PutUint32(out[8:], boolU32(plane.Flipped))
	binary.LittleEndian.PutUint32(out[12:], uint32(tris))
	binary.LittleEndian.PutUint32(out[16:], math.Float32bits(float32(plane.Offset)))
	binary.LittleEndian.PutUint32(out[20:], math.Float32bits(float32(cfg.PlaneEpsilon)))
	binary.LittleEndian.PutUint32(out[24:], math.Float32bits(float32(cfg.MinLength2D)))
	return out
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func f32at(raw []byte, o int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(raw[o:]))
}

func floatBytes(v []float32) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(v))), len(v)*4)
}

func uint32Bytes(v []uint32) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(v))), len(v)*4)
}
