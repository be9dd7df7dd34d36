// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/gogpu/imdraw/device"
)

var (
	// ErrNilDevice is returned by NewDevice for a nil device or queue.
	ErrNilDevice = errors.New("wgpu: nil device or queue")

	// ErrNoProvider is returned by NewFromProvider when the provider does
	// not expose HAL objects.
	ErrNoProvider = errors.New("wgpu: provider does not expose HAL device and queue")

	// ErrNoPass is returned when a draw is replayed outside a render pass.
	ErrNoPass = errors.New("wgpu: draw outside a render pass")

	// ErrNoTexture is returned when a draw is replayed without a bound texture.
	ErrNoTexture = errors.New("wgpu: draw without a bound texture")

	// ErrForeignTexture is returned when the bound texture was not created
	// by this package.
	ErrForeignTexture = errors.New("wgpu: texture was not created by a wgpu device")

	// ErrProjectionLimit is returned when a pass changes the projection more
	// often than Config.MaxProjections.
	ErrProjectionLimit = errors.New("wgpu: too many projection changes in one pass")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("wgpu: device closed")
)

// uniformSlotSize is the stride between projection slots. WebGPU requires
// uniform buffer offsets to be multiples of 256.
const uniformSlotSize = 256

// Config configures a Device.
type Config struct {
	// Logger receives pipeline and resource diagnostics. Nil is silent.
	Logger *slog.Logger

	// Format is the color target format of the passes the device draws in.
	Format gputypes.TextureFormat

	// DepthFormat is the depth attachment format. Leave it undefined when
	// passes have no depth attachment.
	DepthFormat gputypes.TextureFormat

	// PipelineCacheSize bounds the number of live render pipelines.
	PipelineCacheSize int

	// MaxProjections is the number of projection changes one pass may make.
	MaxProjections int
}

// DefaultConfig returns the configuration used by NewFromProvider when the
// provider does not report a surface format.
func DefaultConfig() Config {
	return Config{
		Format:            gputypes.TextureFormatBGRA8Unorm,
		DepthFormat:       gputypes.TextureFormatUndefined,
		PipelineCacheSize: 32,
		MaxProjections:    64,
	}
}

// Device replays imdraw command streams into a HAL render pass. It also
// implements device.BufferFactory.
//
// A Device is not safe for concurrent use.
type Device struct {
	device hal.Device
	queue  hal.Queue
	cfg    Config
	log    *slog.Logger
	nextID uint32

	uniformLayout  hal.BindGroupLayout
	textureLayout  hal.BindGroupLayout
	pipelineLayout hal.PipelineLayout
	uniformBuf     hal.Buffer
	uniformGroups  []hal.BindGroup

	shaders       map[string]hal.ShaderModule
	pipelines     *lru.Cache[pipelineKey, hal.RenderPipeline]
	retired       []hal.RenderPipeline
	samplers      map[device.SamplerState]hal.Sampler
	textureGroups map[textureGroupKey]hal.BindGroup
	warnedEffect  map[string]bool

	// Logical state, set by replay.
	blend      device.BlendState
	depth      device.DepthState
	raster     device.RasterizerState
	sampler    device.SamplerState
	effect     device.Effect
	projection device.Matrix4
	texture    device.Texture
	vb         *VertexBuffer
	ib         *IndexBuffer

	// Pass state.
	pass          hal.RenderPassEncoder
	slot          int
	projDirty     bool
	boundPipeline hal.RenderPipeline
	boundUniform  hal.BindGroup
	boundTexture  hal.BindGroup
	boundVB       *VertexBuffer
	boundIB       *IndexBuffer

	stats  device.Stats
	err    error
	closed bool
}

// NewDevice creates a Device drawing with dev and uploading through queue.
// Zero Config fields take their DefaultConfig values.
func NewDevice(dev hal.Device, queue hal.Queue, cfg Config) (*Device, error) {
	if dev == nil || queue == nil {
		return nil, ErrNilDevice
	}
	def := DefaultConfig()
	if cfg.Format == gputypes.TextureFormatUndefined {
		cfg.Format = def.Format
	}
	if cfg.PipelineCacheSize <= 0 {
		cfg.PipelineCacheSize = def.PipelineCacheSize
	}
	if cfg.MaxProjections <= 0 {
		cfg.MaxProjections = def.MaxProjections
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	d := &Device{
		device:        dev,
		queue:         queue,
		cfg:           cfg,
		log:           log,
		shaders:       make(map[string]hal.ShaderModule),
		samplers:      make(map[device.SamplerState]hal.Sampler),
		textureGroups: make(map[textureGroupKey]hal.BindGroup),
		warnedEffect:  make(map[string]bool),
		projection:    device.Identity4(),
		blend:         device.BlendAlpha,
		depth:         device.DepthNone,
		raster:        device.CullNone,
		sampler:       device.SamplerLinearClamp,
	}
	cache, err := lru.NewWithEvict(cfg.PipelineCacheSize, d.retirePipeline)
	if err != nil {
		return nil, fmt.Errorf("wgpu: pipeline cache: %w", err)
	}
	d.pipelines = cache
	if err := d.createLayouts(); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.createUniforms(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// NewFromProvider creates a Device sharing the GPU device of a host
// application, such as a gogpu window. The provider must also expose
// HalDevice() and HalQueue() returning hal.Device and hal.Queue.
// An undefined cfg.Format is taken from the provider's surface format.
func NewFromProvider(provider gpucontext.DeviceProvider, cfg Config) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	if provider == nil {
		return nil, ErrNoProvider
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoProvider
	}
	dev, ok := hp.HalDevice().(hal.Device)
	if !ok || dev == nil {
		return nil, fmt.Errorf("%w: HalDevice is %T", ErrNoProvider, hp.HalDevice())
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is %T", ErrNoProvider, hp.HalQueue())
	}
	if cfg.Format == gputypes.TextureFormatUndefined {
		cfg.Format = provider.SurfaceFormat()
	}
	return NewDevice(dev, queue, cfg)
}

func (d *Device) createLayouts() error {
	var err error
	d.uniformLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "imdraw_projection_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create projection layout: %w", err)
	}
	d.textureLayout, err = d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "imdraw_texture_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create texture layout: %w", err)
	}
	d.pipelineLayout, err = d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "imdraw_pipeline_layout",
		BindGroupLayouts: []hal.BindGroupLayout{d.uniformLayout, d.textureLayout},
	})
	if err != nil {
		return fmt.Errorf("wgpu: create pipeline layout: %w", err)
	}
	return nil
}

// createUniforms allocates one uniform buffer holding MaxProjections
// slots and a bind group per slot.
func (d *Device) createUniforms() error {
	n := d.cfg.MaxProjections
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "imdraw_projection",
		Size:  uint64(n * uniformSlotSize),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create projection buffer: %w", err)
	}
	d.uniformBuf = buf
	d.uniformGroups = make([]hal.BindGroup, 0, n)
	for i := 0; i < n; i++ {
		bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:  "imdraw_projection",
			Layout: d.uniformLayout,
			Entries: []gputypes.BindGroupEntry{
				{Binding: 0, Resource: gputypes.BufferBinding{
					Buffer: buf.NativeHandle(), Offset: uint64(i * uniformSlotSize), Size: 64,
				}},
			},
		})
		if err != nil {
			return fmt.Errorf("wgpu: create projection bind group %d: %w", i, err)
		}
		d.uniformGroups = append(d.uniformGroups, bg)
	}
	return nil
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

// Config returns the effective configuration.
func (d *Device) Config() Config { return d.cfg }

// Stats returns the work done since the last ResetStats.
func (d *Device) Stats() device.Stats { return d.stats }

// ResetStats clears the counters.
func (d *Device) ResetStats() { d.stats = device.Stats{} }

// Err returns the first error a draw hit since the last BeginPass.
func (d *Device) Err() error { return d.err }

// Pipelines returns the number of cached render pipelines.
func (d *Device) Pipelines() int { return d.pipelines.Len() }

// BeginPass starts replaying into rp, a render pass owned by the caller.
// The pass must target Config.Format, and Config.DepthFormat if set.
func (d *Device) BeginPass(rp hal.RenderPassEncoder) {
	d.destroyRetired()
	d.pass = rp
	d.slot = 0
	d.projDirty = true
	d.boundPipeline = nil
	d.boundUniform = nil
	d.boundTexture = nil
	d.boundVB = nil
	d.boundIB = nil
	d.err = nil
}

// EndPass stops replaying into the current pass and returns the first
// error a draw hit. The caller ends and submits the pass.
func (d *Device) EndPass() error {
	d.pass = nil
	return d.err
}

// FrameTarget describes the attachments of a pass created by Frame.
type FrameTarget struct {
	// Color is the color attachment. Its format must be Config.Format.
	Color hal.TextureView

	// Depth is the optional depth attachment. Its format must be
	// Config.DepthFormat.
	Depth hal.TextureView

	// Clear clears the color attachment when set. Otherwise the existing
	// contents are kept.
	Clear *gputypes.Color
}

// Frame encodes a render pass over target, runs record inside it, then
// submits the pass and waits for the GPU. record typically calls
// DrawContext.Render with this device.
func (d *Device) Frame(target FrameTarget, record func() error) error {
	if d.closed {
		return ErrClosed
	}
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
		Label: "imdraw_frame_encoder",
	})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("imdraw_frame"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}

	color := hal.RenderPassColorAttachment{
		View:    target.Color,
		LoadOp:  gputypes.LoadOpLoad,
		StoreOp: gputypes.StoreOpStore,
	}
	if target.Clear != nil {
		color.LoadOp = gputypes.LoadOpClear
		color.ClearValue = *target.Clear
	}
	desc := &hal.RenderPassDescriptor{
		Label:            "imdraw_frame_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{color},
	}
	if target.Depth != nil {
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            target.Depth,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpDiscard,
			DepthClearValue: 1.0,
		}
	}

	rp := encoder.BeginRenderPass(desc)
	d.BeginPass(rp)
	recErr := record()
	passErr := d.EndPass()
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}
	defer d.device.FreeCommandBuffer(cmdBuf)
	if recErr != nil {
		return recErr
	}
	if passErr != nil {
		return passErr
	}

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("wgpu: create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)
	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	ok, err := d.device.Wait(fence, 1, 5*time.Second)
	if err != nil || !ok {
		return fmt.Errorf("wgpu: wait for GPU: ok=%v err=%w", ok, err)
	}
	return nil
}

// SetBlendState implements device.Device.
func (d *Device) SetBlendState(s device.BlendState) { d.blend = s }

// SetDepthState implements device.Device.
func (d *Device) SetDepthState(s device.DepthState) { d.depth = s }

// SetRasterizerState implements device.Device.
func (d *Device) SetRasterizerState(s device.RasterizerState) { d.raster = s }

// SetSamplerState implements device.Device.
func (d *Device) SetSamplerState(s device.SamplerState) { d.sampler = s }

// SetEffect implements device.Device.
func (d *Device) SetEffect(e device.Effect) { d.effect = e }

// SetProjection implements device.Device. Each change inside a pass uses
// one of Config.MaxProjections uniform slots.
func (d *Device) SetProjection(m device.Matrix4) {
	if m != d.projection {
		d.projection = m
		d.projDirty = true
	}
}

// BindTexture implements device.Device.
func (d *Device) BindTexture(t device.Texture) { d.texture = t }

// BindVertexBuffer implements device.Device. The buffer must come from
// this device.
func (d *Device) BindVertexBuffer(b device.VertexBuffer) {
	vb, ok := b.(*VertexBuffer)
	if !ok {
		panic(fmt.Sprintf("wgpu: vertex buffer %T was not created by a wgpu device", b))
	}
	d.vb = vb
}

// BindIndexBuffer implements device.Device. The buffer must come from
// this device.
func (d *Device) BindIndexBuffer(b device.IndexBuffer) {
	ib, ok := b.(*IndexBuffer)
	if !ok {
		panic(fmt.Sprintf("wgpu: index buffer %T was not created by a wgpu device", b))
	}
	d.ib = ib
}

// DrawIndexedTriangles implements device.Device.
//
// Failures are sticky for the rest of the pass and reported by EndPass.
func (d *Device) DrawIndexedTriangles(startIndex, primitiveCount int) {
	if d.err != nil || primitiveCount <= 0 {
		return
	}
	if d.pass == nil {
		d.err = ErrNoPass
		return
	}
	if d.vb == nil || d.ib == nil {
		panic("wgpu: draw without bound vertex and index buffers")
	}
	if err := d.applyState(); err != nil {
		d.err = err
		d.log.Error("wgpu: draw failed", "err", err)
		return
	}
	d.pass.DrawIndexed(uint32(primitiveCount*3), 1, uint32(startIndex), 0, 0)
	d.stats.DrawCalls++
	d.stats.Triangles += primitiveCount
}

// applyState brings the pass bindings up to date with the logical state.
func (d *Device) applyState() error {
	pipe, err := d.pipeline()
	if err != nil {
		return err
	}
	if pipe != d.boundPipeline {
		d.pass.SetPipeline(pipe)
		d.boundPipeline = pipe
	}

	if d.projDirty {
		if d.slot >= len(d.uniformGroups) {
			return fmt.Errorf("%w (%d)", ErrProjectionLimit, len(d.uniformGroups))
		}
		d.queue.WriteBuffer(d.uniformBuf, uint64(d.slot*uniformSlotSize), matrixBytes(d.projection))
		d.boundUniform = d.uniformGroups[d.slot]
		d.slot++
		d.projDirty = false
		d.pass.SetBindGroup(0, d.boundUniform, nil)
	}

	bg, err := d.textureGroup()
	if err != nil {
		return err
	}
	if bg != d.boundTexture {
		d.pass.SetBindGroup(1, bg, nil)
		d.boundTexture = bg
	}

	if d.vb != d.boundVB {
		d.pass.SetVertexBuffer(0, d.vb.buf, 0)
		d.boundVB = d.vb
	}
	if d.ib != d.boundIB {
		d.pass.SetIndexBuffer(d.ib.buf, gputypes.IndexFormatUint16, 0)
		d.boundIB = d.ib
	}
	return nil
}

// matrixBytes encodes m column-major as WGSL mat4x4<f32>.
func matrixBytes(m device.Matrix4) []byte {
	b := make([]byte, 64)
	for i, v := range m {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// Close destroys every GPU object the device created. Buffers and textures
// handed out earlier must be destroyed by their owners first.
func (d *Device) Close() {
	if d.closed {
		return
	}
	d.closed = true
	d.pipelines.Purge()
	d.destroyRetired()
	for k, bg := range d.textureGroups {
		d.device.DestroyBindGroup(bg)
		delete(d.textureGroups, k)
	}
	for k, s := range d.samplers {
		d.device.DestroySampler(s)
		delete(d.samplers, k)
	}
	for k, m := range d.shaders {
		d.device.DestroyShaderModule(m)
		delete(d.shaders, k)
	}
	for _, bg := range d.uniformGroups {
		d.device.DestroyBindGroup(bg)
	}
	d.uniformGroups = nil
	if d.uniformBuf != nil {
		d.device.DestroyBuffer(d.uniformBuf)
		d.uniformBuf = nil
	}
	if d.pipelineLayout != nil {
		d.device.DestroyPipelineLayout(d.pipelineLayout)
		d.pipelineLayout = nil
	}
	if d.textureLayout != nil {
		d.device.DestroyBindGroupLayout(d.textureLayout)
		d.textureLayout = nil
	}
	if d.uniformLayout != nil {
		d.device.DestroyBindGroupLayout(d.uniformLayout)
		d.uniformLayout = nil
	}
}
