// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"strings"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/imdraw"
	"github.com/gogpu/imdraw/device"
)

// openNoop opens the noop HAL device.
func openNoop(t *testing.T) (hal.Device, hal.Queue) {
	t.Helper()
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		t.Fatalf("CreateInstance failed: %v", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	open, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		open.Device.Destroy()
		instance.Destroy()
	})
	return open.Device, open.Queue
}

// newTestDevice returns a Device over the noop backend and a color view to
// render into.
func newTestDevice(t *testing.T, cfg Config) (*Device, hal.TextureView) {
	t.Helper()
	halDev, queue := openNoop(t)
	d, err := NewDevice(halDev, queue, cfg)
	if err != nil {
		t.Fatalf("NewDevice() error = %v", err)
	}
	t.Cleanup(d.Close)

	tex, err := halDev.CreateTexture(&hal.TextureDescriptor{
		Label:         "test_target",
		Size:          hal.Extent3D{Width: 64, Height: 64, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        d.Config().Format,
		Usage:         gputypes.TextureUsageRenderAttachment,
	})
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}
	view, err := halDev.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "test_target_view",
		Format:        d.Config().Format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		t.Fatalf("CreateTextureView() error = %v", err)
	}
	t.Cleanup(func() {
		halDev.DestroyTextureView(view)
		halDev.DestroyTexture(tex)
	})
	return d, view
}

// newTestContext returns a DrawContext drawing through d.
func newTestContext(t *testing.T, d *Device) *imdraw.DrawContext {
	t.Helper()
	white, err := d.WhiteTexture()
	if err != nil {
		t.Fatalf("WhiteTexture() error = %v", err)
	}
	t.Cleanup(white.Destroy)
	dc, err := imdraw.NewDrawContext(d, imdraw.WithWhiteTexture(white, imdraw.Vec2{}), imdraw.WithViewport(64, 64))
	if err != nil {
		t.Fatalf("NewDrawContext() error = %v", err)
	}
	t.Cleanup(func() { dc.Close() })
	return dc
}

func TestSpirvWords(t *testing.T) {
	words, err := spirvWords([]byte{0x03, 0x02, 0x23, 0x07, 1, 0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(words) != 2 || words[0] != 0x07230203 || words[1] != 1 {
		t.Errorf("words = %#x", words)
	}
	if _, err := spirvWords([]byte{1, 2, 3, 4, 5}); err == nil {
		t.Error("expected error for a partial word")
	}
}

func TestCompileBuiltinShader(t *testing.T) {
	words, err := compileWGSL(SpriteShaderSource())
	if err != nil {
		t.Fatalf("compileWGSL() error = %v", err)
	}
	if len(words) == 0 || words[0] != 0x07230203 {
		t.Errorf("missing SPIR-V magic, first words = %#x", words[:min(len(words), 2)])
	}
	for _, entry := range []string{"vs_main", "fs_main", "@group(1) @binding(1)"} {
		if !strings.Contains(SpriteShaderSource(), entry) {
			t.Errorf("built-in shader lacks %q", entry)
		}
	}
}

func TestNewDeviceErrors(t *testing.T) {
	if _, err := NewDevice(nil, nil, Config{}); !errors.Is(err, ErrNilDevice) {
		t.Errorf("NewDevice(nil) error = %v, want ErrNilDevice", err)
	}
	if _, err := NewFromProvider(nil, Config{}); !errors.Is(err, ErrNoProvider) {
		t.Errorf("NewFromProvider(nil) error = %v, want ErrNoProvider", err)
	}
	if _, err := NewFromProvider(plainProvider{}, Config{}); !errors.Is(err, ErrNoProvider) {
		t.Errorf("provider without HAL: error = %v, want ErrNoProvider", err)
	}
}

func TestDefaults(t *testing.T) {
	d, _ := newTestDevice(t, Config{})
	cfg := d.Config()
	want := DefaultConfig()
	if cfg.Format != want.Format || cfg.PipelineCacheSize != want.PipelineCacheSize || cfg.MaxProjections != want.MaxProjections {
		t.Errorf("Config() = %+v, want defaults %+v", cfg, want)
	}
	if len(d.uniformGroups) != want.MaxProjections {
		t.Errorf("projection slots = %d, want %d", len(d.uniformGroups), want.MaxProjections)
	}
}

// plainProvider is a gpucontext.DeviceProvider without HAL accessors.
type plainProvider struct{}

func (plainProvider) Device() gpucontext.Device             { return nil }
func (plainProvider) Queue() gpucontext.Queue               { return nil }
func (plainProvider) Adapter() gpucontext.Adapter           { return nil }
func (plainProvider) SurfaceFormat() gputypes.TextureFormat { return gputypes.TextureFormatRGBA8Unorm }

// halProvider adds HAL accessors over a noop device.
type halProvider struct {
	plainProvider
	dev   hal.Device
	queue hal.Queue
}

func (p halProvider) HalDevice() any { return p.dev }
func (p halProvider) HalQueue() any  { return p.queue }

func TestNewFromProvider(t *testing.T) {
	dev, queue := openNoop(t)
	d, err := NewFromProvider(halProvider{dev: dev, queue: queue}, Config{})
	if err != nil {
		t.Fatalf("NewFromProvider() error = %v", err)
	}
	defer d.Close()
	if got := d.Config().Format; got != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Format = %v, want the surface format", got)
	}

	_, err = NewFromProvider(halProvider{dev: dev}, Config{})
	if !errors.Is(err, ErrNoProvider) {
		t.Errorf("missing queue: error = %v, want ErrNoProvider", err)
	}
}

func TestAlignedRange(t *testing.T) {
	tests := []struct {
		start, length int
		lo, hi        int
	}{
		{0, 6, 0, 6},
		{0, 3, 0, 4},
		{1, 1, 0, 2},
		{5, 4, 4, 10},
		{7, 0, 6, 8},
	}
	for _, tt := range tests {
		lo, hi := alignedRange(tt.start, tt.length)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("alignedRange(%d, %d) = (%d, %d), want (%d, %d)", tt.start, tt.length, lo, hi, tt.lo, tt.hi)
		}
	}
}

func TestIndexBufferShadow(t *testing.T) {
	d, _ := newTestDevice(t, Config{})
	b, err := d.CreateIndex16Buffer(5, true)
	if err != nil {
		t.Fatal(err)
	}
	ib := b.(*IndexBuffer)
	defer ib.Destroy()
	if ib.Len() != 5 || len(ib.shadow) != 6 {
		t.Errorf("Len() = %d, shadow = %d; want 5, 6", ib.Len(), len(ib.shadow))
	}
	ib.SetData([]uint16{1, 2, 3}, 0, 3)
	ib.SetData([]uint16{9, 9}, 3, 1)
	want := []uint16{1, 2, 3, 9, 0, 0}
	for i, v := range want {
		if ib.shadow[i] != v {
			t.Errorf("shadow[%d] = %d, want %d", i, ib.shadow[i], v)
		}
	}
	st := d.Stats()
	if st.IndexUploads != 2 || st.IndicesWritten != 4 {
		t.Errorf("stats = %+v, want 2 uploads of 4 indices", st)
	}
}

func TestSetDataPanics(t *testing.T) {
	d, _ := newTestDevice(t, Config{})
	vb, err := d.CreateVertexBuffer(imdraw.VertexLayout, 4, true)
	if err != nil {
		t.Fatal(err)
	}
	ib, err := d.CreateIndex16Buffer(6, true)
	if err != nil {
		t.Fatal(err)
	}
	stride := imdraw.VertexLayout.Stride
	tests := []struct {
		name string
		fn   func()
	}{
		{"vertex overflow", func() { vb.SetData(make([]byte, 2*stride), 3, 2) }},
		{"vertex short data", func() { vb.SetData(make([]byte, stride), 0, 2) }},
		{"index overflow", func() { ib.SetData(make([]uint16, 4), 4, 4) }},
		{"index negative", func() { ib.SetData(nil, -1, 0) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn()
		})
	}
}

func TestFrame(t *testing.T) {
	d, view := newTestDevice(t, Config{})
	dc := newTestContext(t, d)
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	tex, err := d.NewTexture(img)
	if err != nil {
		t.Fatal(err)
	}
	defer tex.Destroy()

	for frame := 0; frame < 2; frame++ {
		dc.SetTexture(tex)
		dc.AddSprite(imdraw.V2(0, 0), imdraw.V2(1, 1), imdraw.White, imdraw.FullUV)
		dc.Geometry().AddCircleFilled(imdraw.V2(32, 32), 10, imdraw.Red, 0)
		dc.Geometry().AddLine(imdraw.V2(0, 0), imdraw.V2(60, 60), imdraw.Blue, 2)
		d.ResetStats()
		err := d.Frame(FrameTarget{Color: view, Clear: &gputypes.Color{A: 1}}, func() error {
			_, err := dc.Render(d)
			return err
		})
		if err != nil {
			t.Fatalf("frame %d: Frame() error = %v", frame, err)
		}
		st := d.Stats()
		if st.DrawCalls != 2 {
			t.Errorf("frame %d: DrawCalls = %d, want 2 (sprite, geometry)", frame, st.DrawCalls)
		}
		if st.Triangles != dc.Triangles() {
			t.Errorf("frame %d: Triangles = %d, want %d", frame, st.Triangles, dc.Triangles())
		}
	}
	if d.Pipelines() != 1 {
		t.Errorf("Pipelines() = %d, want 1", d.Pipelines())
	}
	if n := len(d.textureGroups); n != 2 {
		t.Errorf("texture bind groups = %d, want 2", n)
	}
}

// drawQuad binds a fresh quad and draws it inside the current pass.
func drawQuad(t *testing.T, d *Device, tex device.Texture) {
	t.Helper()
	vb, err := d.CreateVertexBuffer(imdraw.VertexLayout, 4, true)
	if err != nil {
		t.Fatal(err)
	}
	ib, err := d.CreateIndex16Buffer(6, false)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		vb.(*VertexBuffer).Destroy()
		ib.(*IndexBuffer).Destroy()
	})
	ib.SetData([]uint16{0, 1, 2, 1, 3, 2}, 0, 6)
	d.BindTexture(tex)
	d.BindVertexBuffer(vb)
	d.BindIndexBuffer(ib)
	d.DrawIndexedTriangles(0, 2)
}

func TestDrawErrors(t *testing.T) {
	d, view := newTestDevice(t, Config{MaxProjections: 2})
	white, err := d.WhiteTexture()
	if err != nil {
		t.Fatal(err)
	}
	defer white.Destroy()

	drawQuad(t, d, white)
	if !errors.Is(d.Err(), ErrNoPass) {
		t.Errorf("draw outside a pass: Err() = %v, want ErrNoPass", d.Err())
	}

	tests := []struct {
		name   string
		record func()
		want   error
	}{
		{"no texture", func() { drawQuad(t, d, nil) }, ErrNoTexture},
		{"foreign texture", func() { drawQuad(t, d, fakeTexture{}) }, ErrForeignTexture},
		{"projection limit", func() {
			for i := 0; i < 3; i++ {
				d.SetProjection(device.Scale4(float32(i+2), 1, 1))
				drawQuad(t, d, white)
			}
		}, ErrProjectionLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := d.Frame(FrameTarget{Color: view}, func() error {
				tt.record()
				return nil
			})
			if !errors.Is(err, tt.want) {
				t.Errorf("Frame() error = %v, want %v", err, tt.want)
			}
		})
	}

	// A new pass clears the sticky error.
	err = d.Frame(FrameTarget{Color: view}, func() error {
		drawQuad(t, d, white)
		return nil
	})
	if err != nil {
		t.Errorf("Frame() after failures = %v", err)
	}
}

type fakeTexture struct{}

func (fakeTexture) ID() uint32  { return 99 }
func (fakeTexture) Width() int  { return 1 }
func (fakeTexture) Height() int { return 1 }

func TestPipelineCacheEviction(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	d, view := newTestDevice(t, Config{PipelineCacheSize: 1, Logger: logger})
	white, err := d.WhiteTexture()
	if err != nil {
		t.Fatal(err)
	}
	defer white.Destroy()

	err = d.Frame(FrameTarget{Color: view}, func() error {
		d.SetBlendState(device.BlendAlpha)
		drawQuad(t, d, white)
		d.SetBlendState(device.BlendAdditive)
		drawQuad(t, d, white)
		if len(d.retired) != 1 {
			t.Errorf("retired pipelines = %d, want 1", len(d.retired))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Pipelines() != 1 {
		t.Errorf("Pipelines() = %d, want 1", d.Pipelines())
	}
	if !strings.Contains(buf.String(), "pipeline cache full") {
		t.Errorf("eviction was not logged:\n%s", buf.String())
	}
	d.BeginPass(nil)
	if len(d.retired) != 0 {
		t.Errorf("retired pipelines survived the next pass: %d", len(d.retired))
	}
	d.EndPass()
}

type namedEffect string

func (e namedEffect) Name() string { return string(e) }

func TestEffects(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	d, view := newTestDevice(t, Config{Logger: logger})
	white, err := d.WhiteTexture()
	if err != nil {
		t.Fatal(err)
	}
	defer white.Destroy()

	tinted := NewEffect("tinted", strings.Replace(SpriteShaderSource(), "* v.color", "* v.color * 0.5", 1))
	err = d.Frame(FrameTarget{Color: view}, func() error {
		d.SetEffect(namedEffect("unknown"))
		drawQuad(t, d, white)
		drawQuad(t, d, white)
		d.SetEffect(tinted)
		drawQuad(t, d, white)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(buf.String(), "no WGSL source"); got != 1 {
		t.Errorf("fallback warnings = %d, want 1", got)
	}
	if _, ok := d.shaders[BuiltinEffect]; !ok {
		t.Error("unknown effect did not fall back to the built-in program")
	}
	if _, ok := d.shaders["tinted"]; !ok {
		t.Error("custom effect was not compiled")
	}
	if d.Pipelines() != 2 {
		t.Errorf("Pipelines() = %d, want 2", d.Pipelines())
	}

	broken := NewEffect("broken", "fn vs_main( {")
	err = d.Frame(FrameTarget{Color: view}, func() error {
		d.SetEffect(broken)
		drawQuad(t, d, white)
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), `effect "broken"`) {
		t.Errorf("Frame() with a broken effect = %v", err)
	}
}

func TestTextureDestroyDropsBindGroups(t *testing.T) {
	d, view := newTestDevice(t, Config{})
	if _, err := d.NewTexture(image.NewNRGBA(image.Rectangle{})); err == nil {
		t.Error("NewTexture() accepted an empty image")
	}
	tex, err := d.NewTextureScaled(image.NewUniform(color.White), 4, 4)
	if err != nil {
		t.Fatal(err)
	}
	if tex.Width() != 4 || tex.Height() != 4 {
		t.Errorf("size = %dx%d, want 4x4", tex.Width(), tex.Height())
	}
	err = d.Frame(FrameTarget{Color: view}, func() error {
		drawQuad(t, d, tex)
		d.SetSamplerState(device.SamplerPointClamp)
		drawQuad(t, d, tex)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(d.textureGroups) != 2 || len(d.samplers) != 2 {
		t.Errorf("bind groups = %d, samplers = %d; want 2, 2", len(d.textureGroups), len(d.samplers))
	}
	tex.Destroy()
	tex.Destroy()
	if len(d.textureGroups) != 0 {
		t.Errorf("bind groups after Destroy = %d, want 0", len(d.textureGroups))
	}
}

func TestClose(t *testing.T) {
	d, _ := newTestDevice(t, Config{})
	d.Close()
	d.Close()
	if _, err := d.CreateVertexBuffer(imdraw.VertexLayout, 4, true); !errors.Is(err, ErrClosed) {
		t.Errorf("CreateVertexBuffer() after Close = %v, want ErrClosed", err)
	}
	if _, err := d.WhiteTexture(); !errors.Is(err, ErrClosed) {
		t.Errorf("WhiteTexture() after Close = %v, want ErrClosed", err)
	}
	if err := d.Frame(FrameTarget{}, func() error { return nil }); !errors.Is(err, ErrClosed) {
		t.Errorf("Frame() after Close = %v, want ErrClosed", err)
	}
}
