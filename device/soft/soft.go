// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package soft implements the imdraw device boundary on the CPU.
//
// A Device keeps uploaded buffers in memory and records every draw, which
// makes it the test double for command replay. Given a target image it also
// rasterizes the draws with golang.org/x/image/vector, which is enough for
// previews and golden images:
//
//	dev := soft.New(soft.WithSize(640, 480))
//	dc, _ := imdraw.NewDrawContext(dev, imdraw.WithViewport(640, 480))
//	// ... record ...
//	dc.Render(dev)
//	png.Encode(w, dev.Image())
//
// Triangles are flat shaded with the average of their vertex colors.
// Textured triangles sample the bound texture through the affine map
// defined by their UVs.
package soft

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/gogpu/imdraw/device"
)

// ErrBufferLimit is returned by the buffer factory once the limit set with
// WithBufferLimit is reached.
var ErrBufferLimit = errors.New("soft: buffer limit reached")

// Draw is one recorded DrawIndexedTriangles call with the bindings it used.
type Draw struct {
	Texture      uint32 // 0 when no texture is bound
	VertexBuffer uint32
	IndexBuffer  uint32
	StartIndex   int
	Primitives   int
	Effect       string
	Projection   device.Matrix4
}

// Option configures a Device.
type Option func(*Device)

// WithSize gives the device a transparent RGBA target of the given size.
func WithSize(width, height int) Option {
	return func(d *Device) {
		d.target = image.NewRGBA(image.Rect(0, 0, width, height))
	}
}

// WithTarget rasterizes into img.
func WithTarget(img *image.RGBA) Option {
	return func(d *Device) {
		d.target = img
	}
}

// WithLogger sets the logger. By default the device is silent.
func WithLogger(l *slog.Logger) Option {
	return func(d *Device) {
		if l != nil {
			d.log = l
		}
	}
}

// WithBufferLimit makes buffer creation fail with ErrBufferLimit after n
// buffers. Tests use it to exercise resource failures.
func WithBufferLimit(n int) Option {
	return func(d *Device) {
		d.limit = n
	}
}

// Device is a CPU device and buffer factory.
type Device struct {
	log    *slog.Logger
	target *image.RGBA
	limit  int

	nextID    uint32
	buffers   int
	destroyed int

	blend      device.BlendState
	depth      device.DepthState
	rasterizer device.RasterizerState
	sampler    device.SamplerState
	effect     device.Effect
	projection device.Matrix4
	texture    device.Texture
	vb         *VertexBuffer
	ib         *IndexBuffer

	stats  device.Stats
	draws  []Draw
	raster rasterizer
}

var (
	_ device.Device        = (*Device)(nil)
	_ device.BufferFactory = (*Device)(nil)
)

// New creates a device. Without WithSize or WithTarget nothing is
// rasterized.
func New(opts ...Option) *Device {
	d := &Device{
		log:        slog.New(slog.DiscardHandler),
		projection: device.Identity4(),
		blend:      device.BlendAlpha,
		sampler:    device.SamplerLinearClamp,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Device) id() uint32 {
	d.nextID++
	return d.nextID
}

// Image returns the render target, or nil.
func (d *Device) Image() *image.RGBA {
	return d.target
}

// Clear fills the target with transparent black.
func (d *Device) Clear() {
	if d.target != nil {
		clear(d.target.Pix)
	}
}

// Stats returns the work counted since creation or the last ResetStats.
func (d *Device) Stats() device.Stats {
	return d.stats
}

// Draws returns the recorded draw calls.
func (d *Device) Draws() []Draw {
	return d.draws
}

// ResetStats clears the counters and the draw log.
func (d *Device) ResetStats() {
	d.stats = device.Stats{}
	d.draws = d.draws[:0]
}

// Buffers returns how many buffers were created and how many of them were
// destroyed.
func (d *Device) Buffers() (created, destroyed int) {
	return d.buffers, d.destroyed
}

// SetBlendState implements device.Device.
func (d *Device) SetBlendState(s device.BlendState) { d.blend = s }

// SetDepthState implements device.Device. Depth is ignored when
// rasterizing.
func (d *Device) SetDepthState(s device.DepthState) { d.depth = s }

// SetRasterizerState implements device.Device.
func (d *Device) SetRasterizerState(s device.RasterizerState) { d.rasterizer = s }

// SetSamplerState implements device.Device.
func (d *Device) SetSamplerState(s device.SamplerState) { d.sampler = s }

// SetEffect implements device.Device. Effects other than the built-in one
// are recorded but rasterized like it.
func (d *Device) SetEffect(e device.Effect) { d.effect = e }

// SetProjection implements device.Device.
func (d *Device) SetProjection(m device.Matrix4) { d.projection = m }

// BindTexture implements device.Device.
func (d *Device) BindTexture(t device.Texture) { d.texture = t }

// BindVertexBuffer implements device.Device. b must come from this device.
func (d *Device) BindVertexBuffer(b device.VertexBuffer) {
	vb, ok := b.(*VertexBuffer)
	if !ok {
		panic(fmt.Sprintf("soft: foreign vertex buffer %T", b))
	}
	d.vb = vb
}

// BindIndexBuffer implements device.Device. b must come from this device.
func (d *Device) BindIndexBuffer(b device.IndexBuffer) {
	ib, ok := b.(*IndexBuffer)
	if !ok {
		panic(fmt.Sprintf("soft: foreign index buffer %T", b))
	}
	d.ib = ib
}

// DrawIndexedTriangles implements device.Device.
func (d *Device) DrawIndexedTriangles(startIndex, primitiveCount int) {
	if d.vb == nil || d.ib == nil {
		panic("soft: draw without bound vertex and index buffers")
	}
	if startIndex < 0 || startIndex+primitiveCount*3 > len(d.ib.data) {
		panic(fmt.Sprintf("soft: draw range [%d, %d) outside index buffer of %d",
			startIndex, startIndex+primitiveCount*3, len(d.ib.data)))
	}

	dr := Draw{
		VertexBuffer: d.vb.id,
		IndexBuffer:  d.ib.id,
		StartIndex:   startIndex,
		Primitives:   primitiveCount,
		Projection:   d.projection,
	}
	if d.texture != nil {
		dr.Texture = d.texture.ID()
	}
	if d.effect != nil {
		dr.Effect = d.effect.Name()
	}
	d.draws = append(d.draws, dr)
	d.stats.DrawCalls++
	d.stats.Triangles += primitiveCount
	d.log.Debug("soft: draw", "start", startIndex, "tris", primitiveCount, "vb", dr.VertexBuffer)

	if d.target != nil {
		d.rasterize(startIndex, primitiveCount)
	}
}
