// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/imdraw/device"
)

// VertexBuffer is a GPU vertex buffer.
type VertexBuffer struct {
	dev    *Device
	id     uint32
	layout device.VertexLayout
	count  int
	buf    hal.Buffer
}

// ID implements device.VertexBuffer.
func (b *VertexBuffer) ID() uint32 { return b.id }

// Len implements device.VertexBuffer.
func (b *VertexBuffer) Len() int { return b.count }

// Layout implements device.VertexBuffer.
func (b *VertexBuffer) Layout() device.VertexLayout { return b.layout }

// SetData implements device.VertexBuffer. The upload is queued and lands
// before the next submission.
func (b *VertexBuffer) SetData(data []byte, start, length int) {
	stride := b.layout.Stride
	if start < 0 || length < 0 || start+length > b.count {
		panic(fmt.Sprintf("wgpu: vertex range [%d, %d) outside buffer of %d", start, start+length, b.count))
	}
	if len(data) != length*stride {
		panic(fmt.Sprintf("wgpu: %d bytes for %d vertices of stride %d", len(data), length, stride))
	}
	if length == 0 {
		return
	}
	b.dev.queue.WriteBuffer(b.buf, uint64(start*stride), data)
	b.dev.stats.VertexUploads++
	b.dev.stats.VerticesWritten += length
}

// Destroy releases the GPU buffer.
func (b *VertexBuffer) Destroy() {
	if b.buf != nil {
		b.dev.device.DestroyBuffer(b.buf)
		b.buf = nil
	}
}

// IndexBuffer is a GPU buffer of 16-bit indices.
//
// Queue writes must be 4-byte aligned, so the buffer keeps a CPU copy and
// widens each upload to whole index pairs.
type IndexBuffer struct {
	dev    *Device
	id     uint32
	count  int
	shadow []uint16
	buf    hal.Buffer
}

// ID implements device.IndexBuffer.
func (b *IndexBuffer) ID() uint32 { return b.id }

// Len implements device.IndexBuffer.
func (b *IndexBuffer) Len() int { return b.count }

// SetData implements device.IndexBuffer.
func (b *IndexBuffer) SetData(data []uint16, start, length int) {
	if start < 0 || length < 0 || start+length > b.count || length > len(data) {
		panic(fmt.Sprintf("wgpu: index range [%d, %d) outside buffer of %d", start, start+length, b.count))
	}
	if length == 0 {
		return
	}
	copy(b.shadow[start:start+length], data[:length])
	lo, hi := alignedRange(start, length)
	out := make([]byte, (hi-lo)*2)
	for i, v := range b.shadow[lo:hi] {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	b.dev.queue.WriteBuffer(b.buf, uint64(lo*2), out)
	b.dev.stats.IndexUploads++
	b.dev.stats.IndicesWritten += length
}

// Destroy releases the GPU buffer.
func (b *IndexBuffer) Destroy() {
	if b.buf != nil {
		b.dev.device.DestroyBuffer(b.buf)
		b.buf = nil
	}
}

// alignedRange widens the index range [start, start+length) to even
// bounds, which puts both byte offsets on a 4-byte boundary. Index buffers
// are allocated with an even length so hi never runs past the end.
func alignedRange(start, length int) (lo, hi int) {
	lo = start &^ 1
	hi = (start + length + 1) &^ 1
	return lo, hi
}

// CreateVertexBuffer implements device.BufferFactory.
func (d *Device) CreateVertexBuffer(layout device.VertexLayout, count int, dynamic bool) (device.VertexBuffer, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if !layout.Validate() {
		return nil, fmt.Errorf("wgpu: invalid vertex layout %q", layout.Name)
	}
	if count <= 0 {
		return nil, fmt.Errorf("wgpu: vertex buffer of %d vertices", count)
	}
	label := "imdraw_vertices"
	if dynamic {
		label = "imdraw_vertices_dynamic"
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(count * layout.Stride),
		Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create vertex buffer: %w", err)
	}
	return &VertexBuffer{dev: d, id: d.id(), layout: layout, count: count, buf: buf}, nil
}

// CreateIndex16Buffer implements device.BufferFactory.
func (d *Device) CreateIndex16Buffer(count int, dynamic bool) (device.IndexBuffer, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if count <= 0 {
		return nil, fmt.Errorf("wgpu: index buffer of %d indices", count)
	}
	padded := (count + 1) &^ 1
	label := "imdraw_indices"
	if dynamic {
		label = "imdraw_indices_dynamic"
	}
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(padded * 2),
		Usage: gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create index buffer: %w", err)
	}
	return &IndexBuffer{dev: d, id: d.id(), count: count, shadow: make([]uint16, padded), buf: buf}, nil
}

// Texture is an RGBA8 texture sampled by imdraw draws.
type Texture struct {
	dev    *Device
	id     uint32
	width  int
	height int
	tex    hal.Texture
	view   hal.TextureView
}

// ID implements device.Texture.
func (t *Texture) ID() uint32 { return t.id }

// Width implements device.Texture.
func (t *Texture) Width() int { return t.width }

// Height implements device.Texture.
func (t *Texture) Height() int { return t.height }

// View returns the texture view, for hosts that sample it elsewhere.
func (t *Texture) View() hal.TextureView { return t.view }

// NewTexture uploads img. Texels are stored with straight alpha, which is
// what the built-in program and BlendAlpha expect.
func (d *Device) NewTexture(img image.Image) (*Texture, error) {
	if d.closed {
		return nil, ErrClosed
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("wgpu: empty texture image %v", b)
	}
	src, ok := img.(*image.NRGBA)
	if !ok || src.Rect.Min != (image.Point{}) || src.Stride != b.Dx()*4 {
		src = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		xdraw.Copy(src, image.Point{}, img, b, xdraw.Src, nil)
	}

	w, h := uint32(b.Dx()), uint32(b.Dy())
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "imdraw_texture",
		Size:          hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture: %w", err)
	}
	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         "imdraw_texture_view",
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("wgpu: create texture view: %w", err)
	}
	d.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, MipLevel: 0},
		src.Pix,
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: w * 4, RowsPerImage: h},
		&hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
	)
	t := &Texture{dev: d, id: d.id(), width: b.Dx(), height: b.Dy(), tex: tex, view: view}
	d.log.Debug("wgpu: texture uploaded", "id", t.id, "width", t.width, "height", t.height)
	return t, nil
}

// NewTextureScaled uploads img resampled to width x height with bilinear
// filtering.
func (d *Device) NewTextureScaled(img image.Image, width, height int) (*Texture, error) {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return d.NewTexture(dst)
}

// WhiteTexture creates a 1x1 opaque white texture for untextured geometry.
func (d *Device) WhiteTexture() (*Texture, error) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
	return d.NewTexture(img)
}

// Destroy releases the texture and the bind groups that reference it.
func (t *Texture) Destroy() {
	if t.tex == nil {
		return
	}
	t.dev.dropTextureGroups(t.id)
	t.dev.device.DestroyTextureView(t.view)
	t.dev.device.DestroyTexture(t.tex)
	t.view, t.tex = nil, nil
}
