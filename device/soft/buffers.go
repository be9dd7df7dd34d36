// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"fmt"
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/imdraw/device"
)

// VertexBuffer is an in-memory vertex buffer.
type VertexBuffer struct {
	dev       *Device
	id        uint32
	layout    device.VertexLayout
	data      []byte
	count     int
	dynamic   bool
	destroyed bool
}

// ID implements device.VertexBuffer.
func (b *VertexBuffer) ID() uint32 { return b.id }

// Len implements device.VertexBuffer.
func (b *VertexBuffer) Len() int { return b.count }

// Layout implements device.VertexBuffer.
func (b *VertexBuffer) Layout() device.VertexLayout { return b.layout }

// Dynamic reports whether the buffer was created as dynamic.
func (b *VertexBuffer) Dynamic() bool { return b.dynamic }

// Data returns the buffer contents. The slice aliases the buffer.
func (b *VertexBuffer) Data() []byte { return b.data }

// SetData implements device.VertexBuffer.
func (b *VertexBuffer) SetData(data []byte, start, length int) {
	stride := b.layout.Stride
	if start < 0 || length < 0 || start+length > b.count {
		panic(fmt.Sprintf("soft: vertex range [%d, %d) outside buffer of %d", start, start+length, b.count))
	}
	if len(data) != length*stride {
		panic(fmt.Sprintf("soft: %d bytes for %d vertices of stride %d", len(data), length, stride))
	}
	copy(b.data[start*stride:], data)
	b.dev.stats.VertexUploads++
	b.dev.stats.VerticesWritten += length
}

// Destroy releases the buffer.
func (b *VertexBuffer) Destroy() {
	if !b.destroyed {
		b.destroyed = true
		b.dev.destroyed++
	}
}

// IndexBuffer is an in-memory 16-bit index buffer.
type IndexBuffer struct {
	dev       *Device
	id        uint32
	data      []uint16
	dynamic   bool
	destroyed bool
}

// ID implements device.IndexBuffer.
func (b *IndexBuffer) ID() uint32 { return b.id }

// Len implements device.IndexBuffer.
func (b *IndexBuffer) Len() int { return len(b.data) }

// Data returns the buffer contents. The slice aliases the buffer.
func (b *IndexBuffer) Data() []uint16 { return b.data }

// SetData implements device.IndexBuffer.
func (b *IndexBuffer) SetData(data []uint16, start, length int) {
	if start < 0 || length < 0 || start+length > len(b.data) || length > len(data) {
		panic(fmt.Sprintf("soft: index range [%d, %d) outside buffer of %d", start, start+length, len(b.data)))
	}
	copy(b.data[start:start+length], data[:length])
	b.dev.stats.IndexUploads++
	b.dev.stats.IndicesWritten += length
}

// Destroy releases the buffer.
func (b *IndexBuffer) Destroy() {
	if !b.destroyed {
		b.destroyed = true
		b.dev.destroyed++
	}
}

func (d *Device) allocate() (uint32, error) {
	if d.limit > 0 && d.buffers >= d.limit {
		return 0, fmt.Errorf("%w (%d)", ErrBufferLimit, d.limit)
	}
	d.buffers++
	return d.id(), nil
}

// CreateVertexBuffer implements device.BufferFactory.
func (d *Device) CreateVertexBuffer(layout device.VertexLayout, count int, dynamic bool) (device.VertexBuffer, error) {
	if !layout.Validate() {
		return nil, fmt.Errorf("soft: invalid vertex layout %q", layout.Name)
	}
	if count <= 0 {
		return nil, fmt.Errorf("soft: vertex buffer of %d vertices", count)
	}
	id, err := d.allocate()
	if err != nil {
		return nil, err
	}
	return &VertexBuffer{
		dev:     d,
		id:      id,
		layout:  layout,
		data:    make([]byte, count*layout.Stride),
		count:   count,
		dynamic: dynamic,
	}, nil
}

// CreateIndex16Buffer implements device.BufferFactory.
func (d *Device) CreateIndex16Buffer(count int, dynamic bool) (device.IndexBuffer, error) {
	if count <= 0 {
		return nil, fmt.Errorf("soft: index buffer of %d indices", count)
	}
	id, err := d.allocate()
	if err != nil {
		return nil, err
	}
	return &IndexBuffer{dev: d, id: id, data: make([]uint16, count), dynamic: dynamic}, nil
}

// Texture is an in-memory texture.
type Texture struct {
	id  uint32
	img *image.RGBA
}

// ID implements device.Texture.
func (t *Texture) ID() uint32 { return t.id }

// Width implements device.Texture.
func (t *Texture) Width() int { return t.img.Bounds().Dx() }

// Height implements device.Texture.
func (t *Texture) Height() int { return t.img.Bounds().Dy() }

// Image returns the texels.
func (t *Texture) Image() *image.RGBA { return t.img }

// NewTexture copies img into a texture.
func (d *Device) NewTexture(img image.Image) *Texture {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(dst, image.Point{}, img, b, xdraw.Src, nil)
	return &Texture{id: d.id(), img: dst}
}

// NewTextureScaled copies img into a texture of the given size, resampling
// with bilinear filtering.
func (d *Device) NewTextureScaled(img image.Image, width, height int) *Texture {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return &Texture{id: d.id(), img: dst}
}

// NewSolidTexture creates a texture filled with c.
func (d *Device) NewSolidTexture(width, height int, c color.Color) *Texture {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{}, xdraw.Src)
	return &Texture{id: d.id(), img: dst}
}

// WhiteTexture creates a 1x1 opaque white texture for untextured geometry.
func (d *Device) WhiteTexture() *Texture {
	return d.NewSolidTexture(1, 1, color.White)
}
