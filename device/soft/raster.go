// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package soft

import (
	"encoding/binary"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/vector"

	"github.com/gogpu/imdraw/device"
)

// Vertex attribute locations of the built-in sprite program.
const (
	locPosition = 0
	locColor    = 1
	locUV       = 2
)

// vertex is a decoded vertex in pixel space.
type vertex struct {
	x, y  float32
	color [4]float32 // straight RGBA in [0, 1]
	u, v  float32
}

// affine maps pixel coordinates to texture coordinates:
// u = au*x + bu*y + cu, v = av*x + bv*y + cv.
type affine struct {
	au, bu, cu float32
	av, bv, cv float32
}

func (a affine) close(b affine) bool {
	const eps = 1e-4
	d := func(x, y float32) bool { return math.Abs(float64(x-y)) <= eps*(1+math.Abs(float64(x))) }
	return d(a.au, b.au) && d(a.bu, b.bu) && d(a.cu, b.cu) &&
		d(a.av, b.av) && d(a.bv, b.bv) && d(a.cv, b.cv)
}

// runKey identifies triangles that can share one coverage mask.
type runKey struct {
	tint     [4]float32
	textured bool
	uv       affine
}

func (k runKey) matches(o runKey) bool {
	if k.tint != o.tint || k.textured != o.textured {
		return false
	}
	return !k.textured || k.uv.close(o.uv)
}

// rasterizer accumulates runs of triangles with equal color and texture
// mapping. A run is filled through a single coverage mask so shared edges
// inside it leave no seams.
type rasterizer struct {
	z      vector.Rasterizer
	active bool
	key    runKey
	tris   [][3]vertex
	layout device.VertexLayout
	offs   [3]int // byte offsets of position, color, uv; -1 when absent
}

func (d *Device) decodeOffsets() {
	r := &d.raster
	l := d.vb.layout
	if r.layout.Name == l.Name && r.layout.Stride == l.Stride && len(r.layout.Attributes) == len(l.Attributes) {
		return
	}
	r.layout = l
	r.offs = [3]int{-1, -1, -1}
	for _, a := range l.Attributes {
		switch {
		case a.Location == locPosition && a.Format == gputypes.VertexFormatFloat32x2:
			r.offs[0] = a.Offset
		case a.Location == locColor && a.Format == gputypes.VertexFormatUnorm8x4:
			r.offs[1] = a.Offset
		case a.Location == locUV && a.Format == gputypes.VertexFormatFloat32x2:
			r.offs[2] = a.Offset
		}
	}
}

func f32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// vertex decodes vertex i of the bound buffer and projects it to pixels.
func (d *Device) vertex(i uint16) vertex {
	r := &d.raster
	stride := d.vb.layout.Stride
	b := d.vb.data[int(i)*stride : (int(i)+1)*stride]
	v := vertex{color: [4]float32{1, 1, 1, 1}}
	var x, y float32
	if o := r.offs[0]; o >= 0 {
		x, y = f32(b[o:]), f32(b[o+4:])
	}
	if o := r.offs[1]; o >= 0 {
		for c := 0; c < 4; c++ {
			v.color[c] = float32(b[o+c]) / 255
		}
	}
	if o := r.offs[2]; o >= 0 {
		v.u, v.v = f32(b[o:]), f32(b[o+4:])
	}

	bounds := d.target.Bounds()
	nx, ny := d.projection.Project(x, y)
	v.x = (nx + 1) * 0.5 * float32(bounds.Dx())
	v.y = (1 - ny) * 0.5 * float32(bounds.Dy())
	return v
}

func (d *Device) rasterize(startIndex, primitiveCount int) {
	if d.vb.count == 0 {
		return
	}
	d.decodeOffsets()
	idx := d.ib.data[startIndex : startIndex+primitiveCount*3]
	for i := 0; i < len(idx); i += 3 {
		if int(idx[i]) >= d.vb.count || int(idx[i+1]) >= d.vb.count || int(idx[i+2]) >= d.vb.count {
			panic("soft: index outside bound vertex buffer")
		}
		t := [3]vertex{d.vertex(idx[i]), d.vertex(idx[i+1]), d.vertex(idx[i+2])}
		area := (t[1].x-t[0].x)*(t[2].y-t[0].y) - (t[1].y-t[0].y)*(t[2].x-t[0].x)
		if area == 0 || d.culled(area) {
			continue
		}
		if area < 0 {
			t[1], t[2] = t[2], t[1]
		}
		key := d.keyFor(t)
		if d.raster.active && !d.raster.key.matches(key) {
			d.flushRun()
		}
		d.raster.active = true
		d.raster.key = key
		d.raster.tris = append(d.raster.tris, t)
	}
	d.flushRun()
}

// culled applies the rasterizer state. Screen space has Y down, so a
// positive area is clockwise on screen.
func (d *Device) culled(area float32) bool {
	rs := d.rasterizer
	if rs.CullMode == gputypes.CullModeNone {
		return false
	}
	ccw := area < 0
	front := ccw == (rs.FrontFace == gputypes.FrontFaceCCW)
	switch rs.CullMode {
	case gputypes.CullModeFront:
		return front
	case gputypes.CullModeBack:
		return !front
	}
	return false
}

func (d *Device) keyFor(t [3]vertex) runKey {
	var k runKey
	for c := 0; c < 4; c++ {
		k.tint[c] = (t[0].color[c] + t[1].color[c] + t[2].color[c]) / 3
	}
	tex, ok := d.texture.(*Texture)
	if !ok || tex == nil {
		return k
	}
	if tex.Width() == 1 && tex.Height() == 1 {
		// Solid texture: fold the texel into the tint.
		px := tex.img.RGBAAt(0, 0)
		k.tint = modulate(k.tint, px)
		return k
	}
	k.textured = true
	k.uv = affineFor(t)
	return k
}

// modulate multiplies a straight tint by a premultiplied texel and returns
// the straight result.
func modulate(tint [4]float32, px color.RGBA) [4]float32 {
	if px.A == 0 {
		return [4]float32{0, 0, 0, 0}
	}
	a := float32(px.A) / 255
	return [4]float32{
		tint[0] * float32(px.R) / 255 / a,
		tint[1] * float32(px.G) / 255 / a,
		tint[2] * float32(px.B) / 255 / a,
		tint[3] * a,
	}
}

func affineFor(t [3]vertex) affine {
	e1x, e1y := t[1].x-t[0].x, t[1].y-t[0].y
	e2x, e2y := t[2].x-t[0].x, t[2].y-t[0].y
	det := e1x*e2y - e1y*e2x
	du1, du2 := t[1].u-t[0].u, t[2].u-t[0].u
	dv1, dv2 := t[1].v-t[0].v, t[2].v-t[0].v

	var a affine
	a.au = (du1*e2y - du2*e1y) / det
	a.bu = (du2*e1x - du1*e2x) / det
	a.cu = t[0].u - a.au*t[0].x - a.bu*t[0].y
	a.av = (dv1*e2y - dv2*e1y) / det
	a.bv = (dv2*e1x - dv1*e2x) / det
	a.cv = t[0].v - a.av*t[0].x - a.bv*t[0].y
	return a
}

// flushRun fills the accumulated triangles through one coverage mask.
func (d *Device) flushRun() {
	r := &d.raster
	if !r.active {
		return
	}
	defer func() {
		r.active = false
		r.tris = r.tris[:0]
	}()

	minX, minY := float32(math.Inf(1)), float32(math.Inf(1))
	maxX, maxY := float32(math.Inf(-1)), float32(math.Inf(-1))
	for _, t := range r.tris {
		for _, v := range t {
			minX, maxX = min(minX, v.x), max(maxX, v.x)
			minY, maxY = min(minY, v.y), max(maxY, v.y)
		}
	}
	box := image.Rect(
		int(math.Floor(float64(minX))), int(math.Floor(float64(minY))),
		int(math.Ceil(float64(maxX))), int(math.Ceil(float64(maxY))),
	).Intersect(d.target.Bounds())
	if box.Empty() {
		return
	}

	ox, oy := float32(box.Min.X), float32(box.Min.Y)
	r.z.Reset(box.Dx(), box.Dy())
	for _, t := range r.tris {
		r.z.MoveTo(t[0].x-ox, t[0].y-oy)
		r.z.LineTo(t[1].x-ox, t[1].y-oy)
		r.z.LineTo(t[2].x-ox, t[2].y-oy)
		r.z.ClosePath()
	}
	r.z.DrawOp = draw.Src
	if d.blend.Enabled {
		r.z.DrawOp = draw.Over
	}

	var src image.Image
	if r.key.textured {
		src = &affineSource{
			tex:    d.texture.(*Texture).img,
			uv:     r.key.uv,
			tint:   r.key.tint,
			linear: d.sampler.Filter == gputypes.FilterModeLinear,
			bounds: d.target.Bounds(),
		}
	} else {
		src = image.NewUniform(premultiplied(r.key.tint))
	}
	r.z.Draw(d.target, box, src, box.Min)
}

func premultiplied(c [4]float32) color.RGBA {
	a := clamp01(c[3])
	return color.RGBA{
		R: uint8(clamp01(c[0])*a*255 + 0.5),
		G: uint8(clamp01(c[1])*a*255 + 0.5),
		B: uint8(clamp01(c[2])*a*255 + 0.5),
		A: uint8(a*255 + 0.5),
	}
}

func clamp01(v float32) float32 {
	return max(0, min(v, 1))
}

// affineSource samples a texture through a pixel-to-UV map.
type affineSource struct {
	tex    *image.RGBA
	uv     affine
	tint   [4]float32
	linear bool
	bounds image.Rectangle
}

func (s *affineSource) ColorModel() color.Model { return color.RGBAModel }

func (s *affineSource) Bounds() image.Rectangle { return s.bounds }

func (s *affineSource) At(x, y int) color.Color {
	px, py := float32(x)+0.5, float32(y)+0.5
	u := s.uv.au*px + s.uv.bu*py + s.uv.cu
	v := s.uv.av*px + s.uv.bv*py + s.uv.cv
	w, h := s.tex.Bounds().Dx(), s.tex.Bounds().Dy()

	var texel [4]float32 // premultiplied
	if s.linear {
		texel = s.bilinear(u*float32(w)-0.5, v*float32(h)-0.5, w, h)
	} else {
		c := s.tex.RGBAAt(clampInt(int(math.Floor(float64(u*float32(w)))), w), clampInt(int(math.Floor(float64(v*float32(h)))), h))
		texel = [4]float32{float32(c.R), float32(c.G), float32(c.B), float32(c.A)}
	}
	a := s.tint[3]
	return color.RGBA{
		R: uint8(texel[0]*s.tint[0]*a + 0.5),
		G: uint8(texel[1]*s.tint[1]*a + 0.5),
		B: uint8(texel[2]*s.tint[2]*a + 0.5),
		A: uint8(texel[3]*a + 0.5),
	}
}

func (s *affineSource) bilinear(fx, fy float32, w, h int) [4]float32 {
	x0, y0 := int(math.Floor(float64(fx))), int(math.Floor(float64(fy)))
	tx, ty := fx-float32(x0), fy-float32(y0)
	var out [4]float32
	for _, p := range [4]struct {
		dx, dy int
		wt     float32
	}{
		{0, 0, (1 - tx) * (1 - ty)},
		{1, 0, tx * (1 - ty)},
		{0, 1, (1 - tx) * ty},
		{1, 1, tx * ty},
	} {
		c := s.tex.RGBAAt(clampInt(x0+p.dx, w), clampInt(y0+p.dy, h))
		out[0] += float32(c.R) * p.wt
		out[1] += float32(c.G) * p.wt
		out[2] += float32(c.B) * p.wt
		out[3] += float32(c.A) * p.wt
	}
	return out
}

func clampInt(v, n int) int {
	return max(0, min(v, n-1))
}
