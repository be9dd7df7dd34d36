package imdraw

// aaSize is the width of the anti-aliasing fringe in pixels.
const aaSize = 1.0

// miterLimit caps the scale applied to averaged normals at sharp corners.
const miterLimit = 100

// scratch returns a zeroed slice of n points, reusing *buf.
func scratch(buf *[]Vec2, n int) []Vec2 {
	if cap(*buf) < n {
		*buf = make([]Vec2, n)
	}
	s := (*buf)[:n]
	clear(s)
	return s
}

// averageNormal returns the normal at a joint between segments with
// normals n0 and n1, scaled so the offset edges stay parallel.
func averageNormal(n0, n1 Vec2) Vec2 {
	dm := n0.Add(n1).Mul(0.5)
	if d2 := dm.LengthSq(); d2 > 0.000001 {
		scale := 1 / d2
		if scale > miterLimit {
			scale = miterLimit
		}
		dm = dm.Mul(scale)
	}
	return dm
}

// segmentNormal returns the left-hand unit normal of the segment a→b.
func segmentNormal(a, b Vec2) Vec2 {
	d := b.Sub(a).normalizeOr()
	return Vec2{X: d.Y, Y: -d.X}
}

// AddPolyline strokes the polyline through points.
//
// Without anti-aliasing every segment is an independent quad of 4 vertices
// and 6 indices. With anti-aliasing, lines of thickness up to 1 use 3
// vertices per point (centre and two transparent rims) and 12 indices per
// segment; thicker lines use 4 vertices per point and 18 indices per
// segment.
func (g *GeometryContext) AddPolyline(points []Vec2, col Color, closed bool, thickness float32, antiAliased bool) {
	n := len(points)
	if n < 2 || col.IsTransparent() {
		return
	}
	count := n - 1
	if closed {
		count = n
	}
	if !antiAliased {
		g.polylineSolid(points, count, col, thickness)
		return
	}

	thick := thickness > 1
	colTrans := col.Transparentized()
	uv := g.whiteUV

	idxCount := count * 12
	vtxCount := n * 3
	if thick {
		idxCount = count * 18
		vtxCount = n * 4
	}
	seg := g.TakePrimitives(vtxCount, idxCount, idxCount/3)
	base := seg.Base

	normals := scratch(&g.normals, n)
	for i1 := 0; i1 < count; i1++ {
		i2 := i1 + 1
		if i2 == n {
			i2 = 0
		}
		normals[i1] = segmentNormal(points[i1], points[i2])
	}
	if !closed {
		normals[n-1] = normals[n-2]
	}

	ix := seg.Indices
	vx := seg.Vertices
	if !thick {
		edge := scratch(&g.fringe, n*2)
		if !closed {
			edge[0] = points[0].Add(normals[0].Mul(aaSize))
			edge[1] = points[0].Sub(normals[0].Mul(aaSize))
			edge[(n-1)*2+0] = points[n-1].Add(normals[n-1].Mul(aaSize))
			edge[(n-1)*2+1] = points[n-1].Sub(normals[n-1].Mul(aaSize))
		}

		idx1 := base
		k := 0
		for i1 := 0; i1 < count; i1++ {
			i2 := i1 + 1
			if i2 == n {
				i2 = 0
			}
			idx2 := idx1 + 3
			if i1+1 == n {
				idx2 = base
			}

			dm := averageNormal(normals[i1], normals[i2]).Mul(aaSize)
			edge[i2*2+0] = points[i2].Add(dm)
			edge[i2*2+1] = points[i2].Sub(dm)

			// Two quads: centre to rim on each side.
			ix[k+0], ix[k+1], ix[k+2] = idx2+0, idx1+0, idx1+2
			ix[k+3], ix[k+4], ix[k+5] = idx1+2, idx2+2, idx2+0
			ix[k+6], ix[k+7], ix[k+8] = idx2+1, idx1+1, idx1+0
			ix[k+9], ix[k+10], ix[k+11] = idx1+0, idx2+0, idx2+1
			k += 12
			idx1 = idx2
		}

		for i := 0; i < n; i++ {
			vx[i*3+0] = Vertex{Pos: points[i], Color: col, UV: uv}
			vx[i*3+1] = Vertex{Pos: edge[i*2+0], Color: colTrans, UV: uv}
			vx[i*3+2] = Vertex{Pos: edge[i*2+1], Color: colTrans, UV: uv}
		}
		return
	}

	half := (thickness - aaSize) * 0.5
	edge := scratch(&g.fringe, n*4)
	if !closed {
		for _, i := range [2]int{0, n - 1} {
			nm := normals[i]
			edge[i*4+0] = points[i].Add(nm.Mul(half + aaSize))
			edge[i*4+1] = points[i].Add(nm.Mul(half))
			edge[i*4+2] = points[i].Sub(nm.Mul(half))
			edge[i*4+3] = points[i].Sub(nm.Mul(half + aaSize))
		}
	}

	idx1 := base
	k := 0
	for i1 := 0; i1 < count; i1++ {
		i2 := i1 + 1
		if i2 == n {
			i2 = 0
		}
		idx2 := idx1 + 4
		if i1+1 == n {
			idx2 = base
		}

		dm := averageNormal(normals[i1], normals[i2])
		out := dm.Mul(half + aaSize)
		in := dm.Mul(half)
		edge[i2*4+0] = points[i2].Add(out)
		edge[i2*4+1] = points[i2].Add(in)
		edge[i2*4+2] = points[i2].Sub(in)
		edge[i2*4+3] = points[i2].Sub(out)

		// Solid core, then the two fringes.
		ix[k+0], ix[k+1], ix[k+2] = idx2+1, idx1+1, idx1+2
		ix[k+3], ix[k+4], ix[k+5] = idx1+2, idx2+2, idx2+1
		ix[k+6], ix[k+7], ix[k+8] = idx2+1, idx1+1, idx1+0
		ix[k+9], ix[k+10], ix[k+11] = idx1+0, idx2+0, idx2+1
		ix[k+12], ix[k+13], ix[k+14] = idx2+2, idx1+2, idx1+3
		ix[k+15], ix[k+16], ix[k+17] = idx1+3, idx2+3, idx2+2
		k += 18
		idx1 = idx2
	}

	for i := 0; i < n; i++ {
		vx[i*4+0] = Vertex{Pos: edge[i*4+0], Color: colTrans, UV: uv}
		vx[i*4+1] = Vertex{Pos: edge[i*4+1], Color: col, UV: uv}
		vx[i*4+2] = Vertex{Pos: edge[i*4+2], Color: col, UV: uv}
		vx[i*4+3] = Vertex{Pos: edge[i*4+3], Color: colTrans, UV: uv}
	}
}

// polylineSolid emits one unshared quad per segment.
func (g *GeometryContext) polylineSolid(points []Vec2, count int, col Color, thickness float32) {
	n := len(points)
	uv := g.whiteUV
	seg := g.TakePrimitives(count*4, count*6, count*2)
	vx, ix := seg.Vertices, seg.Indices
	for i1 := 0; i1 < count; i1++ {
		i2 := i1 + 1
		if i2 == n {
			i2 = 0
		}
		p1, p2 := points[i1], points[i2]
		d := p2.Sub(p1).normalizeOr().Mul(thickness * 0.5)
		off := Vec2{X: d.Y, Y: -d.X}

		v := vx[i1*4 : i1*4+4]
		v[0] = Vertex{Pos: p1.Add(off), Color: col, UV: uv}
		v[1] = Vertex{Pos: p2.Add(off), Color: col, UV: uv}
		v[2] = Vertex{Pos: p2.Sub(off), Color: col, UV: uv}
		v[3] = Vertex{Pos: p1.Sub(off), Color: col, UV: uv}

		b := seg.Base + uint16(i1*4)
		i := ix[i1*6 : i1*6+6]
		i[0], i[1], i[2] = b, b+1, b+2
		i[3], i[4], i[5] = b, b+2, b+3
	}
}

// AddConvexPolyFilled fills the convex polygon through points.
//
// Without anti-aliasing it emits a fan of N-2 triangles over N vertices.
// With anti-aliasing every point gets an inner and an outer vertex; the
// outer ring is transparent, forming a one pixel fringe. That is 2N
// vertices and (N-2)*3 + N*6 indices.
func (g *GeometryContext) AddConvexPolyFilled(points []Vec2, col Color, antiAliased bool) {
	n := len(points)
	if n < 3 || col.IsTransparent() {
		return
	}
	uv := g.whiteUV

	if !antiAliased {
		seg := g.TakePrimitives(n, (n-2)*3, n-2)
		for i, p := range points {
			seg.Vertices[i] = Vertex{Pos: p, Color: col, UV: uv}
		}
		ix := seg.Indices
		for i := 2; i < n; i++ {
			k := (i - 2) * 3
			ix[k], ix[k+1], ix[k+2] = seg.Base, seg.Base+uint16(i-1), seg.Base+uint16(i)
		}
		return
	}

	colTrans := col.Transparentized()
	idxCount := (n-2)*3 + n*6
	seg := g.TakePrimitives(n*2, idxCount, idxCount/3)
	inner := seg.Base
	outer := seg.Base + 1
	ix, vx := seg.Indices, seg.Vertices

	k := 0
	for i := 2; i < n; i++ {
		ix[k], ix[k+1], ix[k+2] = inner, inner+uint16((i-1)<<1), inner+uint16(i<<1)
		k += 3
	}

	normals := scratch(&g.normals, n)
	for i0, i1 := n-1, 0; i1 < n; i0, i1 = i1, i1+1 {
		normals[i0] = segmentNormal(points[i0], points[i1])
	}

	for i0, i1 := n-1, 0; i1 < n; i0, i1 = i1, i1+1 {
		dm := averageNormal(normals[i0], normals[i1]).Mul(aaSize * 0.5)
		vx[i1*2+0] = Vertex{Pos: points[i1].Sub(dm), Color: col, UV: uv}
		vx[i1*2+1] = Vertex{Pos: points[i1].Add(dm), Color: colTrans, UV: uv}

		a, b := uint16(i1<<1), uint16(i0<<1)
		ix[k+0], ix[k+1], ix[k+2] = inner+a, inner+b, outer+b
		ix[k+3], ix[k+4], ix[k+5] = outer+b, outer+a, inner+a
		k += 6
	}
}
