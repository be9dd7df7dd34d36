package imdraw

import "math"

var halfPixel = Vec2{X: 0.5, Y: 0.5}

// AddLine strokes the segment a-b. Endpoints are offset by half a pixel so
// integer coordinates land on pixel centres.
func (g *GeometryContext) AddLine(a, b Vec2, col Color, thickness float32) {
	if col.IsTransparent() {
		return
	}
	g.PathLineTo(a.Add(halfPixel))
	g.PathLineTo(b.Add(halfPixel))
	g.PathStroke(col, false, thickness)
}

// AddRect strokes the outline of the rectangle a-b.
func (g *GeometryContext) AddRect(a, b Vec2, col Color, rounding float32, corners Corner, thickness float32) {
	if col.IsTransparent() {
		return
	}
	g.PathRect(a.Add(halfPixel), b.Sub(halfPixel), rounding, corners)
	g.PathStroke(col, true, thickness)
}

// AddRectFilled fills the rectangle a-b. Without rounding it is a single
// quad: vertices a, (b.x, a.y), b, (a.x, b.y) and indices 0,1,2,0,2,3.
func (g *GeometryContext) AddRectFilled(a, b Vec2, col Color, rounding float32, corners Corner) {
	if col.IsTransparent() {
		return
	}
	if rounding > 0 && corners != CornerNone {
		g.PathRect(a, b, rounding, corners)
		g.PathFill(col)
		return
	}
	g.primRect(a, b, col, col, col, col)
}

// AddRectFilledMultiColor fills the rectangle a-b with a color per corner,
// interpolated across the quad.
func (g *GeometryContext) AddRectFilledMultiColor(a, b Vec2, upperLeft, upperRight, bottomRight, bottomLeft Color) {
	if (upperLeft|upperRight|bottomRight|bottomLeft)&AlphaMask == 0 {
		return
	}
	g.primRect(a, b, upperLeft, upperRight, bottomRight, bottomLeft)
}

func (g *GeometryContext) primRect(a, b Vec2, ul, ur, br, bl Color) {
	seg := g.TakePrimitives(4, 6, 2)
	uv := g.whiteUV
	v := seg.Vertices
	v[0] = Vertex{Pos: a, Color: ul, UV: uv}
	v[1] = Vertex{Pos: Vec2{X: b.X, Y: a.Y}, Color: ur, UV: uv}
	v[2] = Vertex{Pos: b, Color: br, UV: uv}
	v[3] = Vertex{Pos: Vec2{X: a.X, Y: b.Y}, Color: bl, UV: uv}
	i, o := seg.Indices, seg.Base
	i[0], i[1], i[2] = o, o+1, o+2
	i[3], i[4], i[5] = o, o+2, o+3
}

// AddQuad strokes the quadrilateral a-b-c-d.
func (g *GeometryContext) AddQuad(a, b, c, d Vec2, col Color, thickness float32) {
	if col.IsTransparent() {
		return
	}
	g.path = append(g.path, a, b, c, d)
	g.PathStroke(col, true, thickness)
}

// AddQuadFilled fills the convex quadrilateral a-b-c-d.
func (g *GeometryContext) AddQuadFilled(a, b, c, d Vec2, col Color) {
	if col.IsTransparent() {
		return
	}
	g.path = append(g.path, a, b, c, d)
	g.PathFill(col)
}

// AddTriangle strokes the triangle a-b-c.
func (g *GeometryContext) AddTriangle(a, b, c Vec2, col Color, thickness float32) {
	if col.IsTransparent() {
		return
	}
	g.path = append(g.path, a, b, c)
	g.PathStroke(col, true, thickness)
}

// AddTriangleFilled fills the triangle a-b-c.
func (g *GeometryContext) AddTriangleFilled(a, b, c Vec2, col Color) {
	if col.IsTransparent() {
		return
	}
	g.path = append(g.path, a, b, c)
	g.PathFill(col)
}

// circleArcEnd is the last angle of a closed circle sampled with n points.
func circleArcEnd(n int) float32 {
	return float32(2 * math.Pi * float64(n-1) / float64(n))
}

// AddCircle strokes a circle with the given number of segments, or an
// automatic count when segments <= 0. The outline sits half a pixel inside
// radius.
func (g *GeometryContext) AddCircle(centre Vec2, radius float32, col Color, segments int, thickness float32) {
	if col.IsTransparent() || radius <= 0 {
		return
	}
	if segments <= 0 {
		segments = CircleSegments(radius)
	}
	segments = max(segments, 3)
	g.PathArcTo(centre, radius-0.5, 0, circleArcEnd(segments), segments-1)
	g.PathStroke(col, true, thickness)
}

// AddCircleFilled fills a circle, see AddCircle.
func (g *GeometryContext) AddCircleFilled(centre Vec2, radius float32, col Color, segments int) {
	if col.IsTransparent() || radius <= 0 {
		return
	}
	if segments <= 0 {
		segments = CircleSegments(radius)
	}
	segments = max(segments, 3)
	g.PathArcTo(centre, radius, 0, circleArcEnd(segments), segments-1)
	g.PathFill(col)
}

// AddBezierCurve strokes the cubic Bézier p1-c1-c2-p2. segments == 0
// selects adaptive subdivision.
func (g *GeometryContext) AddBezierCurve(p1, c1, c2, p2 Vec2, col Color, thickness float32, segments int) {
	if col.IsTransparent() {
		return
	}
	g.PathLineTo(p1)
	g.PathBezierCurveTo(c1, c2, p2, segments)
	g.PathStroke(col, false, thickness)
}
