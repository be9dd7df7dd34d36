package imdraw

import "math"

// circleSegments is the resolution of the precomputed unit circle used by
// PathArcToFast.
const circleSegments = 12

// bezierMaxDepth bounds the recursive subdivision of PathBezierCurveTo.
const bezierMaxDepth = 10

// circleMaxError is the maximum distance in pixels between a circle and
// its polygon when the segment count is chosen automatically.
const circleMaxError = 0.3

func unitCircle() [circleSegments]Vec2 {
	var c [circleSegments]Vec2
	for i := range c {
		a := float64(i) * 2 * math.Pi / circleSegments
		c[i] = Vec2{X: float32(math.Cos(a)), Y: float32(math.Sin(a))}
	}
	return c
}

// CircleSegments returns the automatic segment count for a full circle of
// the given radius: even, within [4, 512].
func CircleSegments(radius float32) int {
	if radius <= 0 {
		return 4
	}
	r := float64(radius)
	e := min(circleMaxError, r)
	n := int(math.Ceil(math.Pi / math.Acos(1-e/r)))
	n = (n + 1) &^ 1
	return max(4, min(n, 512))
}

// Path returns the points accumulated since the last PathClear.
// The slice is reused; do not retain it.
func (g *GeometryContext) Path() []Vec2 {
	return g.path
}

// PathClear empties the current path.
func (g *GeometryContext) PathClear() {
	g.path = g.path[:0]
}

// PathLineTo appends p to the current path.
func (g *GeometryContext) PathLineTo(p Vec2) {
	g.path = append(g.path, p)
}

// PathLineToMergeDuplicate appends p unless it equals the last point.
func (g *GeometryContext) PathLineToMergeDuplicate(p Vec2) {
	if n := len(g.path); n > 0 && g.path[n-1] == p {
		return
	}
	g.path = append(g.path, p)
}

// PathFill fills the current path as a convex polygon and clears it.
func (g *GeometryContext) PathFill(col Color) {
	g.AddConvexPolyFilled(g.path, col, g.dc.opts.AntiAliasedFill)
	g.PathClear()
}

// PathStroke strokes the current path and clears it.
func (g *GeometryContext) PathStroke(col Color, closed bool, thickness float32) {
	g.AddPolyline(g.path, col, closed, thickness, g.dc.opts.AntiAliasedLines)
	g.PathClear()
}

// PathArcTo appends an arc around centre from angle aMin to aMax, in
// radians, using segments+1 points. With segments <= 0 the count follows
// the radius.
func (g *GeometryContext) PathArcTo(centre Vec2, radius, aMin, aMax float32, segments int) {
	if radius == 0 {
		g.path = append(g.path, centre)
		return
	}
	if segments <= 0 {
		span := math.Abs(float64(aMax - aMin))
		// The span is float32; trim its rounding error before taking the ceiling.
		segments = max(1, int(math.Ceil(float64(CircleSegments(radius))*span/(2*math.Pi)-1e-4)))
	}
	g.path = growVec2(g.path, segments+1)
	for i := 0; i <= segments; i++ {
		a := float64(aMin + float32(i)/float32(segments)*(aMax-aMin))
		g.path = append(g.path, Vec2{
			X: centre.X + float32(math.Cos(a))*radius,
			Y: centre.Y + float32(math.Sin(a))*radius,
		})
	}
}

// PathArcToFast appends an arc using the precomputed 12-step circle.
// aMin12 and aMax12 are steps of 30 degrees, clockwise from the positive x
// axis in screen space: 0 is right, 3 is down, 6 is left, 9 is up.
func (g *GeometryContext) PathArcToFast(centre Vec2, radius float32, aMin12, aMax12 int) {
	if radius == 0 || aMin12 > aMax12 {
		g.path = append(g.path, centre)
		return
	}
	g.path = growVec2(g.path, aMax12-aMin12+1)
	for a := aMin12; a <= aMax12; a++ {
		c := g.circle[a%circleSegments]
		g.path = append(g.path, Vec2{X: centre.X + c.X*radius, Y: centre.Y + c.Y*radius})
	}
}

// PathBezierCurveTo appends a cubic Bézier from the last path point through
// control points p2 and p3 to p4. With segments > 0 the curve is sampled
// uniformly; otherwise it is subdivided until flat within
// Options.CurveTessellationTol, at most 10 levels deep. The last point
// appended is always p4.
//
// PathBezierCurveTo panics on an empty path.
func (g *GeometryContext) PathBezierCurveTo(p2, p3, p4 Vec2, segments int) {
	if len(g.path) == 0 {
		panic("imdraw: PathBezierCurveTo on an empty path")
	}
	p1 := g.path[len(g.path)-1]
	if segments > 0 {
		g.path = growVec2(g.path, segments)
		step := 1 / float32(segments)
		for i := 1; i <= segments; i++ {
			g.path = append(g.path, bezierPoint(p1, p2, p3, p4, step*float32(i)))
		}
		return
	}
	g.bezierSubdivide(p1, p2, p3, p4, g.dc.opts.CurveTessellationTol, 0)
}

// bezierPoint evaluates the cubic Bézier at t.
func bezierPoint(p1, p2, p3, p4 Vec2, t float32) Vec2 {
	u := 1 - t
	w1 := u * u * u
	w2 := 3 * u * u * t
	w3 := 3 * u * t * t
	w4 := t * t * t
	return Vec2{
		X: w1*p1.X + w2*p2.X + w3*p3.X + w4*p4.X,
		Y: w1*p1.Y + w2*p2.Y + w3*p3.Y + w4*p4.Y,
	}
}

// bezierSubdivide is de Casteljau subdivision. A segment is flat when the
// control points' distance from the chord satisfies
// (d2+d3)² < tol·|chord|². At depth bezierMaxDepth the end point is taken
// as is.
func (g *GeometryContext) bezierSubdivide(p1, p2, p3, p4 Vec2, tol float32, level int) {
	dx := p4.X - p1.X
	dy := p4.Y - p1.Y
	d2 := abs32((p2.X-p4.X)*dy - (p2.Y-p4.Y)*dx)
	d3 := abs32((p3.X-p4.X)*dy - (p3.Y-p4.Y)*dx)

	if (d2+d3)*(d2+d3) < tol*(dx*dx+dy*dy) || level >= bezierMaxDepth {
		g.path = append(g.path, p4)
		return
	}

	p12 := mid(p1, p2)
	p23 := mid(p2, p3)
	p34 := mid(p3, p4)
	p123 := mid(p12, p23)
	p234 := mid(p23, p34)
	p1234 := mid(p123, p234)
	g.bezierSubdivide(p1, p12, p123, p1234, tol, level+1)
	g.bezierSubdivide(p1234, p234, p34, p4, tol, level+1)
}

func mid(a, b Vec2) Vec2 {
	return Vec2{X: (a.X + b.X) * 0.5, Y: (a.Y + b.Y) * 0.5}
}

func abs32(v float32) float32 {
	return math.Float32frombits(math.Float32bits(v) &^ (1 << 31))
}

// growVec2 makes room for n more points.
func growVec2(s []Vec2, n int) []Vec2 {
	if cap(s)-len(s) >= n {
		return s
	}
	ns := make([]Vec2, len(s), max(2*cap(s), len(s)+n))
	copy(ns, s)
	return ns
}

// Corner selects the corners PathRect rounds.
type Corner uint8

const (
	CornerTopLeft     Corner = 1 << iota // 1
	CornerTopRight                       // 2
	CornerBottomLeft                     // 4
	CornerBottomRight                    // 8

	CornerNone   Corner = 0
	CornerTop           = CornerTopLeft | CornerTopRight
	CornerBottom        = CornerBottomLeft | CornerBottomRight
	CornerLeft          = CornerTopLeft | CornerBottomLeft
	CornerRight         = CornerTopRight | CornerBottomRight
	CornerAll           = CornerTop | CornerBottom
)

// PathRect appends the outline of the rectangle a-b, clockwise from the
// top-left corner, with the selected corners rounded. The rounding is
// clamped so opposite arcs never overlap.
func (g *GeometryContext) PathRect(a, b Vec2, rounding float32, corners Corner) {
	wf, hf := float32(1), float32(1)
	if corners&CornerTop == CornerTop || corners&CornerBottom == CornerBottom {
		wf = 0.5
	}
	if corners&CornerLeft == CornerLeft || corners&CornerRight == CornerRight {
		hf = 0.5
	}
	rounding = min(rounding, abs32(b.X-a.X)*wf-1)
	rounding = min(rounding, abs32(b.Y-a.Y)*hf-1)

	if rounding <= 0 || corners == CornerNone {
		g.path = append(g.path, a, Vec2{X: b.X, Y: a.Y}, b, Vec2{X: a.X, Y: b.Y})
		return
	}

	r := func(c Corner) float32 {
		if corners&c != 0 {
			return rounding
		}
		return 0
	}
	tl, tr, br, bl := r(CornerTopLeft), r(CornerTopRight), r(CornerBottomRight), r(CornerBottomLeft)
	g.PathArcToFast(Vec2{X: a.X + tl, Y: a.Y + tl}, tl, 6, 9)
	g.PathArcToFast(Vec2{X: b.X - tr, Y: a.Y + tr}, tr, 9, 12)
	g.PathArcToFast(Vec2{X: b.X - br, Y: b.Y - br}, br, 0, 3)
	g.PathArcToFast(Vec2{X: a.X + bl, Y: b.Y - bl}, bl, 3, 6)
}
