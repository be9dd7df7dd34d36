package imdraw

import (
	"bytes"
	"image/color"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/gogpu/imdraw/device/soft"
)

func near(a, b Vec2) bool {
	const eps = 1e-4
	return math.Abs(float64(a.X-b.X)) < eps && math.Abs(float64(a.Y-b.Y)) < eps
}

// staged returns the vertices and indices staged in the current geometry
// buffer.
func staged(g *GeometryContext) ([]Vertex, []uint16) {
	v, i := g.Pending()
	return g.vertices[:v], g.indices[:i]
}

// checkIndices verifies every index refers to a staged vertex.
func checkIndices(t *testing.T, g *GeometryContext) {
	t.Helper()
	vs, is := staged(g)
	for k, i := range is {
		if int(i) >= len(vs) {
			t.Fatalf("index[%d] = %d, only %d vertices staged", k, i, len(vs))
		}
	}
}

func TestAddRectFilled(t *testing.T) {
	dc, dev := newTestContext(t)
	g := dc.Geometry()
	g.AddRectFilled(V2(0, 0), V2(10, 10), Red, 0, CornerAll)

	if v, i := g.Pending(); v != 4 || i != 6 {
		t.Fatalf("Pending() = (%d, %d), want (4, 6)", v, i)
	}
	vs, is := staged(g)
	wantPos := []Vec2{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	for k, p := range wantPos {
		if vs[k].Pos != p || vs[k].Color != Red {
			t.Errorf("vertex %d = %+v, want %v red", k, vs[k], p)
		}
	}
	wantIdx := []uint16{0, 1, 2, 0, 2, 3}
	for k, i := range wantIdx {
		if is[k] != i {
			t.Errorf("indices = %v, want %v", is, wantIdx)
			break
		}
	}
	if a := (Rect{Min: vs[0].Pos, Max: vs[2].Pos}).Area(); a != 100 {
		t.Errorf("covered area = %v, want 100", a)
	}

	st, err := dc.Render(dev)
	if err != nil {
		t.Fatal(err)
	}
	if st.Triangles != 2 {
		t.Errorf("Triangles = %d, want 2", st.Triangles)
	}
	if v, i := g.Pending(); v != 0 || i != 0 {
		t.Errorf("Pending() after Render = (%d, %d), want (0, 0)", v, i)
	}
}

func TestTessellationCounts(t *testing.T) {
	tri := []Vec2{{0, 0}, {10, 0}, {5, 8}}
	square := []Vec2{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	hexagon := []Vec2{{10, 0}, {20, 5}, {20, 15}, {10, 20}, {0, 15}, {0, 5}}

	tests := []struct {
		name         string
		draw         func(g *GeometryContext)
		wantV, wantI int
	}{
		{"closed solid polyline", func(g *GeometryContext) {
			g.AddPolyline(tri, White, true, 1, false)
		}, 12, 18},
		{"open solid polyline", func(g *GeometryContext) {
			g.AddPolyline(tri, White, false, 2, false)
		}, 8, 12},
		{"open thin aa polyline", func(g *GeometryContext) {
			g.AddPolyline(tri, White, false, 1, true)
		}, 9, 24},
		{"closed thin aa polyline", func(g *GeometryContext) {
			g.AddPolyline(square, White, true, 1, true)
		}, 12, 48},
		{"open thick aa polyline", func(g *GeometryContext) {
			g.AddPolyline(tri, White, false, 3, true)
		}, 12, 36},
		{"closed thick aa polyline", func(g *GeometryContext) {
			g.AddPolyline(square, White, true, 4, true)
		}, 16, 72},
		{"aa convex fill", func(g *GeometryContext) {
			g.AddConvexPolyFilled(hexagon, Red, true)
		}, 12, 48},
		{"solid convex fill", func(g *GeometryContext) {
			g.AddConvexPolyFilled(hexagon, Red, false)
		}, 6, 12},
		{"aa circle", func(g *GeometryContext) {
			g.AddCircleFilled(V2(32, 32), 10, Red, 12)
		}, 24, 102},
		{"rounded rect", func(g *GeometryContext) {
			g.AddRectFilled(V2(0, 0), V2(20, 20), Red, 4, CornerAll)
		}, 32, 14*3 + 16*6},
		{"rounded top only", func(g *GeometryContext) {
			// Square corners contribute a single point each.
			g.AddRectFilled(V2(0, 0), V2(20, 20), Red, 4, CornerTop)
		}, 20, 8*3 + 10*6},
		{"single point", func(g *GeometryContext) {
			g.AddPolyline(tri[:1], White, false, 1, true)
		}, 0, 0},
		{"degenerate fill", func(g *GeometryContext) {
			g.AddConvexPolyFilled(tri[:2], White, true)
		}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc, _ := newTestContext(t)
			g := dc.Geometry()
			tt.draw(g)
			if v, i := g.Pending(); v != tt.wantV || i != tt.wantI {
				t.Errorf("Pending() = (%d, %d), want (%d, %d)", v, i, tt.wantV, tt.wantI)
			}
			checkIndices(t, g)
		})
	}
}

func TestAAFillFringe(t *testing.T) {
	dc, _ := newTestContext(t)
	g := dc.Geometry()
	// Clockwise on screen: outward normals point away from the centre.
	g.AddConvexPolyFilled([]Vec2{{0, 0}, {10, 0}, {10, 10}, {0, 10}}, Red, true)

	vs, is := staged(g)
	if !near(vs[0].Pos, V2(0.5, 0.5)) || vs[0].Color != Red {
		t.Errorf("inner vertex = %+v, want (0.5, 0.5) red", vs[0])
	}
	if !near(vs[1].Pos, V2(-0.5, -0.5)) || vs[1].Color.A() != 0 {
		t.Errorf("outer vertex = %+v, want (-0.5, -0.5) transparent", vs[1])
	}
	if vs[1].Color != Red.Transparentized() {
		t.Errorf("outer color = %#x, want red with zero alpha", vs[1].Color)
	}
	// Fan over the inner ring first.
	if is[0] != 0 || is[1] != 2 || is[2] != 4 {
		t.Errorf("first fan triangle = %v, want [0 2 4]", is[:3])
	}
}

func TestPolylineEdges(t *testing.T) {
	line := []Vec2{{0, 0}, {10, 0}}
	tests := []struct {
		name      string
		thickness float32
		aa        bool
		want      []Vec2
		opaque    []bool
	}{
		{"thin aa", 1, true,
			[]Vec2{{0, 0}, {0, -1}, {0, 1}, {10, 0}, {10, -1}, {10, 1}},
			[]bool{true, false, false, true, false, false}},
		{"thick aa", 3, true,
			[]Vec2{{0, -2}, {0, -1}, {0, 1}, {0, 2}, {10, -2}, {10, -1}, {10, 1}, {10, 2}},
			[]bool{false, true, true, false, false, true, true, false}},
		{"solid", 2, false,
			[]Vec2{{0, -1}, {10, -1}, {10, 1}, {0, 1}},
			[]bool{true, true, true, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc, _ := newTestContext(t)
			g := dc.Geometry()
			g.AddPolyline(line, Blue, false, tt.thickness, tt.aa)
			vs, _ := staged(g)
			if len(vs) != len(tt.want) {
				t.Fatalf("vertices = %d, want %d", len(vs), len(tt.want))
			}
			for i, p := range tt.want {
				if !near(vs[i].Pos, p) {
					t.Errorf("vertex %d at %v, want %v", i, vs[i].Pos, p)
				}
				if got := vs[i].Color.A() == 0xFF; got != tt.opaque[i] {
					t.Errorf("vertex %d opaque = %v, want %v", i, got, tt.opaque[i])
				}
			}
		})
	}
}

func TestConsecutivePrimitivesIndexTheirOwnVertices(t *testing.T) {
	dc, _ := newTestContext(t)
	g := dc.Geometry()
	g.AddRectFilled(V2(0, 0), V2(4, 4), Red, 0, CornerNone)
	g.AddTriangleFilled(V2(0, 0), V2(4, 0), V2(2, 4), Green)

	vs, is := staged(g)
	if len(vs) != 4+6 {
		t.Fatalf("vertices = %d, want 10", len(vs))
	}
	for k, i := range is[6:] {
		if i < 4 || i >= 10 {
			t.Errorf("triangle index[%d] = %d, want within [4, 10)", k, i)
		}
	}
	checkIndices(t, g)
}

func TestTakePrimitives(t *testing.T) {
	dc, dev := newTestContext(t)
	g := dc.Geometry()
	g.AddRectFilled(V2(0, 0), V2(4, 4), Red, 0, CornerNone)

	seg := g.TakePrimitives(3, 3, 1)
	if seg.Base != 4 || len(seg.Vertices) != 3 || len(seg.Indices) != 3 {
		t.Fatalf("segment = base %d, %d vertices, %d indices", seg.Base, len(seg.Vertices), len(seg.Indices))
	}
	for i := range seg.Vertices {
		seg.Vertices[i] = Vertex{Pos: V2(float32(i), 0), Color: Blue}
		seg.Indices[i] = seg.Base + uint16(i)
	}
	st, err := dc.Render(dev)
	if err != nil {
		t.Fatal(err)
	}
	if st.Triangles != 3 || st.DrawCalls != 1 {
		t.Errorf("stats = %v, want 3 triangles in 1 draw", st)
	}
}

func TestTakePrimitivesPanics(t *testing.T) {
	tests := []struct {
		name          string
		vtx, idx, tri int
	}{
		{"mismatched triangles", 3, 4, 1},
		{"negative", -1, 3, 1},
		{"too many vertices", 17, 24, 8},
		{"too many indices", 4, 27, 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc, _ := newTestContext(t, WithGeometryCapacity(16, 24))
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			dc.Geometry().TakePrimitives(tt.vtx, tt.idx, tt.tri)
		})
	}
}

func TestGeometryAutoFlush(t *testing.T) {
	dc, dev := newTestContext(t, WithGeometryCapacity(16, 24))
	dev.ResetStats()
	g := dc.Geometry()

	// Four quads fill the buffer exactly; the fifth starts a new one.
	for i := 0; i < 5; i++ {
		g.AddRectFilled(V2(float32(i), 0), V2(float32(i)+1, 1), Red, 0, CornerNone)
	}
	if v, i := g.Pending(); v != 4 || i != 6 {
		t.Errorf("Pending() = (%d, %d), want (4, 6)", v, i)
	}

	st, err := dc.Render(dev)
	if err != nil {
		t.Fatal(err)
	}
	draws := dev.Draws()
	if len(draws) != 2 {
		t.Fatalf("draws = %d, want 2", len(draws))
	}
	if draws[0].Primitives != 8 || draws[1].Primitives != 2 {
		t.Errorf("primitives = %d, %d; want 8, 2", draws[0].Primitives, draws[1].Primitives)
	}
	if draws[0].VertexBuffer == draws[1].VertexBuffer || draws[0].IndexBuffer == draws[1].IndexBuffer {
		t.Error("second batch reused the completed buffers")
	}
	if got := dev.Stats().IndexUploads; got != 2 {
		t.Errorf("index uploads = %d, want 2", got)
	}
	if st.Triangles != 10 {
		t.Errorf("Triangles = %d, want 10", st.Triangles)
	}
}

func TestTransparentDrawsNothing(t *testing.T) {
	dc, dev := newTestContext(t)
	g := dc.Geometry()
	g.AddRectFilled(V2(0, 0), V2(4, 4), Transparent, 0, CornerNone)
	g.AddRectFilledMultiColor(V2(0, 0), V2(4, 4), 0, 0, 0, 0)
	g.AddLine(V2(0, 0), V2(4, 4), Red.Transparentized(), 1)
	g.AddCircle(V2(8, 8), 4, Transparent, 0, 1)
	g.AddBezierCurve(V2(0, 0), V2(1, 1), V2(2, 2), V2(3, 3), Transparent, 1, 0)

	if v, i := g.Pending(); v != 0 || i != 0 {
		t.Errorf("Pending() = (%d, %d), want (0, 0)", v, i)
	}
	if len(g.Path()) != 0 {
		t.Errorf("path left with %d points", len(g.Path()))
	}
	st, err := dc.Render(dev)
	if err != nil {
		t.Fatal(err)
	}
	if st.Commands != 0 {
		t.Errorf("Commands = %d, want 0", st.Commands)
	}
}

func TestAntiAliasingOptions(t *testing.T) {
	dc, _ := newTestContext(t, WithAntiAliasing(false, false))
	g := dc.Geometry()
	g.AddQuadFilled(V2(0, 0), V2(4, 0), V2(4, 4), V2(0, 4), Red)
	if v, i := g.Pending(); v != 4 || i != 6 {
		t.Errorf("solid fill Pending() = (%d, %d), want (4, 6)", v, i)
	}
	g.AddTriangle(V2(0, 0), V2(4, 0), V2(2, 4), Red, 1)
	if v, i := g.Pending(); v != 4+12 || i != 6+18 {
		t.Errorf("solid stroke Pending() = (%d, %d), want (16, 24)", v, i)
	}
}

func TestGeometryWithoutWhiteTexture(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	dev := soft.New()
	dc, err := NewDrawContext(dev, WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close()

	tex := dev.NewSolidTexture(2, 2, color.White)
	for frame := 0; frame < 2; frame++ {
		dc.SetTexture(tex)
		dc.Geometry().AddRectFilled(V2(0, 0), V2(4, 4), Red, 0, CornerNone)
		if _, err := dc.Render(dev); err != nil {
			t.Fatal(err)
		}
	}
	if n := strings.Count(buf.String(), "without a white texture"); n != 1 {
		t.Errorf("warnings = %d, want 1", n)
	}
	for _, d := range dev.Draws() {
		if d.Texture != tex.ID() {
			t.Errorf("geometry drawn with texture %d, want the current texture %d", d.Texture, tex.ID())
		}
	}
}

func TestRasterizedGeometry(t *testing.T) {
	dev := soft.New(soft.WithSize(16, 16))
	dc, err := NewDrawContext(dev, WithViewport(16, 16), WithWhiteTexture(dev.WhiteTexture(), Vec2{}))
	if err != nil {
		t.Fatal(err)
	}
	defer dc.Close()

	dc.Geometry().AddRectFilled(V2(4, 4), V2(12, 12), Red, 0, CornerNone)
	if _, err := dc.Render(dev); err != nil {
		t.Fatal(err)
	}
	img := dev.Image()
	if c := img.RGBAAt(8, 8); c.R < 250 || c.A < 250 || c.G != 0 {
		t.Errorf("centre = %v, want red", c)
	}
	if c := img.RGBAAt(1, 1); c.A != 0 {
		t.Errorf("corner = %v, want untouched", c)
	}
}

func BenchmarkAddCircleFilled(b *testing.B) {
	dc, dev := newTestContext(b)
	g := dc.Geometry()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g.AddCircleFilled(V2(32, 32), 20, Green, 0)
		if i%256 == 255 {
			dc.Render(dev)
		}
	}
}
