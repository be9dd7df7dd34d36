package imdraw

import (
	"fmt"

	"github.com/gogpu/imdraw/device"
)

// GeometrySegment is a reserved range of the geometry staging arrays.
// Indices written into it are absolute: add Base to segment-local vertex
// numbers.
type GeometrySegment struct {
	Vertices []Vertex
	Indices  []uint16
	Base     uint16
}

// GeometryContext tessellates vector shapes into the geometry buffers of
// its DrawContext. Obtain it with DrawContext.Geometry.
//
// Paths are built with the Path* methods and consumed by PathFill or
// PathStroke. The Add* helpers build and consume a path in one call.
type GeometryContext struct {
	dc *DrawContext

	vb device.VertexBuffer
	ib device.IndexBuffer

	vertices []Vertex
	indices  []uint16
	vtxCount int
	idxCount int
	flushed  int // indices already covered by Render commands

	path    []Vec2
	normals []Vec2 // scratch for the tessellators
	fringe  []Vec2

	circle  [circleSegments]Vec2
	whiteUV Vec2
	warned  bool
}

func newGeometryContext(dc *DrawContext) *GeometryContext {
	g := &GeometryContext{
		dc:       dc,
		vertices: make([]Vertex, dc.opts.MaxGeometryVertices),
		indices:  make([]uint16, dc.opts.MaxGeometryIndices),
		path:     make([]Vec2, 0, 64),
		whiteUV:  dc.opts.WhiteUV,
	}
	g.circle = unitCircle()
	return g
}

// MaxPrimitives returns the triangle capacity of one geometry buffer.
func (g *GeometryContext) MaxPrimitives() int {
	return len(g.indices) / 3
}

// TakePrimitives reserves vertexCount vertices and indexCount indices for
// primitiveCount triangles. When the request does not fit in the remaining
// capacity the current buffers are completed first. A request larger than
// the total capacity panics.
func (g *GeometryContext) TakePrimitives(vertexCount, indexCount, primitiveCount int) GeometrySegment {
	dc := g.dc
	dc.checkOpen("TakePrimitives")
	if vertexCount < 0 || indexCount < 0 || primitiveCount < 0 {
		panic(fmt.Sprintf("imdraw: TakePrimitives(%d, %d, %d)", vertexCount, indexCount, primitiveCount))
	}
	if vertexCount > len(g.vertices) || indexCount > len(g.indices) || primitiveCount > g.MaxPrimitives() {
		panic(fmt.Sprintf("imdraw: primitive of %d vertices, %d indices exceeds geometry capacity %d/%d",
			vertexCount, indexCount, len(g.vertices), len(g.indices)))
	}
	if primitiveCount*3 != indexCount {
		panic(fmt.Sprintf("imdraw: %d indices do not form %d triangles", indexCount, primitiveCount))
	}

	if dc.err != nil {
		// Recording is stopped. Keep handing out valid scratch ranges.
		g.resetStaging()
	} else {
		dc.flushSprites()
		if g.vtxCount+vertexCount > len(g.vertices) || g.idxCount+indexCount > len(g.indices) {
			g.completeBuffer()
		}
		if dc.err != nil {
			g.resetStaging()
		}
	}

	seg := GeometrySegment{
		Vertices: g.vertices[g.vtxCount : g.vtxCount+vertexCount],
		Indices:  g.indices[g.idxCount : g.idxCount+indexCount],
		Base:     uint16(g.vtxCount),
	}
	g.vtxCount += vertexCount
	g.idxCount += indexCount
	return seg
}

// texture returns the texture geometry is drawn with.
func (g *GeometryContext) texture() device.Texture {
	if t := g.dc.opts.WhiteTexture; t != nil {
		return t
	}
	if !g.warned {
		g.warned = true
		g.dc.log.Warn("imdraw: geometry drawn without a white texture")
	}
	return g.dc.texture
}

// flushPending records a Render command for the triangles staged since the
// last flush.
func (g *GeometryContext) flushPending() {
	dc := g.dc
	n := g.idxCount - g.flushed
	if n == 0 || dc.err != nil {
		return
	}
	dc.beginFrame()
	dc.bindTexture(g.texture())
	dc.bindVertexBuffer(g.vb)
	dc.bindIndexBuffer(g.ib)
	dc.stream.AppendRender(g.flushed, n/3)
	g.flushed = g.idxCount
}

// upload copies the staged data into the current buffers.
func (g *GeometryContext) upload() {
	dc := g.dc
	if g.vtxCount == 0 || dc.err != nil {
		return
	}
	dc.scratch = AppendVertexBytes(dc.scratch[:0], g.vertices[:g.vtxCount])
	g.vb.SetData(dc.scratch, 0, g.vtxCount)
	g.ib.SetData(g.indices[:g.idxCount], 0, g.idxCount)
}

// completeBuffer flushes and uploads the current buffers, returns them to
// their pools and takes fresh ones.
func (g *GeometryContext) completeBuffer() {
	g.flushPending()
	g.upload()
	g.dc.log.Debug("imdraw: geometry buffer complete", "vertices", g.vtxCount, "indices", g.idxCount)
	g.returnBuffers()
	g.resetStaging()
	if err := g.takeBuffers(); err != nil {
		g.dc.fail(err)
	}
}

func (g *GeometryContext) resetStaging() {
	g.vtxCount, g.idxCount, g.flushed = 0, 0, 0
}

func (g *GeometryContext) returnBuffers() {
	if g.vb != nil {
		g.dc.geomVB.Return(g.vb)
		g.vb = nil
	}
	if g.ib != nil {
		g.dc.geomIB.Return(g.ib)
		g.ib = nil
	}
}

func (g *GeometryContext) takeBuffers() error {
	vb, err := g.dc.geomVB.Take()
	if err != nil {
		return fmt.Errorf("imdraw: take geometry vertex buffer: %w", err)
	}
	g.vb = vb
	ib, err := g.dc.geomIB.Take()
	if err != nil {
		return fmt.Errorf("imdraw: take geometry index buffer: %w", err)
	}
	g.ib = ib
	return nil
}

// Pending returns the staged vertex and index counts of the current buffer.
func (g *GeometryContext) Pending() (vertices, indices int) {
	return g.vtxCount, g.idxCount
}
