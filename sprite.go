package imdraw

import (
	"fmt"

	"github.com/gogpu/imdraw/device"
)

// spriteBatch is the staging state of the sprite side of a DrawContext.
type spriteBatch struct {
	vb       device.VertexBuffer
	vertices []Vertex // 4 per sprite, len = MaxSprites*4
	count    int      // sprites staged in vb
	flushed  int      // sprites already covered by Render commands

	bulkOpen  bool
	bulkFirst int
	bulkMax   int
}

// SpriteSegment is a writable range of the sprite staging array returned by
// TakeSprites. Write 4 vertices per sprite, in the order top-left,
// top-right, bottom-left, bottom-right, then pass the segment to
// CompleteBulkOperation. Count may be lowered when fewer sprites were
// written.
type SpriteSegment struct {
	Vertices []Vertex
	Count    int

	first int
	max   int
}

// AddSprite stages one textured quad with its top-left corner at pos.
// The quad covers the uv region of the current texture, scaled by scale.
//
// AddSprite panics when no texture is set.
func (c *DrawContext) AddSprite(pos, scale Vec2, col Color, uv Rect) {
	t := c.spriteTexture("AddSprite")
	size := uv.Size().MulVec(Vec2{X: float32(t.Width()), Y: float32(t.Height())}).MulVec(scale)
	c.AddSpriteRect(Rect{Min: pos, Max: pos.Add(size)}, col, uv)
}

// AddSpriteRect stages one textured quad covering dst.
func (c *DrawContext) AddSpriteRect(dst Rect, col Color, uv Rect) {
	c.spriteTexture("AddSpriteRect")
	if !c.beginSprites(1) {
		return
	}
	s := &c.sprites
	v := s.vertices[s.count*4 : s.count*4+4]
	v[0] = Vertex{Pos: dst.Min, Color: col, UV: uv.Min}
	v[1] = Vertex{Pos: Vec2{dst.Max.X, dst.Min.Y}, Color: col, UV: Vec2{uv.Max.X, uv.Min.Y}}
	v[2] = Vertex{Pos: Vec2{dst.Min.X, dst.Max.Y}, Color: col, UV: Vec2{uv.Min.X, uv.Max.Y}}
	v[3] = Vertex{Pos: dst.Max, Color: col, UV: uv.Max}
	s.count++
}

func (c *DrawContext) spriteTexture(op string) device.Texture {
	c.checkOpen(op)
	if c.texture == nil {
		panic("imdraw: " + op + " called without a texture")
	}
	return c.texture
}

// beginSprites prepares the staging array for at least one more sprite.
// It reports false when recording is stopped by an error.
func (c *DrawContext) beginSprites(n int) bool {
	if c.err != nil {
		return false
	}
	c.geom.flushPending()
	if c.sprites.count+n > c.opts.MaxSprites {
		c.completeSpriteBuffer()
	}
	return c.err == nil
}

// TakeSprites reserves up to count sprites of the staging array for direct
// writes. The returned segment may be shorter than requested when the
// current buffer is nearly full; take again after completing it. Exactly
// one bulk operation may be open at a time.
//
//	seg := dc.TakeSprites(len(particles))
//	for i := 0; i < seg.Count; i++ {
//	    writeQuad(seg.Vertices[i*4:i*4+4], particles[i])
//	}
//	dc.CompleteBulkOperation(seg)
func (c *DrawContext) TakeSprites(count int) SpriteSegment {
	c.spriteTexture("TakeSprites")
	if count <= 0 {
		panic(fmt.Sprintf("imdraw: TakeSprites(%d)", count))
	}
	s := &c.sprites
	if c.err != nil {
		// Recording is stopped; hand out scratch space so callers need no
		// special case.
		s.count, s.flushed = 0, 0
	} else {
		c.geom.flushPending()
		if s.count == c.opts.MaxSprites {
			c.completeSpriteBuffer()
		}
	}
	n := min(count, c.opts.MaxSprites-s.count)
	s.bulkOpen = true
	s.bulkFirst = s.count
	s.bulkMax = n
	return SpriteSegment{
		Vertices: s.vertices[s.count*4 : (s.count+n)*4],
		Count:    n,
		first:    s.count,
		max:      n,
	}
}

// CompleteBulkOperation commits the sprites written into seg.
func (c *DrawContext) CompleteBulkOperation(seg SpriteSegment) {
	s := &c.sprites
	if !s.bulkOpen {
		panic("imdraw: CompleteBulkOperation without TakeSprites")
	}
	if seg.first != s.bulkFirst || seg.max != s.bulkMax {
		panic("imdraw: CompleteBulkOperation with a foreign segment")
	}
	if seg.Count < 0 || seg.Count > seg.max {
		panic(fmt.Sprintf("imdraw: bulk segment count %d out of range [0, %d]", seg.Count, seg.max))
	}
	s.bulkOpen = false
	if c.err != nil {
		return
	}
	s.count += seg.Count
}

// flushSprites records a Render command for the sprites staged since the
// last flush.
func (c *DrawContext) flushSprites() {
	s := &c.sprites
	n := s.count - s.flushed
	if n == 0 || c.err != nil {
		return
	}
	c.beginFrame()
	c.bindTexture(c.texture)
	c.bindVertexBuffer(s.vb)
	c.bindIndexBuffer(c.quadIB)
	c.stream.AppendRender(s.flushed*6, n*2)
	s.flushed = s.count
}

// uploadSprites copies the staged quads into the current vertex buffer.
func (c *DrawContext) uploadSprites() {
	s := &c.sprites
	if s.count == 0 || c.err != nil {
		return
	}
	c.scratch = AppendVertexBytes(c.scratch[:0], s.vertices[:s.count*4])
	s.vb.SetData(c.scratch, 0, s.count*4)
}

// completeSpriteBuffer flushes and uploads the current vertex buffer, hands
// it back to the pool and continues in a fresh one.
func (c *DrawContext) completeSpriteBuffer() {
	s := &c.sprites
	c.flushSprites()
	c.uploadSprites()
	c.log.Debug("imdraw: sprite buffer complete", "sprites", s.count, "vb", s.vb.ID())

	c.spritePool.Return(s.vb)
	s.vb = nil
	s.count, s.flushed = 0, 0
	vb, err := c.spritePool.Take()
	if err != nil {
		c.fail(fmt.Errorf("imdraw: take sprite buffer: %w", err))
		return
	}
	s.vb = vb
}
