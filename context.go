package imdraw

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/gogpu/imdraw/command"
	"github.com/gogpu/imdraw/device"
	"github.com/gogpu/imdraw/pool"
)

// Camera supplies the projection for a frame.
type Camera interface {
	Projection() device.Matrix4
}

// DrawContext records sprites and vector geometry for one frame at a time
// and replays them against a device.
//
// It owns the command stream, the pooled vertex and index buffers, the
// static sprite index buffer and a GeometryContext. Sprites and geometry
// share the stream; switching between them flushes the other side first, so
// primitives reach the device in call order.
//
// Resource failures during recording are sticky: the first error stops
// further recording and is returned by Render and Reset.
//
// A DrawContext is not safe for concurrent use.
type DrawContext struct {
	opts    Options
	log     *slog.Logger
	factory device.BufferFactory
	stream  *command.Stream

	spritePool *pool.Pool[device.VertexBuffer]
	geomVB     *pool.Pool[device.VertexBuffer]
	geomIB     *pool.Pool[device.IndexBuffer]
	quadIB     device.IndexBuffer

	sprites spriteBatch
	geom    *GeometryContext

	// Requested state. Emitted into the stream at the start of every frame
	// and whenever it changes.
	blend      device.BlendState
	depth      device.DepthState
	rasterizer device.RasterizerState
	sampler    device.SamplerState
	effect     device.Effect
	projection device.Matrix4
	texture    device.Texture

	// Recorded state for the current frame.
	started   bool
	boundTex  device.Texture
	boundVB   device.VertexBuffer
	boundIB   device.IndexBuffer
	scratch   []byte
	frame     uint64
	highWater int
	stats     command.Stats
	err       error
	closed    bool
}

var _ io.Closer = (*DrawContext)(nil)

// NewDrawContext creates a DrawContext whose buffers come from factory.
//
//	dc, err := imdraw.NewDrawContext(soft.New(), imdraw.WithViewport(640, 480))
//	if err != nil {
//	    return err
//	}
//	defer dc.Close()
func NewDrawContext(factory device.BufferFactory, opts ...Option) (*DrawContext, error) {
	if factory == nil {
		return nil, ErrNoFactory
	}
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	log := o.Logger
	if log == nil {
		log = Logger()
	}

	c := &DrawContext{
		opts:       o,
		log:        log,
		factory:    factory,
		stream:     command.NewStream(),
		blend:      o.Blend,
		depth:      o.Depth,
		rasterizer: o.Rasterizer,
		sampler:    o.Sampler,
		projection: device.Ortho(0, o.Viewport.X, o.Viewport.Y, 0, -1, 1),
	}
	c.spritePool = pool.New(func() (device.VertexBuffer, error) {
		return factory.CreateVertexBuffer(VertexLayout, o.MaxSprites*4, true)
	})
	c.geomVB = pool.New(func() (device.VertexBuffer, error) {
		return factory.CreateVertexBuffer(VertexLayout, o.MaxGeometryVertices, true)
	})
	c.geomIB = pool.New(func() (device.IndexBuffer, error) {
		return factory.CreateIndex16Buffer(o.MaxGeometryIndices, true)
	})

	ib, err := factory.CreateIndex16Buffer(o.MaxSprites*6, false)
	if err != nil {
		return nil, fmt.Errorf("imdraw: create quad index buffer: %w", err)
	}
	ib.SetData(quadIndices(o.MaxSprites), 0, o.MaxSprites*6)
	c.quadIB = ib

	c.sprites.vertices = make([]Vertex, o.MaxSprites*4)
	c.geom = newGeometryContext(c)

	if err := c.takeBuffers(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// quadIndices builds the static index pattern {0,1,2,1,3,2} offset by 4k.
func quadIndices(quads int) []uint16 {
	idx := make([]uint16, quads*6)
	for k := 0; k < quads; k++ {
		b := uint16(k * 4)
		i := idx[k*6 : k*6+6]
		i[0], i[1], i[2] = b, b+1, b+2
		i[3], i[4], i[5] = b+1, b+3, b+2
	}
	return idx
}

// Options returns the effective options.
func (c *DrawContext) Options() Options {
	return c.opts
}

// Geometry returns the vector tessellator sharing this context's stream.
func (c *DrawContext) Geometry() *GeometryContext {
	return c.geom
}

// Stream returns the command stream of the frame being recorded.
// It is read-only for callers and is valid until the next Render or Reset.
func (c *DrawContext) Stream() *command.Stream {
	return c.stream
}

// Err returns the sticky recording error, if any.
func (c *DrawContext) Err() error {
	return c.err
}

// Triangles returns the triangle count of the last Render.
func (c *DrawContext) Triangles() int {
	return c.stats.Triangles
}

// Commands returns the command count of the last Render.
func (c *DrawContext) Commands() int {
	return c.stats.Commands
}

// Stats returns the statistics of the last Render.
func (c *DrawContext) Stats() command.Stats {
	return c.stats
}

// Frame returns the number of frames reset so far.
func (c *DrawContext) Frame() uint64 {
	return c.frame
}

// fail records the first resource error.
func (c *DrawContext) fail(err error) {
	if c.err == nil {
		c.err = err
		c.log.Error("imdraw: recording stopped", "frame", c.frame, "err", err)
	}
}

func (c *DrawContext) checkOpen(op string) {
	if c.closed {
		panic("imdraw: " + op + " after Close")
	}
	if c.sprites.bulkOpen {
		panic("imdraw: " + op + " called while a bulk operation is open")
	}
}

// beginFrame emits the frame's starting state once, before the first
// recorded command.
func (c *DrawContext) beginFrame() {
	if c.started {
		return
	}
	c.started = true
	s := c.stream
	s.AppendProjection(c.projection)
	s.AppendBlendState(c.blend)
	s.AppendDepthState(c.depth)
	s.AppendRasterizerState(c.rasterizer)
	s.AppendSamplerState(c.sampler)
	s.AppendEffect(c.effect)
}

// flushPending emits Render commands for whatever is staged but not yet
// recorded, on both the sprite and geometry side.
func (c *DrawContext) flushPending() {
	c.flushSprites()
	c.geom.flushPending()
}

func (c *DrawContext) bindTexture(t device.Texture) {
	if t == nil {
		return
	}
	if c.boundTex != nil && c.boundTex.ID() == t.ID() {
		return
	}
	c.stream.AppendTexture(t)
	c.boundTex = t
}

func (c *DrawContext) bindVertexBuffer(b device.VertexBuffer) {
	if c.boundVB != nil && c.boundVB.ID() == b.ID() {
		return
	}
	c.stream.AppendVertexBuffer(b)
	c.boundVB = b
}

func (c *DrawContext) bindIndexBuffer(b device.IndexBuffer) {
	if c.boundIB != nil && c.boundIB.ID() == b.ID() {
		return
	}
	c.stream.AppendIndexBuffer(b)
	c.boundIB = b
}

// SetTexture selects the texture for subsequent sprites. Pending primitives
// are flushed with the previous texture first.
func (c *DrawContext) SetTexture(t device.Texture) {
	c.checkOpen("SetTexture")
	if t == nil {
		panic("imdraw: SetTexture(nil)")
	}
	if c.texture != nil && c.texture.ID() == t.ID() {
		return
	}
	if c.err != nil {
		c.texture = t
		return
	}
	c.flushPending()
	c.texture = t
	c.beginFrame()
	c.bindTexture(t)
}

// Texture returns the texture selected for sprites, or nil.
func (c *DrawContext) Texture() device.Texture {
	return c.texture
}

// SetBlendState changes the blend state for subsequent primitives.
func (c *DrawContext) SetBlendState(st device.BlendState) {
	c.checkOpen("SetBlendState")
	if st == c.blend {
		return
	}
	c.changeState(func() { c.blend = st }, func() { c.stream.AppendBlendState(st) })
}

// SetDepthState changes the depth state for subsequent primitives.
func (c *DrawContext) SetDepthState(st device.DepthState) {
	c.checkOpen("SetDepthState")
	if st == c.depth {
		return
	}
	c.changeState(func() { c.depth = st }, func() { c.stream.AppendDepthState(st) })
}

// SetRasterizerState changes the rasterizer state for subsequent primitives.
func (c *DrawContext) SetRasterizerState(st device.RasterizerState) {
	c.checkOpen("SetRasterizerState")
	if st == c.rasterizer {
		return
	}
	c.changeState(func() { c.rasterizer = st }, func() { c.stream.AppendRasterizerState(st) })
}

// SetSamplerState changes the sampler state for subsequent primitives.
func (c *DrawContext) SetSamplerState(st device.SamplerState) {
	c.checkOpen("SetSamplerState")
	if st == c.sampler {
		return
	}
	c.changeState(func() { c.sampler = st }, func() { c.stream.AppendSamplerState(st) })
}

// SetEffect selects the shader program. Nil selects the built-in one.
func (c *DrawContext) SetEffect(e device.Effect) {
	c.checkOpen("SetEffect")
	if sameEffect(e, c.effect) {
		return
	}
	c.changeState(func() { c.effect = e }, func() { c.stream.AppendEffect(e) })
}

func sameEffect(a, b device.Effect) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Name() == b.Name()
}

// SetProjection replaces the projection for subsequent primitives.
func (c *DrawContext) SetProjection(m device.Matrix4) {
	c.checkOpen("SetProjection")
	if m == c.projection {
		return
	}
	c.changeState(func() { c.projection = m }, func() { c.stream.AppendProjection(m) })
}

// SetCamera is SetProjection(cam.Projection()).
func (c *DrawContext) SetCamera(cam Camera) {
	c.SetProjection(cam.Projection())
}

// Projection returns the current projection.
func (c *DrawContext) Projection() device.Matrix4 {
	return c.projection
}

// changeState flushes pending primitives, then updates the requested
// state. Once the frame has started the change is also recorded; before
// that, beginFrame picks up the new value.
func (c *DrawContext) changeState(set, record func()) {
	if c.err != nil || !c.started {
		set()
		return
	}
	c.flushPending()
	set()
	record()
}

// takeBuffers acquires the current sprite and geometry buffers.
func (c *DrawContext) takeBuffers() error {
	vb, err := c.spritePool.Take()
	if err != nil {
		return fmt.Errorf("imdraw: take sprite buffer: %w", err)
	}
	c.sprites.vb = vb
	return c.geom.takeBuffers()
}

// upload writes the remaining staged data of both sides into their
// current buffers without replacing them.
func (c *DrawContext) upload() {
	c.uploadSprites()
	c.geom.upload()
}

// Render flushes pending primitives, uploads the staged buffers and replays
// the frame against dev. Afterwards the context is reset for the next frame
// and Triangles and Commands report the replayed frame.
//
// Render returns the sticky recording error, if any. In that case nothing is
// replayed and the frame is discarded.
func (c *DrawContext) Render(dev device.Device) (command.Stats, error) {
	if c.closed {
		return command.Stats{}, ErrClosed
	}
	c.checkOpen("Render")
	if c.err != nil {
		err := c.err
		c.err = nil
		c.resetFrame()
		c.stats = command.Stats{}
		return command.Stats{}, err
	}

	c.flushPending()
	c.upload()
	st := c.stream.Replay(dev)
	c.log.Debug("imdraw: frame", "frame", c.frame, "stats", st)

	c.resetFrame()
	c.stats = st
	return st, c.err
}

// Reset discards the frame being recorded, recycles its buffers and zeroes
// the statistics. It returns an error when fresh buffers cannot be taken.
func (c *DrawContext) Reset() error {
	if c.closed {
		return ErrClosed
	}
	c.checkOpen("Reset")
	c.err = nil
	c.resetFrame()
	c.stats = command.Stats{}
	return c.err
}

func (c *DrawContext) resetFrame() {
	c.stream.Reset()
	c.started = false
	c.boundTex, c.boundVB, c.boundIB = nil, nil, nil
	c.sprites.count, c.sprites.flushed = 0, 0
	c.geom.resetStaging()
	c.geom.PathClear()

	if c.sprites.vb != nil {
		c.spritePool.Return(c.sprites.vb)
		c.sprites.vb = nil
	}
	c.geom.returnBuffers()
	c.spritePool.NextFrame()
	c.geomVB.NextFrame()
	c.geomIB.NextFrame()
	c.frame++

	if err := c.takeBuffers(); err != nil {
		c.fail(err)
	}
	c.noteGrowth()
}

// noteGrowth logs when the pools grow beyond their previous size.
func (c *DrawContext) noteGrowth() {
	n := c.spritePool.Created() + c.geomVB.Created() + c.geomIB.Created()
	if n > c.highWater {
		if c.highWater > 0 {
			c.log.Info("imdraw: buffer pools grew",
				"sprite_vbs", c.spritePool.Created(),
				"geometry_vbs", c.geomVB.Created(),
				"geometry_ibs", c.geomIB.Created())
		}
		c.highWater = n
	}
}

// PoolStats reports the created and in-use counts of the sprite vertex
// pool and the geometry pools.
type PoolStats struct {
	SpriteCreated, SpriteInUse     int
	GeometryCreated, GeometryInUse int
}

// PoolStats returns buffer pool telemetry.
func (c *DrawContext) PoolStats() PoolStats {
	return PoolStats{
		SpriteCreated:   c.spritePool.Created(),
		SpriteInUse:     c.spritePool.InUse(),
		GeometryCreated: c.geomVB.Created() + c.geomIB.Created(),
		GeometryInUse:   c.geomVB.InUse() + c.geomIB.InUse(),
	}
}

// destroyer is implemented by buffers owning device memory.
type destroyer interface {
	Destroy()
}

func destroy[T any](h T) {
	if d, ok := any(h).(destroyer); ok {
		d.Destroy()
	}
}

// Close releases every buffer the context created. It is safe to call
// Close multiple times.
func (c *DrawContext) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.spritePool.Close(destroy[device.VertexBuffer])
	c.geomVB.Close(destroy[device.VertexBuffer])
	c.geomIB.Close(destroy[device.IndexBuffer])
	if c.quadIB != nil {
		destroy(c.quadIB)
		c.quadIB = nil
	}
	c.sprites.vb = nil
	c.geom.vb, c.geom.ib = nil, nil
	return nil
}
