package command

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/imdraw/device"
)

// minCapacity is the smallest arena allocated on first growth.
const minCapacity = 1024

// Stream is a linear recording of state changes and draw calls.
//
// Records are appended into a single byte arena; resources referenced by
// state records live in parallel side tables owned by the stream. A stream
// is reused across frames: Reset truncates it without releasing memory, so
// steady-state recording does not allocate.
//
// Stream is not safe for concurrent use.
type Stream struct {
	buf   []byte
	count int

	tables
}

// NewStream creates an empty stream.
func NewStream() *Stream {
	return &Stream{}
}

// Reset truncates the stream and clears all side tables.
// It must be called before the first record of a new frame.
func (s *Stream) Reset() {
	s.buf = s.buf[:0]
	s.count = 0
	s.tables.reset()
}

// Len returns the size of the recorded arena in bytes.
func (s *Stream) Len() int {
	return len(s.buf)
}

// Count returns the number of recorded records.
func (s *Stream) Count() int {
	return s.count
}

// IsEmpty reports whether no records have been appended since the last Reset.
func (s *Stream) IsEmpty() bool {
	return s.count == 0
}

// Bytes returns the recorded arena. The slice aliases the stream's memory
// and is only valid until the next Append or Reset.
func (s *Stream) Bytes() []byte {
	return s.buf
}

// growFor ensures that at least n more bytes can be appended without
// reallocating.
func (s *Stream) growFor(n int) {
	if len(s.buf)+n <= cap(s.buf) {
		return
	}
	sz := 2 * cap(s.buf)
	if sz < minCapacity {
		sz = minCapacity
	}
	if sz < len(s.buf)+n {
		sz = 2 * (len(s.buf) + n)
	}
	b := make([]byte, len(s.buf), sz)
	copy(b, s.buf)
	s.buf = b
}

// begin writes the header of a k record and reserves room for its payload.
func (s *Stream) begin(k Kind) {
	n := k.RecordSize()
	if n < 0 {
		panic(fmt.Sprintf("command: append of unknown kind %#x", uint16(k)))
	}
	s.growFor(n)
	s.buf = binary.LittleEndian.AppendUint16(s.buf, uint16(k))
	s.buf = binary.LittleEndian.AppendUint16(s.buf, uint16(n)) //nolint:gosec // record sizes are at most 68 bytes
	s.count++
}

func (s *Stream) appendIndex(k Kind, idx int) {
	s.begin(k)
	s.buf = binary.LittleEndian.AppendUint32(s.buf, uint32(idx)) //nolint:gosec // table sizes are bounded by memory
}

// AppendBlendState records a blend state change.
func (s *Stream) AppendBlendState(st device.BlendState) {
	s.appendIndex(KindBlendState, s.addBlend(st))
}

// AppendDepthState records a depth state change.
func (s *Stream) AppendDepthState(st device.DepthState) {
	s.appendIndex(KindDepthState, s.addDepth(st))
}

// AppendRasterizerState records a rasterizer state change.
func (s *Stream) AppendRasterizerState(st device.RasterizerState) {
	s.appendIndex(KindRasterizerState, s.addRasterizer(st))
}

// AppendSamplerState records a sampler state change.
func (s *Stream) AppendSamplerState(st device.SamplerState) {
	s.appendIndex(KindSamplerState, s.addSampler(st))
}

// AppendEffect records a shader program change. A nil effect selects the
// device's built-in program.
func (s *Stream) AppendEffect(e device.Effect) {
	s.appendIndex(KindEffect, s.addEffect(e))
}

// AppendTexture records a texture binding.
func (s *Stream) AppendTexture(t device.Texture) {
	if t == nil {
		panic("command: AppendTexture with nil texture")
	}
	s.appendIndex(KindTexture, s.addTexture(t))
}

// AppendVertexBuffer records a vertex buffer binding.
func (s *Stream) AppendVertexBuffer(b device.VertexBuffer) {
	if b == nil {
		panic("command: AppendVertexBuffer with nil buffer")
	}
	s.appendIndex(KindVertexBuffer, s.addVertexBuffer(b))
}

// AppendIndexBuffer records an index buffer binding.
func (s *Stream) AppendIndexBuffer(b device.IndexBuffer) {
	if b == nil {
		panic("command: AppendIndexBuffer with nil buffer")
	}
	s.appendIndex(KindIndexBuffer, s.addIndexBuffer(b))
}

// AppendProjection records a projection matrix change.
func (s *Stream) AppendProjection(m device.Matrix4) {
	s.begin(KindProjection)
	for _, f := range m {
		s.buf = binary.LittleEndian.AppendUint32(s.buf, math.Float32bits(f))
	}
}

// AppendRender records an indexed triangle draw of primitiveCount
// triangles starting at startIndex in the bound index buffer.
// Empty draws are not recorded.
func (s *Stream) AppendRender(startIndex, primitiveCount int) {
	if startIndex < 0 || primitiveCount < 0 {
		panic(fmt.Sprintf("command: AppendRender(%d, %d): negative range", startIndex, primitiveCount))
	}
	if primitiveCount == 0 {
		return
	}
	s.begin(KindRender)
	s.buf = binary.LittleEndian.AppendUint32(s.buf, uint32(startIndex))     //nolint:gosec // checked non-negative above
	s.buf = binary.LittleEndian.AppendUint32(s.buf, uint32(primitiveCount)) //nolint:gosec // checked non-negative above
}
