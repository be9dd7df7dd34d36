package imdraw

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/imdraw/device"
)

// Vertex is the vertex format shared by sprites and vector geometry.
//
// Memory layout (20 bytes, little endian):
//
//	offset 0:  position  float32x2
//	offset 8:  color     unorm8x4 (R, G, B, A)
//	offset 12: uv        float32x2
type Vertex struct {
	Pos   Vec2
	Color Color
	UV    Vec2
}

// VertexSize is the encoded size of a Vertex in bytes.
const VertexSize = 20

// VertexLayout describes Vertex to backends.
var VertexLayout = device.VertexLayout{
	Name:   "imdraw.Vertex",
	Stride: VertexSize,
	Attributes: []device.VertexAttribute{
		{Name: "position", Format: gputypes.VertexFormatFloat32x2, Offset: 0, Location: 0},
		{Name: "color", Format: gputypes.VertexFormatUnorm8x4, Offset: 8, Location: 1},
		{Name: "uv", Format: gputypes.VertexFormatFloat32x2, Offset: 12, Location: 2},
	},
}

// AppendVertexBytes appends the encoded form of vs to dst.
func AppendVertexBytes(dst []byte, vs []Vertex) []byte {
	le := binary.LittleEndian
	for i := range vs {
		v := &vs[i]
		dst = le.AppendUint32(dst, math.Float32bits(v.Pos.X))
		dst = le.AppendUint32(dst, math.Float32bits(v.Pos.Y))
		dst = le.AppendUint32(dst, uint32(v.Color))
		dst = le.AppendUint32(dst, math.Float32bits(v.UV.X))
		dst = le.AppendUint32(dst, math.Float32bits(v.UV.Y))
	}
	return dst
}

// DecodeVertex decodes the vertex at index i of an encoded buffer.
// Backends that keep vertex data on the CPU use it.
func DecodeVertex(data []byte, i int) Vertex {
	b := data[i*VertexSize : (i+1)*VertexSize]
	le := binary.LittleEndian
	return Vertex{
		Pos:   Vec2{math.Float32frombits(le.Uint32(b[0:])), math.Float32frombits(le.Uint32(b[4:]))},
		Color: Color(le.Uint32(b[8:])),
		UV:    Vec2{math.Float32frombits(le.Uint32(b[12:])), math.Float32frombits(le.Uint32(b[16:]))},
	}
}
