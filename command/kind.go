// Package command records graphics state changes and draw calls into a
// linear byte stream and replays them against a device.
//
// A Stream is a growable arena of variable-length records. Each record has
// a fixed 4-byte header followed by a payload whose size is determined by
// the record kind:
//
//	+--------+--------+----------------------+
//	| kind   | size   | payload (size-4)     |
//	| uint16 | uint16 |                      |
//	+--------+--------+----------------------+
//
// All fields are little endian. size counts the whole record including the
// header, so a decoder can always step to the next record, and it must
// equal HeaderSize+kind.PayloadSize() for the record to be well formed.
//
// State records carry an index into one of the stream's side tables
// (states, textures, effects, buffers). Draw records carry an index range.
// Nothing touches the device until Replay.
package command

// Kind identifies the type of a record in a Stream.
// Kinds are grouped by their high nibble:
//
//	0x0X: pipeline state
//	0x1X: resource bindings
//	0x2X: transforms
//	0x3X: draws
type Kind uint16

// Record kinds. Each kind has a fixed payload layout documented in its
// comment.
const (
	// KindBlendState selects a blend state.
	// Payload: 1 uint32 index into the blend state table.
	KindBlendState Kind = 0x01

	// KindDepthState selects a depth state.
	// Payload: 1 uint32 index into the depth state table.
	KindDepthState Kind = 0x02

	// KindRasterizerState selects a rasterizer state.
	// Payload: 1 uint32 index into the rasterizer state table.
	KindRasterizerState Kind = 0x03

	// KindSamplerState selects a sampler state.
	// Payload: 1 uint32 index into the sampler state table.
	KindSamplerState Kind = 0x04

	// KindEffect selects a shader program.
	// Payload: 1 uint32 index into the effect table.
	KindEffect Kind = 0x05

	// KindTexture binds a texture.
	// Payload: 1 uint32 index into the texture table.
	KindTexture Kind = 0x10

	// KindVertexBuffer binds a vertex buffer.
	// Payload: 1 uint32 index into the vertex buffer table.
	KindVertexBuffer Kind = 0x11

	// KindIndexBuffer binds an index buffer.
	// Payload: 1 uint32 index into the index buffer table.
	KindIndexBuffer Kind = 0x12

	// KindProjection sets the projection matrix.
	// Payload: 16 float32 values, column-major.
	KindProjection Kind = 0x20

	// KindRender draws indexed triangles.
	// Payload: 1 uint32 start index, 1 uint32 primitive count.
	KindRender Kind = 0x30
)

// HeaderSize is the size in bytes of every record header.
const HeaderSize = 4

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindBlendState:
		return "BlendState"
	case KindDepthState:
		return "DepthState"
	case KindRasterizerState:
		return "RasterizerState"
	case KindSamplerState:
		return "SamplerState"
	case KindEffect:
		return "Effect"
	case KindTexture:
		return "Texture"
	case KindVertexBuffer:
		return "VertexBuffer"
	case KindIndexBuffer:
		return "IndexBuffer"
	case KindProjection:
		return "Projection"
	case KindRender:
		return "Render"
	default:
		return "Unknown"
	}
}

// IsState reports whether the kind selects pipeline state.
func (k Kind) IsState() bool {
	return k >= KindBlendState && k <= KindEffect
}

// IsBinding reports whether the kind binds a resource.
func (k Kind) IsBinding() bool {
	return k >= KindTexture && k <= KindIndexBuffer
}

// IsIndexed reports whether the payload is a single side-table index.
func (k Kind) IsIndexed() bool {
	return k.IsState() || k.IsBinding()
}

// PayloadSize returns the payload size in bytes for the kind,
// or -1 for unknown kinds.
func (k Kind) PayloadSize() int {
	switch {
	case k.IsIndexed():
		return 4
	case k == KindProjection:
		return 64
	case k == KindRender:
		return 8
	default:
		return -1
	}
}

// RecordSize returns the full record size in bytes for the kind,
// or -1 for unknown kinds.
func (k Kind) RecordSize() int {
	if n := k.PayloadSize(); n >= 0 {
		return HeaderSize + n
	}
	return -1
}
