package command

import "github.com/gogpu/imdraw/device"

// tables holds the resources referenced by state and binding records.
// Each add returns the index the record stores. Adding a value equal to
// the most recently added one reuses its index, which keeps the tables
// short when a frame alternates between two batches with the same state.
//
// Handles (textures, effects, buffers) are compared by identity:
// ID for textures and buffers, Name for effects.
type tables struct {
	blend         []device.BlendState
	depth         []device.DepthState
	rasterizer    []device.RasterizerState
	sampler       []device.SamplerState
	effects       []device.Effect
	textures      []device.Texture
	vertexBuffers []device.VertexBuffer
	indexBuffers  []device.IndexBuffer
}

func (t *tables) reset() {
	t.blend = t.blend[:0]
	t.depth = t.depth[:0]
	t.rasterizer = t.rasterizer[:0]
	t.sampler = t.sampler[:0]
	clear(t.effects)
	t.effects = t.effects[:0]
	clear(t.textures)
	t.textures = t.textures[:0]
	clear(t.vertexBuffers)
	t.vertexBuffers = t.vertexBuffers[:0]
	clear(t.indexBuffers)
	t.indexBuffers = t.indexBuffers[:0]
}

// addValue appends v unless it equals the last element.
func addValue[T comparable](s *[]T, v T) int {
	if n := len(*s); n > 0 && (*s)[n-1] == v {
		return n - 1
	}
	*s = append(*s, v)
	return len(*s) - 1
}

func (t *tables) addBlend(st device.BlendState) int {
	return addValue(&t.blend, st)
}

func (t *tables) addDepth(st device.DepthState) int {
	return addValue(&t.depth, st)
}

func (t *tables) addRasterizer(st device.RasterizerState) int {
	return addValue(&t.rasterizer, st)
}

func (t *tables) addSampler(st device.SamplerState) int {
	return addValue(&t.sampler, st)
}

func effectName(e device.Effect) string {
	if e == nil {
		return ""
	}
	return e.Name()
}

func (t *tables) addEffect(e device.Effect) int {
	if n := len(t.effects); n > 0 && effectName(t.effects[n-1]) == effectName(e) {
		return n - 1
	}
	t.effects = append(t.effects, e)
	return len(t.effects) - 1
}

func (t *tables) addTexture(tex device.Texture) int {
	if n := len(t.textures); n > 0 && t.textures[n-1].ID() == tex.ID() {
		return n - 1
	}
	t.textures = append(t.textures, tex)
	return len(t.textures) - 1
}

func (t *tables) addVertexBuffer(b device.VertexBuffer) int {
	if n := len(t.vertexBuffers); n > 0 && t.vertexBuffers[n-1].ID() == b.ID() {
		return n - 1
	}
	t.vertexBuffers = append(t.vertexBuffers, b)
	return len(t.vertexBuffers) - 1
}

func (t *tables) addIndexBuffer(b device.IndexBuffer) int {
	if n := len(t.indexBuffers); n > 0 && t.indexBuffers[n-1].ID() == b.ID() {
		return n - 1
	}
	t.indexBuffers = append(t.indexBuffers, b)
	return len(t.indexBuffers) - 1
}

// BlendStates returns the blend state table. The slice aliases the
// stream's memory and must not be modified.
func (t *tables) BlendStates() []device.BlendState { return t.blend }

// DepthStates returns the depth state table.
func (t *tables) DepthStates() []device.DepthState { return t.depth }

// RasterizerStates returns the rasterizer state table.
func (t *tables) RasterizerStates() []device.RasterizerState { return t.rasterizer }

// SamplerStates returns the sampler state table.
func (t *tables) SamplerStates() []device.SamplerState { return t.sampler }

// Effects returns the effect table. Entries may be nil.
func (t *tables) Effects() []device.Effect { return t.effects }

// Textures returns the texture table.
func (t *tables) Textures() []device.Texture { return t.textures }

// VertexBuffers returns the vertex buffer table.
func (t *tables) VertexBuffers() []device.VertexBuffer { return t.vertexBuffers }

// IndexBuffers returns the index buffer table.
func (t *tables) IndexBuffers() []device.IndexBuffer { return t.indexBuffers }

// lookup returns s[i] or panics with a descriptive message. An out of
// range index means the arena was not produced by this stream.
func lookup[T any](s []T, i uint32, k Kind) T {
	if int(i) >= len(s) {
		panic("command: " + k.String() + " record references a missing table entry")
	}
	return s[i]
}
