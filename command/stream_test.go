package command

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/gogpu/imdraw/device"
)

type fakeTexture struct{ id uint32 }

func (t fakeTexture) ID() uint32  { return t.id }
func (t fakeTexture) Width() int  { return 64 }
func (t fakeTexture) Height() int { return 32 }

type fakeVB struct{ id uint32 }

func (b fakeVB) ID() uint32                  { return b.id }
func (b fakeVB) Len() int                    { return 1024 }
func (b fakeVB) Layout() device.VertexLayout { return device.VertexLayout{Stride: 20} }
func (b fakeVB) SetData(_ []byte, _, _ int)  {}

type fakeIB struct{ id uint32 }

func (b fakeIB) ID() uint32                   { return b.id }
func (b fakeIB) Len() int                     { return 1024 }
func (b fakeIB) SetData(_ []uint16, _, _ int) {}

type fakeEffect string

func (e fakeEffect) Name() string   { return string(e) }
func (e fakeEffect) String() string { return "fx:" + string(e) }

// traceDevice records every call as a string.
type traceDevice struct {
	calls []string
}

func (d *traceDevice) add(format string, a ...any) {
	d.calls = append(d.calls, fmt.Sprintf(format, a...))
}

func (d *traceDevice) SetBlendState(s device.BlendState)         { d.add("blend %v", s.Enabled) }
func (d *traceDevice) SetDepthState(s device.DepthState)         { d.add("depth %v", s.Enabled) }
func (d *traceDevice) SetRasterizerState(device.RasterizerState) { d.add("raster") }
func (d *traceDevice) SetSamplerState(device.SamplerState)       { d.add("sampler") }
func (d *traceDevice) SetEffect(e device.Effect)                 { d.add("effect %v", e) }
func (d *traceDevice) SetProjection(m device.Matrix4)            { d.add("proj %v", m[0]) }
func (d *traceDevice) BindTexture(t device.Texture)              { d.add("texture %d", t.ID()) }
func (d *traceDevice) BindVertexBuffer(b device.VertexBuffer)    { d.add("vb %d", b.ID()) }
func (d *traceDevice) BindIndexBuffer(b device.IndexBuffer)      { d.add("ib %d", b.ID()) }
func (d *traceDevice) DrawIndexedTriangles(start, count int)     { d.add("draw %d %d", start, count) }

func TestStreamEmpty(t *testing.T) {
	s := NewStream()
	if !s.IsEmpty() || s.Len() != 0 || s.Count() != 0 {
		t.Fatalf("new stream not empty: len=%d count=%d", s.Len(), s.Count())
	}
	st := s.Replay(&traceDevice{})
	if st != (Stats{}) {
		t.Errorf("Replay(empty) = %+v, want zero", st)
	}
}

func TestStreamRecordSizes(t *testing.T) {
	tests := []struct {
		name   string
		append func(*Stream)
		kind   Kind
		size   int
	}{
		{"blend", func(s *Stream) { s.AppendBlendState(device.BlendAlpha) }, KindBlendState, 8},
		{"depth", func(s *Stream) { s.AppendDepthState(device.DepthNone) }, KindDepthState, 8},
		{"raster", func(s *Stream) { s.AppendRasterizerState(device.CullNone) }, KindRasterizerState, 8},
		{"sampler", func(s *Stream) { s.AppendSamplerState(device.SamplerLinearClamp) }, KindSamplerState, 8},
		{"effect", func(s *Stream) { s.AppendEffect(fakeEffect("sprite")) }, KindEffect, 8},
		{"texture", func(s *Stream) { s.AppendTexture(fakeTexture{1}) }, KindTexture, 8},
		{"vertex buffer", func(s *Stream) { s.AppendVertexBuffer(fakeVB{1}) }, KindVertexBuffer, 8},
		{"index buffer", func(s *Stream) { s.AppendIndexBuffer(fakeIB{1}) }, KindIndexBuffer, 8},
		{"projection", func(s *Stream) { s.AppendProjection(device.Identity4()) }, KindProjection, 68},
		{"render", func(s *Stream) { s.AppendRender(6, 2) }, KindRender, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStream()
			tt.append(s)
			if s.Len() != tt.size {
				t.Fatalf("Len() = %d, want %d", s.Len(), tt.size)
			}
			b := s.Bytes()
			if k := Kind(binary.LittleEndian.Uint16(b)); k != tt.kind {
				t.Errorf("header kind = %v, want %v", k, tt.kind)
			}
			if n := int(binary.LittleEndian.Uint16(b[2:])); n != tt.size {
				t.Errorf("header size = %d, want %d", n, tt.size)
			}
			if tt.kind.RecordSize() != tt.size {
				t.Errorf("RecordSize() = %d, want %d", tt.kind.RecordSize(), tt.size)
			}
		})
	}
}

func TestStreamReplayOrder(t *testing.T) {
	s := NewStream()
	s.AppendProjection(device.Scale4(2, 2, 1))
	s.AppendBlendState(device.BlendAlpha)
	s.AppendEffect(fakeEffect("sprite"))
	s.AppendTexture(fakeTexture{7})
	s.AppendVertexBuffer(fakeVB{3})
	s.AppendIndexBuffer(fakeIB{4})
	s.AppendRender(0, 10)
	s.AppendTexture(fakeTexture{8})
	s.AppendRender(30, 5)

	dev := &traceDevice{}
	st := s.Replay(dev)

	want := []string{
		"proj 2",
		"blend true",
		"effect fx:sprite",
		"texture 7",
		"vb 3",
		"ib 4",
		"draw 0 10",
		"texture 8",
		"draw 30 5",
	}
	if got := strings.Join(dev.calls, "\n"); got != strings.Join(want, "\n") {
		t.Errorf("replay calls:\n%s\nwant:\n%s", got, strings.Join(want, "\n"))
	}
	if st.Commands != 9 {
		t.Errorf("Commands = %d, want 9", st.Commands)
	}
	if st.Triangles != 15 {
		t.Errorf("Triangles = %d, want 15", st.Triangles)
	}
	if st.DrawCalls != 2 {
		t.Errorf("DrawCalls = %d, want 2", st.DrawCalls)
	}
	if st.StateChanges != 6 {
		t.Errorf("StateChanges = %d, want 6", st.StateChanges)
	}
}

func TestStreamReplayIsRepeatable(t *testing.T) {
	s := NewStream()
	s.AppendTexture(fakeTexture{1})
	s.AppendRender(0, 4)

	first := s.Replay(&traceDevice{})
	second := s.Replay(&traceDevice{})
	if first != second {
		t.Errorf("second replay = %+v, first = %+v", second, first)
	}
}

func TestStreamEmptyRenderIsDropped(t *testing.T) {
	s := NewStream()
	s.AppendRender(12, 0)
	if !s.IsEmpty() {
		t.Errorf("zero-primitive render was recorded: count=%d", s.Count())
	}
}

func TestStreamReset(t *testing.T) {
	s := NewStream()
	for i := 0; i < 100; i++ {
		s.AppendTexture(fakeTexture{uint32(i + 1)})
		s.AppendRender(i*6, 2)
	}
	capBefore := cap(s.Bytes())

	s.Reset()
	if !s.IsEmpty() || s.Len() != 0 {
		t.Fatalf("after Reset: len=%d count=%d", s.Len(), s.Count())
	}
	if len(s.Textures()) != 0 {
		t.Errorf("texture table not cleared: %d entries", len(s.Textures()))
	}
	if cap(s.Bytes()) != capBefore {
		t.Errorf("Reset released the arena: cap %d -> %d", capBefore, cap(s.Bytes()))
	}
}

func TestStreamDeduplicatesConsecutiveTableEntries(t *testing.T) {
	s := NewStream()
	s.AppendTexture(fakeTexture{1})
	s.AppendTexture(fakeTexture{1})
	s.AppendTexture(fakeTexture{2})
	s.AppendTexture(fakeTexture{1})
	s.AppendBlendState(device.BlendAlpha)
	s.AppendBlendState(device.BlendAlpha)

	if got := len(s.Textures()); got != 3 {
		t.Errorf("texture table has %d entries, want 3", got)
	}
	if got := len(s.BlendStates()); got != 1 {
		t.Errorf("blend table has %d entries, want 1", got)
	}
	// Deduplication must not drop records.
	if s.Count() != 6 {
		t.Errorf("Count() = %d, want 6", s.Count())
	}
}

func TestStreamGrowth(t *testing.T) {
	s := NewStream()
	const n = 5000
	for i := 0; i < n; i++ {
		s.AppendRender(i, 1)
	}
	if s.Len() != n*KindRender.RecordSize() {
		t.Fatalf("Len() = %d, want %d", s.Len(), n*KindRender.RecordSize())
	}
	st := s.Replay(&traceDevice{})
	if st.Triangles != n {
		t.Errorf("Triangles = %d, want %d", st.Triangles, n)
	}
}

func TestStreamAppendPanics(t *testing.T) {
	tests := []struct {
		name string
		fn   func(*Stream)
	}{
		{"nil texture", func(s *Stream) { s.AppendTexture(nil) }},
		{"nil vertex buffer", func(s *Stream) { s.AppendVertexBuffer(nil) }},
		{"negative render", func(s *Stream) { s.AppendRender(-1, 2) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			tt.fn(NewStream())
		})
	}
}

func TestCount(t *testing.T) {
	s := NewStream()
	s.AppendTexture(fakeTexture{1})
	s.AppendRender(0, 3)
	s.AppendRender(9, 4)

	st, err := Count(s.Bytes())
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	want := Stats{Commands: 3, Triangles: 7, DrawCalls: 2, StateChanges: 1}
	if st != want {
		t.Errorf("Count = %+v, want %+v", st, want)
	}

	_, err = Count(s.Bytes()[:s.Len()-3])
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("Count(truncated) error = %v, want ErrTruncated", err)
	}
}

func TestStatsLogValue(t *testing.T) {
	st := Stats{Commands: 4, Triangles: 8, DrawCalls: 2}
	v := st.LogValue()
	attrs := v.Group()
	if len(attrs) != 4 {
		t.Fatalf("LogValue has %d attrs, want 4", len(attrs))
	}
	if attrs[2].Key != "tris" || attrs[2].Value.Int64() != 8 {
		t.Errorf("tris attr = %v", attrs[2])
	}
}

func BenchmarkStreamAppend(b *testing.B) {
	s := NewStream()
	tex := fakeTexture{1}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s.Reset()
		for j := 0; j < 256; j++ {
			s.AppendTexture(tex)
			s.AppendRender(j*6, 2)
		}
	}
}
