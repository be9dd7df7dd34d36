package command

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/imdraw/device"
)

// Decoding errors.
var (
	// ErrTruncated is reported when the arena ends inside a record.
	ErrTruncated = errors.New("command: truncated record")

	// ErrMalformed is reported for an unknown kind or a record whose
	// declared size does not match its kind.
	ErrMalformed = errors.New("command: malformed record")
)

// Decoder walks the records of an arena in order.
//
// Every read is bounds-checked against the current record: the decoder
// never interprets bytes outside [Offset, Offset+size). Reading a payload
// with the accessor of a different kind is a programming error and panics.
//
// Example usage:
//
//	dec := command.NewDecoder(stream.Bytes())
//	for dec.Next() {
//	    switch dec.Kind() {
//	    case command.KindRender:
//	        start, count := dec.Render()
//	        // draw
//	    case command.KindProjection:
//	        m := dec.Projection()
//	        // set projection
//	    }
//	}
//	if err := dec.Err(); err != nil {
//	    // arena was damaged
//	}
type Decoder struct {
	buf  []byte
	off  int
	next int
	kind Kind
	err  error
}

// NewDecoder creates a decoder over buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Reset rewinds the decoder onto buf.
func (d *Decoder) Reset(buf []byte) {
	*d = Decoder{buf: buf}
}

// Next advances to the next record. It returns false at the end of the
// arena or when the next record is malformed; Err distinguishes the two.
func (d *Decoder) Next() bool {
	if d.err != nil || d.next >= len(d.buf) {
		return false
	}
	if len(d.buf)-d.next < HeaderSize {
		d.err = fmt.Errorf("%w: %d header bytes at offset %d", ErrTruncated, len(d.buf)-d.next, d.next)
		return false
	}
	k := Kind(binary.LittleEndian.Uint16(d.buf[d.next:]))
	size := int(binary.LittleEndian.Uint16(d.buf[d.next+2:]))
	want := k.RecordSize()
	if want < 0 {
		d.err = fmt.Errorf("%w: unknown kind %#x at offset %d", ErrMalformed, uint16(k), d.next)
		return false
	}
	if size != want {
		d.err = fmt.Errorf("%w: %s at offset %d declares %d bytes, want %d", ErrMalformed, k, d.next, size, want)
		return false
	}
	if d.next+size > len(d.buf) {
		d.err = fmt.Errorf("%w: %s at offset %d needs %d bytes, %d left", ErrTruncated, k, d.next, size, len(d.buf)-d.next)
		return false
	}
	d.off = d.next
	d.next += size
	d.kind = k
	return true
}

// Err returns the first decoding error, or nil if the arena was walked
// cleanly (or has not been fully walked yet).
func (d *Decoder) Err() error {
	return d.err
}

// Kind returns the kind of the current record.
func (d *Decoder) Kind() Kind {
	return d.kind
}

// Offset returns the byte offset of the current record.
func (d *Decoder) Offset() int {
	return d.off
}

// HasMore reports whether bytes remain after the current record.
func (d *Decoder) HasMore() bool {
	return d.err == nil && d.next < len(d.buf)
}

// payload returns the current record's payload after checking that the
// current kind is one of the expected kinds.
func (d *Decoder) payload(ok bool, accessor string) []byte {
	if !ok {
		panic(fmt.Sprintf("command: %s called on %s record at offset %d", accessor, d.kind, d.off))
	}
	return d.buf[d.off+HeaderSize : d.next]
}

// Index returns the side-table index of a state or binding record.
func (d *Decoder) Index() uint32 {
	p := d.payload(d.kind.IsIndexed(), "Index")
	return binary.LittleEndian.Uint32(p)
}

// Projection returns the matrix of a KindProjection record.
func (d *Decoder) Projection() device.Matrix4 {
	p := d.payload(d.kind == KindProjection, "Projection")
	var m device.Matrix4
	for i := range m {
		m[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
	}
	return m
}

// Render returns the index range of a KindRender record.
func (d *Decoder) Render() (startIndex, primitiveCount uint32) {
	p := d.payload(d.kind == KindRender, "Render")
	return binary.LittleEndian.Uint32(p), binary.LittleEndian.Uint32(p[4:])
}
