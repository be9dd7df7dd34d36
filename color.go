package imdraw

import (
	"image/color"
	"math"
)

// Color is a packed 8-bit RGBA color as stored in vertices.
// R is in the low byte and A in the high byte, so in little-endian memory
// the bytes read R, G, B, A and map to a unorm8x4 vertex attribute.
//
// Colors are straight (non-premultiplied) alpha.
type Color uint32

// Channel shifts and masks.
const (
	colorShiftR = 0
	colorShiftG = 8
	colorShiftB = 16
	colorShiftA = 24

	// AlphaMask selects the alpha byte.
	AlphaMask Color = 0xFF << colorShiftA
)

// Common colors.
const (
	Transparent Color = 0
	Black       Color = 0xFF000000
	White       Color = 0xFFFFFFFF
	Red         Color = 0xFF0000FF
	Green       Color = 0xFF00FF00
	Blue        Color = 0xFFFF0000
)

// RGBA8 packs 8-bit components.
func RGBA8(r, g, b, a uint8) Color {
	return Color(r)<<colorShiftR | Color(g)<<colorShiftG | Color(b)<<colorShiftB | Color(a)<<colorShiftA
}

// RGBA packs float components in [0, 1]. Values outside the range are clamped.
func RGBA(r, g, b, a float32) Color {
	return RGBA8(unit8(r), unit8(g), unit8(b), unit8(a))
}

// RGB packs an opaque color from float components in [0, 1].
func RGB(r, g, b float32) Color {
	return RGBA(r, g, b, 1)
}

// FromColor converts a standard color.Color.
func FromColor(c color.Color) Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return RGBA8(n.R, n.G, n.B, n.A)
}

func unit8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}

// R returns the red component.
func (c Color) R() uint8 { return uint8(c >> colorShiftR) }

// G returns the green component.
func (c Color) G() uint8 { return uint8(c >> colorShiftG) }

// B returns the blue component.
func (c Color) B() uint8 { return uint8(c >> colorShiftB) }

// A returns the alpha component.
func (c Color) A() uint8 { return uint8(c >> colorShiftA) }

// WithAlpha returns c with its alpha replaced.
func (c Color) WithAlpha(a uint8) Color {
	return c&^AlphaMask | Color(a)<<colorShiftA
}

// Transparentized returns c with alpha zeroed and RGB kept. Anti-aliasing
// fringes fade from c to this value.
func (c Color) Transparentized() Color {
	return c &^ AlphaMask
}

// IsTransparent reports whether c has zero alpha.
func (c Color) IsTransparent() bool {
	return c&AlphaMask == 0
}

// NRGBA converts c to a standard color.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R(), G: c.G(), B: c.B(), A: c.A()}
}
