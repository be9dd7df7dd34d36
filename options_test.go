package imdraw

import (
	"errors"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	if err := o.validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if o.MaxSprites != MaxSprites || o.MaxGeometryIndices != 3*o.MaxGeometryVertices {
		t.Errorf("capacities = %d sprites, %d/%d geometry", o.MaxSprites, o.MaxGeometryVertices, o.MaxGeometryIndices)
	}
	if !o.AntiAliasedLines || !o.AntiAliasedFill {
		t.Error("anti-aliasing off by default")
	}
}

func TestOptions_Apply(t *testing.T) {
	o := DefaultOptions()
	for _, opt := range []Option{
		WithMaxSprites(64),
		WithGeometryCapacity(128, 256),
		WithViewport(320, 200),
		WithAntiAliasing(false, true),
		WithCurveTolerance(0.5),
	} {
		opt(&o)
	}
	if o.MaxSprites != 64 || o.MaxGeometryVertices != 128 || o.MaxGeometryIndices != 256 {
		t.Errorf("capacities = %+v", o)
	}
	if o.Viewport != V2(320, 200) || o.AntiAliasedLines || !o.AntiAliasedFill || o.CurveTessellationTol != 0.5 {
		t.Errorf("options = %+v", o)
	}

	base := DefaultOptions()
	base.MaxSprites = 7
	WithOptions(base)(&o)
	if o != base {
		t.Error("WithOptions() did not replace the options")
	}
}

func TestOptions_ValidateIndexLimit(t *testing.T) {
	o := DefaultOptions()
	o.MaxGeometryVertices = maxGeometryVertices
	if err := o.validate(); err != nil {
		t.Errorf("uint16 index range rejected: %v", err)
	}
	o.MaxGeometryVertices++
	if err := o.validate(); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("err = %v, want ErrInvalidOption", err)
	}
}
