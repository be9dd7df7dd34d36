package imdraw

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/imdraw/device"
)

// Capacity limits.
const (
	// MaxSprites is the default number of sprites staged per vertex buffer.
	MaxSprites = 2048

	// maxSpritesLimit keeps 4*sprites addressable with 16-bit indices.
	maxSpritesLimit = 16384

	// DefaultGeometryVertices is the default geometry staging size.
	DefaultGeometryVertices = 16384

	// maxGeometryVertices is the 16-bit index limit.
	maxGeometryVertices = 65536

	// DefaultCurveTessellationTol is the default Bézier flatness tolerance.
	DefaultCurveTessellationTol = 1.25
)

// Options configures a DrawContext.
type Options struct {
	// MaxSprites is the number of quads staged before a sprite vertex
	// buffer is completed. Range [1, 16384].
	MaxSprites int

	// MaxGeometryVertices and MaxGeometryIndices size the geometry staging
	// arrays. A single primitive can never exceed them.
	MaxGeometryVertices int
	MaxGeometryIndices  int

	// Viewport is the target size in pixels. It defines the default
	// projection, Ortho(0, width, height, 0, -1, 1).
	Viewport Vec2

	// WhiteTexture, when set, is bound for vector geometry and sampled at
	// WhiteUV. Without it geometry is drawn with whatever texture is bound.
	WhiteTexture device.Texture
	WhiteUV      Vec2

	// AntiAliasedLines and AntiAliasedFill select the fringe tessellation
	// for strokes and fills issued through the path API and shape helpers.
	AntiAliasedLines bool
	AntiAliasedFill  bool

	// CurveTessellationTol is the Bézier flattening tolerance, > 0.
	// Smaller values produce more segments.
	CurveTessellationTol float32

	// Blend, Depth, Rasterizer and Sampler are the states every frame
	// starts with.
	Blend      device.BlendState
	Depth      device.DepthState
	Rasterizer device.RasterizerState
	Sampler    device.SamplerState

	// Logger receives diagnostics. Nil means the package default, see
	// SetLogger.
	Logger *slog.Logger
}

// DefaultOptions returns the options NewDrawContext starts from.
func DefaultOptions() Options {
	return Options{
		MaxSprites:           MaxSprites,
		MaxGeometryVertices:  DefaultGeometryVertices,
		MaxGeometryIndices:   DefaultGeometryVertices * 3,
		Viewport:             Vec2{X: 1280, Y: 720},
		AntiAliasedLines:     true,
		AntiAliasedFill:      true,
		CurveTessellationTol: DefaultCurveTessellationTol,
		Blend:                device.BlendAlpha,
		Depth:                device.DepthNone,
		Rasterizer:           device.CullNone,
		Sampler:              device.SamplerLinearClamp,
	}
}

func (o *Options) validate() error {
	switch {
	case o.MaxSprites < 1 || o.MaxSprites > maxSpritesLimit:
		return fmt.Errorf("%w: MaxSprites %d out of range [1, %d]", ErrInvalidOption, o.MaxSprites, maxSpritesLimit)
	case o.MaxGeometryVertices < 4 || o.MaxGeometryVertices > maxGeometryVertices:
		return fmt.Errorf("%w: MaxGeometryVertices %d out of range [4, %d]", ErrInvalidOption, o.MaxGeometryVertices, maxGeometryVertices)
	case o.MaxGeometryIndices < 6:
		return fmt.Errorf("%w: MaxGeometryIndices %d below 6", ErrInvalidOption, o.MaxGeometryIndices)
	case !(o.CurveTessellationTol > 0):
		return fmt.Errorf("%w: CurveTessellationTol must be positive", ErrInvalidOption)
	case o.Viewport.X <= 0 || o.Viewport.Y <= 0:
		return fmt.Errorf("%w: empty viewport %vx%v", ErrInvalidOption, o.Viewport.X, o.Viewport.Y)
	}
	return nil
}

// Option configures a DrawContext during creation.
//
// Example:
//
//	dc, err := imdraw.NewDrawContext(factory,
//	    imdraw.WithViewport(800, 600),
//	    imdraw.WithWhiteTexture(white, imdraw.V2(0, 0)),
//	)
type Option func(*Options)

// WithOptions replaces all options at once.
func WithOptions(opts Options) Option {
	return func(o *Options) {
		*o = opts
	}
}

// WithMaxSprites sets the sprite staging capacity.
func WithMaxSprites(n int) Option {
	return func(o *Options) {
		o.MaxSprites = n
	}
}

// WithGeometryCapacity sets the geometry staging capacity.
func WithGeometryCapacity(vertices, indices int) Option {
	return func(o *Options) {
		o.MaxGeometryVertices = vertices
		o.MaxGeometryIndices = indices
	}
}

// WithViewport sets the target size used for the default projection.
func WithViewport(width, height float32) Option {
	return func(o *Options) {
		o.Viewport = Vec2{X: width, Y: height}
	}
}

// WithWhiteTexture sets the texture used for untextured geometry.
// uv must address an opaque white texel.
func WithWhiteTexture(t device.Texture, uv Vec2) Option {
	return func(o *Options) {
		o.WhiteTexture = t
		o.WhiteUV = uv
	}
}

// WithAntiAliasing enables or disables anti-aliased strokes and fills.
func WithAntiAliasing(lines, fill bool) Option {
	return func(o *Options) {
		o.AntiAliasedLines = lines
		o.AntiAliasedFill = fill
	}
}

// WithCurveTolerance sets the Bézier flattening tolerance.
func WithCurveTolerance(tol float32) Option {
	return func(o *Options) {
		o.CurveTessellationTol = tol
	}
}

// WithLogger sets the logger for one DrawContext.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}
