package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/imdraw"
	"github.com/gogpu/imdraw/device"
	"github.com/gogpu/imdraw/device/soft"
)

// Scene is a frame description loaded from YAML.
type Scene struct {
	Width        int           `yaml:"width"`
	Height       int           `yaml:"height"`
	Background   string        `yaml:"background"`
	AntiAliasing *AntiAliasing `yaml:"anti_aliasing"`
	Textures     []TextureSpec `yaml:"textures"`
	Items        []Item        `yaml:"items"`

	// dir resolves relative texture paths.
	dir string
}

// AntiAliasing overrides the default fringe settings.
type AntiAliasing struct {
	Lines bool `yaml:"lines"`
	Fill  bool `yaml:"fill"`
}

// TextureSpec names an image file. Width and height, when set, resize it.
type TextureSpec struct {
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// Item is one draw. Which fields apply depends on Kind.
type Item struct {
	Kind      string       `yaml:"kind"`
	Color     string       `yaml:"color"`
	Colors    []string     `yaml:"colors"`
	Blend     string       `yaml:"blend"`
	Texture   string       `yaml:"texture"`
	Pos       [2]float32   `yaml:"pos"`
	Scale     *[2]float32  `yaml:"scale"`
	UV        *[4]float32  `yaml:"uv"`
	Min       [2]float32   `yaml:"min"`
	Max       [2]float32   `yaml:"max"`
	Center    [2]float32   `yaml:"center"`
	Radius    float32      `yaml:"radius"`
	Rounding  float32      `yaml:"rounding"`
	Corners   string       `yaml:"corners"`
	Thickness float32      `yaml:"thickness"`
	Segments  int          `yaml:"segments"`
	Closed    bool         `yaml:"closed"`
	Points    [][2]float32 `yaml:"points"`
}

// LoadScene reads and validates a scene file.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseScene(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// ParseScene decodes and validates scene YAML.
func ParseScene(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// pointCounts lists the number of points each kind takes from Points. A
// negative count -n means at least n.
var pointCounts = map[string]int{
	"sprite":          0,
	"rect":            0,
	"rect_filled":     0,
	"rect_multicolor": 0,
	"circle":          0,
	"circle_filled":   0,
	"line":            2,
	"triangle":        3,
	"quad":            4,
	"polyline":        -2,
	"convex_filled":   -3,
	"bezier":          4,
}

// maxPoints bounds the points of one polyline or polygon, and the segments
// of one circle or curve, so that its worst-case tessellation (an
// anti-aliased thick stroke, 4 vertices and 18 indices per point) fits the
// default geometry buffers.
var maxPoints = func() int {
	o := imdraw.DefaultOptions()
	return min(o.MaxGeometryVertices/4, o.MaxGeometryIndices/18)
}()

func (s *Scene) validate() error {
	names := make(map[string]bool)
	for i, t := range s.Textures {
		if t.Name == "" || t.Path == "" {
			return fmt.Errorf("texture %d: name and path are required", i)
		}
		if names[t.Name] {
			return fmt.Errorf("texture %q defined twice", t.Name)
		}
		names[t.Name] = true
	}
	for i, it := range s.Items {
		want, ok := pointCounts[it.Kind]
		if !ok {
			return fmt.Errorf("item %d: unknown kind %q", i, it.Kind)
		}
		switch {
		case want > 0 && len(it.Points) != want:
			return fmt.Errorf("item %d (%s): %d points, want %d", i, it.Kind, len(it.Points), want)
		case want < 0 && len(it.Points) < -want:
			return fmt.Errorf("item %d (%s): %d points, want at least %d", i, it.Kind, len(it.Points), -want)
		case len(it.Points) > maxPoints:
			return fmt.Errorf("item %d (%s): %d points, at most %d supported", i, it.Kind, len(it.Points), maxPoints)
		case it.Segments >= maxPoints:
			return fmt.Errorf("item %d (%s): %d segments, at most %d supported", i, it.Kind, it.Segments, maxPoints-1)
		}
		if it.Kind == "rect_multicolor" {
			if len(it.Colors) != 4 {
				return fmt.Errorf("item %d (rect_multicolor): %d colors, want 4", i, len(it.Colors))
			}
			for _, c := range it.Colors {
				if _, err := parseColor(c); err != nil {
					return fmt.Errorf("item %d (rect_multicolor): %w", i, err)
				}
			}
		}
		if it.Kind == "sprite" && !names[it.Texture] {
			return fmt.Errorf("item %d (sprite): unknown texture %q", i, it.Texture)
		}
		if _, err := parseColor(it.Color); err != nil {
			return fmt.Errorf("item %d (%s): %w", i, it.Kind, err)
		}
		if _, err := parseCorners(it.Corners); err != nil {
			return fmt.Errorf("item %d (%s): %w", i, it.Kind, err)
		}
		if _, err := parseBlend(it.Blend); err != nil {
			return fmt.Errorf("item %d (%s): %w", i, it.Kind, err)
		}
	}
	if _, err := parseColor(s.Background); err != nil {
		return fmt.Errorf("background: %w", err)
	}
	return nil
}

// parseColor parses "#rrggbb" or "#rrggbbaa". Empty is opaque white.
func parseColor(s string) (imdraw.Color, error) {
	if s == "" {
		return imdraw.White, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return 0, fmt.Errorf("color %q: want #rrggbb or #rrggbbaa", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q: %w", s, err)
	}
	return imdraw.RGBA8(uint8(v>>24), uint8(v>>16), uint8(v>>8), uint8(v)), nil
}

func parseCorners(s string) (imdraw.Corner, error) {
	switch s {
	case "", "all":
		return imdraw.CornerAll, nil
	case "none":
		return imdraw.CornerNone, nil
	case "top":
		return imdraw.CornerTop, nil
	case "bottom":
		return imdraw.CornerBottom, nil
	case "left":
		return imdraw.CornerLeft, nil
	case "right":
		return imdraw.CornerRight, nil
	}
	return 0, fmt.Errorf("unknown corners %q", s)
}

func parseBlend(s string) (device.BlendState, error) {
	switch s {
	case "", "alpha":
		return device.BlendAlpha, nil
	case "additive":
		return device.BlendAdditive, nil
	case "opaque":
		return device.BlendOpaque, nil
	case "premultiplied":
		return device.BlendPremultiplied, nil
	}
	return device.BlendState{}, fmt.Errorf("unknown blend %q", s)
}

func vec(p [2]float32) imdraw.Vec2 { return imdraw.V2(p[0], p[1]) }

func vecs(ps [][2]float32) []imdraw.Vec2 {
	out := make([]imdraw.Vec2, len(ps))
	for i, p := range ps {
		out[i] = vec(p)
	}
	return out
}

// loadTextures decodes the scene textures onto dev.
func (s *Scene) loadTextures(dev *soft.Device) (map[string]device.Texture, error) {
	textures := make(map[string]device.Texture, len(s.Textures))
	for _, ts := range s.Textures {
		path := ts.Path
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.dir, path)
		}
		img, err := imaging.Open(path)
		if err != nil {
			return nil, fmt.Errorf("texture %q: %w", ts.Name, err)
		}
		if ts.Width > 0 || ts.Height > 0 {
			img = imaging.Resize(img, ts.Width, ts.Height, imaging.Lanczos)
		}
		textures[ts.Name] = dev.NewTexture(img)
	}
	return textures, nil
}

// Draw records every item into dc. Colors, corners and blend modes were
// checked by validate.
func (s *Scene) Draw(dc *imdraw.DrawContext, textures map[string]device.Texture) {
	g := dc.Geometry()
	for _, it := range s.Items {
		col, _ := parseColor(it.Color)
		corners, _ := parseCorners(it.Corners)
		blend, _ := parseBlend(it.Blend)
		dc.SetBlendState(blend)
		thickness := it.Thickness
		if thickness <= 0 {
			thickness = 1
		}

		switch it.Kind {
		case "sprite":
			scale := imdraw.V2(1, 1)
			if it.Scale != nil {
				scale = vec(*it.Scale)
			}
			uv := imdraw.FullUV
			if it.UV != nil {
				uv = imdraw.R(it.UV[0], it.UV[1], it.UV[2], it.UV[3])
			}
			dc.SetTexture(textures[it.Texture])
			dc.AddSprite(vec(it.Pos), scale, col, uv)
		case "rect":
			g.AddRect(vec(it.Min), vec(it.Max), col, it.Rounding, corners, thickness)
		case "rect_filled":
			g.AddRectFilled(vec(it.Min), vec(it.Max), col, it.Rounding, corners)
		case "rect_multicolor":
			var cs [4]imdraw.Color
			for i, c := range it.Colors {
				cs[i], _ = parseColor(c)
			}
			g.AddRectFilledMultiColor(vec(it.Min), vec(it.Max), cs[0], cs[1], cs[2], cs[3])
		case "circle":
			g.AddCircle(vec(it.Center), it.Radius, col, it.Segments, thickness)
		case "circle_filled":
			g.AddCircleFilled(vec(it.Center), it.Radius, col, it.Segments)
		case "line":
			g.AddLine(vec(it.Points[0]), vec(it.Points[1]), col, thickness)
		case "triangle":
			a, b, c := vec(it.Points[0]), vec(it.Points[1]), vec(it.Points[2])
			if it.Thickness > 0 {
				g.AddTriangle(a, b, c, col, thickness)
			} else {
				g.AddTriangleFilled(a, b, c, col)
			}
		case "quad":
			p := it.Points
			a, b, c, d := vec(p[0]), vec(p[1]), vec(p[2]), vec(p[3])
			if it.Thickness > 0 {
				g.AddQuad(a, b, c, d, col, thickness)
			} else {
				g.AddQuadFilled(a, b, c, d, col)
			}
		case "polyline":
			g.AddPolyline(vecs(it.Points), col, it.Closed, thickness, dc.Options().AntiAliasedLines)
		case "convex_filled":
			g.AddConvexPolyFilled(vecs(it.Points), col, dc.Options().AntiAliasedFill)
		case "bezier":
			p := it.Points
			g.AddBezierCurve(vec(p[0]), vec(p[1]), vec(p[2]), vec(p[3]), col, thickness, it.Segments)
		}
	}
}
