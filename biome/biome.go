// Package biome samples a body's biome classification raster.
//
// A Map is an equirectangular colour raster plus a palette of attributes.
// Sampling converts latitude/longitude to texture coordinates, reads the
// raster with bilinear filtering and resolves the resulting colour to the
// closest attribute.
package biome

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strconv"
)

// NoData is the label used when a body carries no biome raster.
const NoData = "N/A"

// ErrEmptyRaster is returned when a map is built without pixels.
var ErrEmptyRaster = errors.New("biome raster has no pixels")

// Color is a linear RGBA colour with components in [0,1].
type Color struct {
	R, G, B, A float64
}

// Lerp interpolates between c and o by t.
func (c Color) Lerp(o Color, t float64) Color {
	return Color{
		R: c.R + (o.R-c.R)*t,
		G: c.G + (o.G-c.G)*t,
		B: c.B + (o.B-c.B)*t,
		A: c.A + (o.A-c.A)*t,
	}
}

// SqrDistance is the squared RGB distance; alpha is ignored.
func (c Color) SqrDistance(o Color) float64 {
	dr := c.R - o.R
	dg := c.G - o.G
	db := c.B - o.B
	return dr*dr + dg*dg + db*db
}

// ParseHex reads "#rrggbb" or "rrggbb".
func ParseHex(s string) (Color, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return Color{}, fmt.Errorf("biome colour %q: want 6 hex digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("biome colour %q: %w", s, err)
	}
	r, g, b := (v>>16)&0xff, (v>>8)&0xff, v&0xff
	return Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255, A: 1}, nil
}

// Attribute is one palette entry.
type Attribute struct {
	Name  string
	Color Color
	Value float64
}

// Map is an immutable biome raster. Build it with New or FromImage.
type Map struct {
	width, height int
	pixels        []Color // row-major, row 0 is the north pole

	attributes []Attribute
	defaultIdx int

	// ExactSearch requires an exact palette colour match; otherwise the
	// nearest colour wins.
	ExactSearch bool
	// NonExactThreshold, when positive, rejects nearest matches whose squared
	// distance exceeds it in favour of the default attribute.
	NonExactThreshold float64
}

// New builds a map from row-major pixels. defaultIdx selects the fallback
// attribute; an out-of-range index selects the first attribute.
func New(width, height int, pixels []Color, attrs []Attribute, defaultIdx int) (*Map, error) {
	if width <= 0 || height <= 0 || len(pixels) == 0 {
		return nil, ErrEmptyRaster
	}
	if len(pixels) != width*height {
		return nil, fmt.Errorf("biome raster: got %d pixels for %dx%d", len(pixels), width, height)
	}
	if len(attrs) == 0 {
		return nil, errors.New("biome raster: palette is empty")
	}
	if defaultIdx < 0 || defaultIdx >= len(attrs) {
		defaultIdx = 0
	}
	return &Map{
		width:      width,
		height:     height,
		pixels:     append([]Color(nil), pixels...),
		attributes: append([]Attribute(nil), attrs...),
		defaultIdx: defaultIdx,
	}, nil
}

// FromImage reads an equirectangular image into a map.
func FromImage(img image.Image, attrs []Attribute, defaultIdx int) (*Map, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pixels := make([]Color, 0, w*h)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			pixels = append(pixels, Color{
				R: float64(r) / 0xffff,
				G: float64(g) / 0xffff,
				B: float64(bl) / 0xffff,
				A: float64(a) / 0xffff,
			})
		}
	}
	return New(w, h, pixels, attrs, defaultIdx)
}

// Size returns the raster dimensions.
func (m *Map) Size() (int, int) { return m.width, m.height }

// Attributes returns a copy of the palette.
func (m *Map) Attributes() []Attribute { return append([]Attribute(nil), m.attributes...) }

// DefaultAttribute is the fallback palette entry.
func (m *Map) DefaultAttribute() Attribute { return m.attributes[m.defaultIdx] }

// At resolves latitude and longitude (radians) to an attribute.
func (m *Map) At(lat, lon float64) Attribute {
	u, v := TexCoords(lat, lon)
	return m.Match(m.Bilinear(u, v))
}

// TexCoords maps latitude/longitude in radians to texture coordinates in
// [0,1). Longitude zero sits a quarter turn into the texture.
func TexCoords(lat, lon float64) (u, v float64) {
	lon -= math.Pi / 2
	lon = math.Mod(lon, 2*math.Pi)
	if lon < 0 {
		lon += 2 * math.Pi
	}
	u = 1 - lon/(2*math.Pi)
	if u >= 1 {
		u -= 1
	}
	v = 0.5 - lat/math.Pi
	return u, clamp01(v)
}

// Bilinear samples the raster at (u,v). u wraps horizontally, v clamps.
func (m *Map) Bilinear(u, v float64) Color {
	x := u*float64(m.width) - 0.5
	y := v*float64(m.height) - 0.5

	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	fx := x - float64(x0)
	fy := y - float64(y0)

	c00 := m.pixel(x0, y0)
	c10 := m.pixel(x0+1, y0)
	c01 := m.pixel(x0, y0+1)
	c11 := m.pixel(x0+1, y0+1)

	top := c00.Lerp(c10, fx)
	bottom := c01.Lerp(c11, fx)
	return top.Lerp(bottom, fy)
}

// Match resolves a colour to a palette attribute.
func (m *Map) Match(c Color) Attribute {
	if m.ExactSearch {
		for _, att := range m.attributes {
			if att.Color.R == c.R && att.Color.G == c.G && att.Color.B == c.B {
				return att
			}
		}
		return m.DefaultAttribute()
	}

	best := -1
	bestDist := math.MaxFloat64
	for i, att := range m.attributes {
		d := att.Color.SqrDistance(c)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	if best < 0 {
		return m.DefaultAttribute()
	}
	if m.NonExactThreshold > 0 && bestDist > m.NonExactThreshold {
		return m.DefaultAttribute()
	}
	return m.attributes[best]
}

func (m *Map) pixel(x, y int) Color {
	x %= m.width
	if x < 0 {
		x += m.width
	}
	if y < 0 {
		y = 0
	} else if y >= m.height {
		y = m.height - 1
	}
	return m.pixels[y*m.width+x]
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v >= 1 {
		return math.Nextafter(1, 0)
	}
	return v
}
