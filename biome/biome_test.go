package biome

import (
	"image"
	"image/color"
	"math"
	"testing"
)

var (
	red   = Color{R: 1, A: 1}
	green = Color{G: 1, A: 1}
	blue  = Color{B: 1, A: 1}
)

func testPalette() []Attribute {
	return []Attribute{
		{Name: "Highlands", Color: red},
		{Name: "Lowlands", Color: green},
		{Name: "Water", Color: blue},
	}
}

func mustMap(t *testing.T, w, h int, px []Color, def int) *Map {
	t.Helper()
	m, err := New(w, h, px, testPalette(), def)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func TestBilinearAtPixelCentres(t *testing.T) {
	m := mustMap(t, 2, 2, []Color{red, green, blue, red}, 0)

	cases := []struct {
		x, y int
		want Color
	}{
		{0, 0, red}, {1, 0, green}, {0, 1, blue}, {1, 1, red},
	}
	for _, tc := range cases {
		u := (float64(tc.x) + 0.5) / 2
		v := (float64(tc.y) + 0.5) / 2
		if got := m.Bilinear(u, v); got != tc.want {
			t.Fatalf("Bilinear(%v,%v) = %+v, want %+v", u, v, got, tc.want)
		}
	}
}

func TestBilinearBlendsNeighbours(t *testing.T) {
	m := mustMap(t, 2, 1, []Color{red, green}, 0)

	// Halfway between the two pixel centres.
	got := m.Bilinear(0.5, 0.5)
	if math.Abs(got.R-0.5) > 1e-9 || math.Abs(got.G-0.5) > 1e-9 {
		t.Fatalf("expected an even blend, got %+v", got)
	}
}

func TestBilinearWrapsHorizontally(t *testing.T) {
	m := mustMap(t, 2, 1, []Color{red, green}, 0)

	// u=0 is halfway between the last and first pixel centres.
	got := m.Bilinear(0, 0.5)
	if math.Abs(got.R-0.5) > 1e-9 || math.Abs(got.G-0.5) > 1e-9 {
		t.Fatalf("expected wrap-around blend, got %+v", got)
	}
}

func TestMatchNearest(t *testing.T) {
	m := mustMap(t, 1, 1, []Color{red}, 2)

	if got := m.Match(Color{R: 0.8, G: 0.1}); got.Name != "Highlands" {
		t.Fatalf("nearest match = %q, want Highlands", got.Name)
	}
}

func TestMatchExactFallsBackToDefault(t *testing.T) {
	m := mustMap(t, 1, 1, []Color{red}, 2)
	m.ExactSearch = true

	if got := m.Match(red); got.Name != "Highlands" {
		t.Fatalf("exact match = %q, want Highlands", got.Name)
	}
	if got := m.Match(Color{R: 0.9}); got.Name != "Water" {
		t.Fatalf("exact miss should yield default Water, got %q", got.Name)
	}
}

func TestMatchThresholdRejectsDistantColours(t *testing.T) {
	m := mustMap(t, 1, 1, []Color{red}, 1)
	m.NonExactThreshold = 0.05

	if got := m.Match(Color{R: 0.9}); got.Name != "Highlands" {
		t.Fatalf("close colour should match Highlands, got %q", got.Name)
	}
	if got := m.Match(Color{R: 0.5, G: 0.5, B: 0.5}); got.Name != "Lowlands" {
		t.Fatalf("distant colour should yield default Lowlands, got %q", got.Name)
	}
}

func TestAtUniformRaster(t *testing.T) {
	m := mustMap(t, 4, 2, []Color{green, green, green, green, green, green, green, green}, 0)

	for _, ll := range [][2]float64{{0, 0}, {math.Pi / 4, -math.Pi}, {-math.Pi / 2, 3}} {
		if got := m.At(ll[0], ll[1]); got.Name != "Lowlands" {
			t.Fatalf("At(%v) = %q, want Lowlands", ll, got.Name)
		}
	}
}

func TestAtSplitsHemispheres(t *testing.T) {
	// Northern row red, southern row blue.
	m := mustMap(t, 1, 2, []Color{red, blue}, 0)

	if got := m.At(80*math.Pi/180, 0); got.Name != "Highlands" {
		t.Fatalf("north = %q, want Highlands", got.Name)
	}
	if got := m.At(-80*math.Pi/180, 0); got.Name != "Water" {
		t.Fatalf("south = %q, want Water", got.Name)
	}
}

func TestTexCoordsRange(t *testing.T) {
	for lon := -4 * math.Pi; lon <= 4*math.Pi; lon += 0.37 {
		u, v := TexCoords(0.3, lon)
		if u < 0 || u >= 1 || v < 0 || v >= 1 {
			t.Fatalf("TexCoords(0.3, %v) = (%v, %v) out of range", lon, u, v)
		}
	}
}

func TestNewRejectsBadInput(t *testing.T) {
	if _, err := New(0, 0, nil, testPalette(), 0); err != ErrEmptyRaster {
		t.Fatalf("expected ErrEmptyRaster, got %v", err)
	}
	if _, err := New(2, 2, []Color{red}, testPalette(), 0); err == nil {
		t.Fatalf("expected size mismatch error")
	}
	if _, err := New(1, 1, []Color{red}, nil, 0); err == nil {
		t.Fatalf("expected empty palette error")
	}
}

func TestFromImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(1, 0, color.RGBA{B: 255, A: 255})

	m, err := FromImage(img, testPalette(), 0)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	if w, h := m.Size(); w != 2 || h != 1 {
		t.Fatalf("Size = %dx%d", w, h)
	}
	if got := m.Match(m.Bilinear(0.75, 0.5)); got.Name != "Water" {
		t.Fatalf("right pixel = %q, want Water", got.Name)
	}
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#ff0000")
	if err != nil {
		t.Fatalf("ParseHex: %v", err)
	}
	if c != red {
		t.Fatalf("ParseHex = %+v, want %+v", c, red)
	}
	if _, err := ParseHex("12"); err == nil {
		t.Fatalf("expected length error")
	}
}
