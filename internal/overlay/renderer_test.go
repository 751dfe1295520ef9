package overlay

import (
	"SnapSight/internal/entity"
	"bytes"
	"image"
	"image/color"
	"testing"
)

func testImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	fill := color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xFF}
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = fill.R
		img.Pix[i+1] = fill.G
		img.Pix[i+2] = fill.B
		img.Pix[i+3] = fill.A
	}
	return img
}

func detection(label string, score float64) entity.Detection {
	return entity.Detection{
		Box:   entity.DetectionBox{XMin: 0.1, XMax: 0.3, YMin: 0.2, YMax: 0.5},
		Label: label,
		Score: score,
	}
}

func TestRenderExcludesBoundaryScore(t *testing.T) {
	r := NewRenderer()
	src := testImage(200, 100)

	s := r.Render(src, []entity.Detection{detection("person", 0.5)}, 0.5)

	// Box center on a 200x100 surface is (40, 35); with score == threshold
	// the mask must stay intact there.
	if got := s.Zones.NRGBAAt(40, 35); got != maskColor {
		t.Fatalf("mask at box center = %v, want %v", got, maskColor)
	}
}

func TestRenderClearsZoneAboveThreshold(t *testing.T) {
	r := NewRenderer()
	src := testImage(200, 100)

	s := r.Render(src, []entity.Detection{detection("person", 0.51)}, 0.5)

	if got := s.Zones.NRGBAAt(40, 35); got.A != 0 {
		t.Fatalf("mask at box center = %v, want transparent", got)
	}
	// Far corner stays masked.
	if got := s.Zones.NRGBAAt(190, 90); got != maskColor {
		t.Fatalf("mask at far corner = %v, want %v", got, maskColor)
	}
}

func TestRenderBoxGeometry(t *testing.T) {
	r := NewRenderer()
	src := testImage(200, 100)

	// xMin 0.1, yMin 0.2 on 200x100 puts the box at x=20, y=20, w=40, h=30.
	s := r.Render(src, []entity.Detection{detection("person", 0.9)}, 0.5)

	want := StyleFor("person").BgColor
	if got := s.Image.NRGBAAt(20, 20); got != want {
		t.Fatalf("outline pixel at (20,20) = %v, want %v", got, want)
	}
	if got := s.Image.NRGBAAt(59, 35); got != want {
		t.Fatalf("outline pixel at right edge = %v, want %v", got, want)
	}

	// The clearing is inflated by the outline margin.
	if got := s.Zones.NRGBAAt(18, 15); got.A != 0 {
		t.Fatalf("inflated clear zone = %v, want transparent", got)
	}
	if got := s.Zones.NRGBAAt(10, 10); got != maskColor {
		t.Fatalf("outside clear zone = %v, want %v", got, maskColor)
	}
}

func TestRenderUnknownLabelFallsBack(t *testing.T) {
	r := NewRenderer()
	src := testImage(200, 100)

	s := r.Render(src, []entity.Detection{detection("unicorn", 0.9)}, 0.5)

	want := color.NRGBA{A: 0xFF}
	if got := s.Image.NRGBAAt(20, 20); got != want {
		t.Fatalf("outline pixel = %v, want fallback %v", got, want)
	}
}

func TestRenderIsPure(t *testing.T) {
	r := NewRenderer()
	src := testImage(200, 100)
	detections := []entity.Detection{
		detection("person", 0.9),
		detection("car", 0.7),
	}

	first := r.Render(src, detections, 0.5)
	second := r.Render(src, detections, 0.5)

	if !bytes.Equal(first.Image.Pix, second.Image.Pix) {
		t.Fatal("image surfaces differ across identical renders")
	}
	if !bytes.Equal(first.Zones.Pix, second.Zones.Pix) {
		t.Fatal("zone surfaces differ across identical renders")
	}
}

func TestLabelText(t *testing.T) {
	cases := []struct {
		label string
		score float64
		want  string
	}{
		{"person", 0.999, "person 99%"},
		{"person", 1, "person 100%"},
		{"car", 0.5, "car 50%"},
		{"dog", 0.049, "dog 4%"},
	}
	for _, tc := range cases {
		if got := labelText(tc.label, tc.score); got != tc.want {
			t.Errorf("labelText(%q, %v) = %q, want %q", tc.label, tc.score, got, tc.want)
		}
	}
}
