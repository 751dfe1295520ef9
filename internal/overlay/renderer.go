package overlay

import (
	"SnapSight/internal/entity"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Layout constants. The text background height, per-letter width and the
// fixed confidence-suffix allowance must stay in sync with each other or
// the label background no longer fits the drawn text.
const (
	textBgHeight = 14
	padding      = 2
	letterWidth  = 7.25
	scoreWidth   = 4 * letterWidth
	outlineWidth = 2
)

// maskAlpha is 70% opacity of the #565656 zone mask.
var maskColor = color.NRGBA{R: 0x56, G: 0x56, B: 0x56, A: 178}

var textColor = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}

// Surfaces are the two drawing layers of one render pass: the annotated
// image and the zone mask above it. The mask is fully opaque except where
// a detection punched a hole through it.
type Surfaces struct {
	Image *image.NRGBA
	Zones *image.NRGBA
}

// Renderer paints detection overlays. It holds no cross-call state; every
// Render call produces fresh surfaces from its inputs alone.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render draws every detection with score strictly above threshold onto a
// copy of src. Paint order per detection: box outline, label background,
// label text, then the mask clearing over the label and the box interior.
func (r *Renderer) Render(src image.Image, detections []entity.Detection, threshold float64) *Surfaces {
	bounds := src.Bounds()

	img := image.NewNRGBA(bounds)
	draw.Draw(img, bounds, src, bounds.Min, draw.Src)

	zones := image.NewNRGBA(bounds)
	draw.Draw(zones, bounds, image.NewUniform(maskColor), image.Point{}, draw.Src)

	surfaces := &Surfaces{Image: img, Zones: zones}

	for _, d := range detections {
		if d.Score > threshold {
			r.drawDetection(surfaces, d)
		}
	}

	return surfaces
}

func (r *Renderer) drawDetection(s *Surfaces, d entity.Detection) {
	bounds := s.Image.Bounds()
	surfaceW := float64(bounds.Dx())
	surfaceH := float64(bounds.Dy())

	x := int(math.Floor(d.Box.XMin * surfaceW))
	y := int(math.Floor(d.Box.YMin * surfaceH))
	w := int(math.Floor((d.Box.XMax - d.Box.XMin) * surfaceW))
	h := int(math.Floor((d.Box.YMax - d.Box.YMin) * surfaceH))

	style := StyleFor(d.Label)
	text := labelText(d.Label, d.Score)
	labelWidth := int(float64(len(d.Label))*letterWidth + scoreWidth + padding*2)

	r.strokeRect(s.Image, x, y, w, h, style.BgColor)
	r.fillRect(s.Image, x, y+h-textBgHeight, labelWidth, textBgHeight, style.BgColor)
	r.drawText(s.Image, text, x+padding, y+h-padding)
	r.clearZone(s.Zones, x+5, y+h-textBgHeight-4, labelWidth, textBgHeight)
	r.clearZone(s.Zones, x, y, w, h)
}

// labelText truncates the confidence, so a 0.999 score reads "99%".
func labelText(label string, score float64) string {
	return fmt.Sprintf("%s %d%%", label, int(math.Floor(score*100)))
}

func (r *Renderer) strokeRect(img *image.NRGBA, x, y, w, h int, c color.NRGBA) {
	r.fillRect(img, x, y, w, outlineWidth, c)
	r.fillRect(img, x, y+h-outlineWidth, w, outlineWidth, c)
	r.fillRect(img, x, y, outlineWidth, h, c)
	r.fillRect(img, x+w-outlineWidth, y, outlineWidth, h, c)
}

func (r *Renderer) fillRect(img *image.NRGBA, x, y, w, h int, c color.NRGBA) {
	rect := image.Rect(x, y, x+w, y+h).Intersect(img.Bounds())
	draw.Draw(img, rect, image.NewUniform(c), image.Point{}, draw.Src)
}

// drawText draws white text with its baseline at (x, y), matching canvas
// fillText semantics.
func (r *Renderer) drawText(img *image.NRGBA, text string, x, y int) {
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(text)
}

// clearZone punches a transparent hole through the mask, inflated so the
// box outline stays visible around the revealed area.
func (r *Renderer) clearZone(zones *image.NRGBA, x, y, w, h int) {
	rect := image.Rect(x-3, y-6, x-3+w+6, y-6+h+6).Intersect(zones.Bounds())
	draw.Draw(zones, rect, image.Transparent, image.Point{}, draw.Src)
}
