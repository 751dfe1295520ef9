package overlay

import "image/color"

// LabelStyle holds the display color for one detection label.
type LabelStyle struct {
	BgColor color.NRGBA
}

var labelStyles = map[string]LabelStyle{
	"person":  {BgColor: color.NRGBA{R: 0x1E, G: 0x88, B: 0xE5, A: 0xFF}},
	"car":     {BgColor: color.NRGBA{R: 0x43, G: 0xA0, B: 0x47, A: 0xFF}},
	"bicycle": {BgColor: color.NRGBA{R: 0xFB, G: 0x8C, B: 0x00, A: 0xFF}},
	"dog":     {BgColor: color.NRGBA{R: 0x8E, G: 0x24, B: 0xAA, A: 0xFF}},
	"cat":     {BgColor: color.NRGBA{R: 0xE5, G: 0x39, B: 0x35, A: 0xFF}},
}

var fallbackStyle = LabelStyle{BgColor: color.NRGBA{A: 0xFF}}

// StyleFor returns the configured style for a label, or the black fallback
// for unknown labels.
func StyleFor(label string) LabelStyle {
	if style, ok := labelStyles[label]; ok {
		return style
	}
	return fallbackStyle
}
