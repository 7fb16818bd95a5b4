package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Alignment is the horizontal position of a banner across the image
type Alignment int

const (
	Left   Alignment = 1
	Center Alignment = 2
	Right  Alignment = 3
)

// Font defines the text style and padding of a banner rendered with GoCV
type Font struct {
	Face      gocv.HersheyFont
	Scale     float64
	Color     color.RGBA
	Thickness int
	LineType  gocv.LineType
	// Padding between the text and the edge of the banner box
	LeftPad   int
	RightPad  int
	TopPad    int
	BottomPad int
	// Alignment of the banner across the width of the image
	Alignment Alignment
}

// DefaultFont returns the banner font settings:
// - Face: Hershey Simplex
// - Scale: 0.8
// - Color: White
// - Thickness: 2
// - Padding: 12 left and right, 10 top, 12 bottom
// - Alignment: Center
func DefaultFont() Font {
	return Font{
		Face:      gocv.FontHersheySimplex,
		Scale:     0.8,
		Color:     White,
		Thickness: 2,
		LineType:  gocv.LineAA,
		LeftPad:   12,
		RightPad:  12,
		TopPad:    10,
		BottomPad: 12,
		Alignment: Center,
	}
}

// BoxSize returns the size of the padded box text is rendered in and the
// size of the text itself
func (f Font) BoxSize(text string) (box, textSize image.Point) {

	textSize = gocv.GetTextSize(text, f.Face, f.Scale, f.Thickness)

	box = image.Pt(textSize.X+f.LeftPad+f.RightPad,
		textSize.Y+f.TopPad+f.BottomPad)

	return box, textSize
}

// alignLeft returns the left edge of a box of width boxW aligned within an
// image of the given width, margin pixels in from the edge it is aligned to
func (f Font) alignLeft(width, boxW, margin int) int {

	switch f.Alignment {
	case Left:
		return margin

	case Right:
		return width - boxW - margin

	default:
		return (width - boxW) / 2
	}
}
