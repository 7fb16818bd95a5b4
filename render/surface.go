package render

import (
	"image/color"

	"golang.org/x/image/math/f64"
)

// StrokeStyle defines the line parameters a Surface uses when stroking
type StrokeStyle struct {
	// Width is the line thickness in pixels
	Width float64
	// Color is the stroke color, the alpha channel is honoured so lines
	// may be drawn translucent over the underlying image
	Color color.NRGBA
}

// DefaultStrokeStyle returns the stroke style a Surface starts with
func DefaultStrokeStyle() StrokeStyle {
	return StrokeStyle{
		Width: 1,
		Color: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// Surface is a drawing target that strokes straight lines in pixel
// coordinates using its current stroke style.  Callers that change the
// stroke style are expected to restore the previous one when done.
type Surface interface {
	// Stroke returns the current stroke style
	Stroke() StrokeStyle
	// SetStroke replaces the current stroke style
	SetStroke(style StrokeStyle)
	// Line strokes a straight line from a to b.  Points outside of the
	// surface are clipped.
	Line(a, b f64.Vec2)
}
