package render

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
	"golang.org/x/image/math/f64"
)

// MatSurface is a Surface that draws onto a GoCV Mat.  OpenCV has no notion
// of a translucent stroke, so lines are drawn opaque on to an overlay copy of
// the image which is then alpha blended back on to the destination.  Lines of
// the same alpha share one overlay, blending happens when a line of a
// different alpha is drawn and on Flush.
type MatSurface struct {
	dst     *gocv.Mat
	overlay gocv.Mat
	stroke  StrokeStyle
	// dirty is set when lines have been drawn on the overlay that have not
	// yet been blended on to dst
	dirty bool
	// alpha is the blend factor of the pending overlay lines
	alpha float64
	// blends counts overlays blended on to dst
	blends int
}

// NewMatSurface returns a Surface drawing on to the given Mat.  Close must
// be called to blend any pending lines and free the overlay.
func NewMatSurface(dst *gocv.Mat) *MatSurface {
	return &MatSurface{
		dst:     dst,
		overlay: gocv.NewMat(),
		stroke:  DefaultStrokeStyle(),
	}
}

// Stroke returns the current stroke style
func (s *MatSurface) Stroke() StrokeStyle {
	return s.stroke
}

// SetStroke sets the stroke style used for subsequent lines
func (s *MatSurface) SetStroke(style StrokeStyle) {
	s.stroke = style
}

// Line strokes a line between a and b using the current stroke style
func (s *MatSurface) Line(a, b f64.Vec2) {

	if s.stroke.Width <= 0 || s.stroke.Color.A == 0 {
		return
	}

	alpha := float64(s.stroke.Color.A) / 255

	// lines of differing transparency can not share an overlay
	if s.dirty && alpha != s.alpha {
		s.Flush()
	}

	if !s.dirty {
		s.dst.CopyTo(&s.overlay)
		s.alpha = alpha
		s.dirty = true
	}

	clr := color.RGBA{R: s.stroke.Color.R, G: s.stroke.Color.G, B: s.stroke.Color.B, A: 255}
	thickness := int(math.Max(1, math.Round(s.stroke.Width)))

	gocv.Line(&s.overlay,
		image.Pt(int(math.Round(a[0])), int(math.Round(a[1]))),
		image.Pt(int(math.Round(b[0])), int(math.Round(b[1]))),
		clr, thickness,
	)
}

// Flush blends any pending overlay lines on to the destination Mat
func (s *MatSurface) Flush() {

	if !s.dirty {
		return
	}

	gocv.AddWeighted(*s.dst, 1-s.alpha, s.overlay, s.alpha, 0, s.dst)
	s.dirty = false
	s.blends++
}

// Close flushes pending lines and frees the overlay Mat
func (s *MatSurface) Close() error {
	s.Flush()
	return s.overlay.Close()
}
