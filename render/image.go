package render

import (
	"image"

	clipper "github.com/ctessum/go.clipper"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"
	"gonum.org/v1/gonum/spatial/r2"
)

// fixedScale is the multiplier used to convert floating point pixel
// coordinates to the integer coordinates clipper works in, keeping sub pixel
// precision of the stroke outline
const fixedScale = 64

// ImageSurface is a Surface that draws onto an in memory RGBA image.  Lines
// are outlined as round capped polygons using Clipper and then rasterized with
// anti-aliasing and alpha composited over the existing pixels.
type ImageSurface struct {
	img    *image.RGBA
	stroke StrokeStyle
}

// NewImageSurface returns a Surface drawing on to the given image
func NewImageSurface(img *image.RGBA) *ImageSurface {
	return &ImageSurface{
		img:    img,
		stroke: DefaultStrokeStyle(),
	}
}

// Image returns the underlying image being drawn on
func (s *ImageSurface) Image() *image.RGBA {
	return s.img
}

// Stroke returns the current stroke style
func (s *ImageSurface) Stroke() StrokeStyle {
	return s.stroke
}

// SetStroke sets the stroke style used for subsequent lines
func (s *ImageSurface) SetStroke(style StrokeStyle) {
	s.stroke = style
}

// Line strokes a line between a and b using the current stroke style
func (s *ImageSurface) Line(a, b f64.Vec2) {

	if s.stroke.Width <= 0 || s.stroke.Color.A == 0 {
		return
	}

	// zero length lines have no direction to stroke along
	if r2.Norm(r2.Sub(r2.Vec{X: b[0], Y: b[1]}, r2.Vec{X: a[0], Y: a[1]})) == 0 {
		return
	}

	path := clipper.Path{
		&clipper.IntPoint{X: clipper.CInt(a[0] * fixedScale), Y: clipper.CInt(a[1] * fixedScale)},
		&clipper.IntPoint{X: clipper.CInt(b[0] * fixedScale), Y: clipper.CInt(b[1] * fixedScale)},
	}

	// offset the open path by half the stroke width on each side to get the
	// outline of the stroke with round end caps
	co := clipper.NewClipperOffset()
	co.AddPath(path, clipper.JtRound, clipper.EtOpenRound)
	outline := co.Execute(s.stroke.Width / 2 * fixedScale)

	bounds := s.img.Bounds()
	minX := float32(bounds.Min.X)
	minY := float32(bounds.Min.Y)

	ras := vector.NewRasterizer(bounds.Dx(), bounds.Dy())

	for _, poly := range outline {
		if len(poly) < 3 {
			continue
		}

		for i, pt := range poly {
			x := float32(float64(pt.X)/fixedScale) - minX
			y := float32(float64(pt.Y)/fixedScale) - minY

			if i == 0 {
				ras.MoveTo(x, y)
			} else {
				ras.LineTo(x, y)
			}
		}

		ras.ClosePath()
	}

	ras.Draw(s.img, bounds, image.NewUniform(s.stroke.Color), image.Point{})
}
