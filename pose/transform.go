package pose

import (
	"golang.org/x/image/math/f64"
)

// Transform is an affine transform in row major order with an implicit
// bottom row of [0 0 1], mapping x,y to (a*x + b*y + c, d*x + e*y + f)
type Transform f64.Aff3

// Scale returns a transform scaling x by sx and y by sy with no translation.
// Scale(width, height) maps unit coordinates on to an image of that size.
func Scale(sx, sy float64) Transform {
	return Transform{sx, 0, 0, 0, sy, 0}
}

// Apply transforms the point.  A nil transform returns the point unchanged.
func (t *Transform) Apply(p Point) Point {

	if t == nil {
		return p
	}

	return Point{
		t[0]*p[0] + t[1]*p[1] + t[2],
		t[3]*p[0] + t[4]*p[1] + t[5],
	}
}
