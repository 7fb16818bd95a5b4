package pose

import (
	"image/color"
)

// ConnectionWidth is the base stroke width of a connection line in pixels
// before scaling
const ConnectionWidth = 12.0

// connectionColor is the translucent lime (#A6FF04 at 65%)
var connectionColor = color.NRGBA{R: 166, G: 255, B: 4, A: 166}

// ConnectionColor returns the color all connection lines are drawn in
func ConnectionColor() color.NRGBA {
	return connectionColor
}

// Connection is the line between two landmarks.  The order of the points is
// not important, a connection from A to B renders the same as B to A.
type Connection struct {
	point1 Point
	point2 Point
}

// NewConnection returns a connection between two points
func NewConnection(one, two Point) Connection {
	return Connection{point1: one, point2: two}
}

// Endpoints returns the two points of the connection after applying the
// transform.  A nil transform is treated as the identity.
func (c Connection) Endpoints(t *Transform) (Point, Point) {
	return t.Apply(c.point1), t.Apply(c.point2)
}

// Equal reports whether both connections join the same two points,
// irrespective of order
func (c Connection) Equal(o Connection) bool {
	return (c.point1 == o.point1 && c.point2 == o.point2) ||
		(c.point1 == o.point2 && c.point2 == o.point1)
}
