package render

import (
	"github.com/swdee/go-repose/pose"
)

// Connection strokes a single pose connection on to the surface.  Both
// endpoints are mapped through the transform (nil is the identity) and the
// line width is the connection base width multiplied by scale.  The surface
// stroke style is restored before returning, even if drawing panics.
func Connection(s Surface, c pose.Connection, t *pose.Transform, scale float64) {

	start, end := c.Endpoints(t)

	prev := s.Stroke()
	defer s.SetStroke(prev)

	s.SetStroke(StrokeStyle{
		Width: pose.ConnectionWidth * scale,
		Color: pose.ConnectionColor(),
	})

	s.Line(start, end)
}
