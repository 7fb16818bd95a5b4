package render

import (
	"github.com/swdee/go-repose/pose"
)

// PoseWireframe draws the skeleton of a single pose by connecting the joint
// pairs of the fixed topology.  Pairs with a joint missing from the pose are
// skipped.  It returns the number of connections drawn.
func PoseWireframe(s Surface, p pose.Pose, t *pose.Transform) int {

	conns := p.Connections()

	for _, conn := range conns {
		Connection(s, conn, t, 1.0)
	}

	return len(conns)
}

// PoseWireframes renders the wireframe for all poses in the order given.
// Poses are painted independently with no occlusion between them.  It returns
// the total number of connections drawn.
func PoseWireframes(s Surface, poses []pose.Pose, t *pose.Transform) int {

	total := 0

	// for each detected body
	for i := 0; i < len(poses); i++ {
		total += PoseWireframe(s, poses[i], t)
	}

	return total
}
