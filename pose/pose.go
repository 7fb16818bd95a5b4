/*
Package pose defines the skeletal data model produced by an upstream pose
estimation model: joint positions in normalized unit space, the fixed joint
topology used to draw a full body wireframe, and the connections derived
from them for a single frame.
*/
package pose

import (
	"golang.org/x/image/math/f64"
)

// JointName identifies a body joint as named by the pose estimation model
type JointName string

const (
	Nose          JointName = "nose"
	LeftEye       JointName = "left_eye"
	RightEye      JointName = "right_eye"
	LeftEar       JointName = "left_ear"
	RightEar      JointName = "right_ear"
	Neck          JointName = "neck"
	LeftShoulder  JointName = "left_shoulder"
	RightShoulder JointName = "right_shoulder"
	LeftElbow     JointName = "left_elbow"
	RightElbow    JointName = "right_elbow"
	LeftWrist     JointName = "left_wrist"
	RightWrist    JointName = "right_wrist"
	LeftHip       JointName = "left_hip"
	RightHip      JointName = "right_hip"
	LeftKnee      JointName = "left_knee"
	RightKnee     JointName = "right_knee"
	LeftAnkle     JointName = "left_ankle"
	RightAnkle    JointName = "right_ankle"
	Root          JointName = "root"
)

// Point is a joint position in normalized unit space where x and y are in
// the range [0,1].  The origin convention is that of the pose model.
type Point = f64.Vec2

// Pt is shorthand for creating a Point
func Pt(x, y float64) Point {
	return Point{x, y}
}

// Pose is a single detected body in a single frame
type Pose struct {
	// Landmarks maps each detected joint to its position.  Joints the model
	// could not locate are absent.
	Landmarks map[JointName]Point
	// Confidence is the optional per joint confidence reported by the model
	Confidence map[JointName]float64
}

// New returns a Pose with the given landmarks
func New(landmarks map[JointName]Point) Pose {
	return Pose{Landmarks: landmarks}
}

// Joint returns the position of the named joint and whether it was detected
func (p Pose) Joint(name JointName) (Point, bool) {
	pt, ok := p.Landmarks[name]
	return pt, ok
}

// Connections returns a Connection for every Topology pair where both joints
// were detected.  Pairs referencing a missing joint are skipped.
func (p Pose) Connections() []Connection {

	conns := make([]Connection, 0, len(topology))

	for _, pair := range topology {
		one, ok := p.Joint(pair.Joint1)

		if !ok {
			continue
		}

		two, ok := p.Joint(pair.Joint2)

		if !ok {
			continue
		}

		conns = append(conns, NewConnection(one, two))
	}

	return conns
}
