package pose

import (
	"gonum.org/v1/gonum/spatial/r2"
)

/* COCO keypoints as output by YOLOv8 pose models
0: Nose
1: Left Eye
2: Right Eye
3: Left Ear
4: Right Ear
5: Left Shoulder
6: Right Shoulder
7: Left Elbow
8: Right Elbow
9: Left Wrist
10: Right Wrist
11: Left Hip
12: Right Hip
13: Left Knee
14: Right Knee
15: Left Ankle
16: Right Ankle
*/

// cocoJoints maps the COCO keypoint index to a joint name
var cocoJoints = [COCOKeyPointsTotal]JointName{
	Nose, LeftEye, RightEye, LeftEar, RightEar,
	LeftShoulder, RightShoulder, LeftElbow, RightElbow, LeftWrist, RightWrist,
	LeftHip, RightHip, LeftKnee, RightKnee, LeftAnkle, RightAnkle,
}

// COCOKeyPointsTotal is the number of keypoints in a COCO skeleton
const COCOKeyPointsTotal = 17

// KeyPoint is a pose model keypoint in image pixel coordinates
type KeyPoint struct {
	X     float64
	Y     float64
	Score float64
}

// FromCOCO builds a pose from COCO ordered keypoints detected in an image
// of the given size.  Keypoints scoring below minScore are left out of the
// pose.  The neck and root joints the COCO skeleton lacks are placed at the
// midpoint of the shoulders and hips when both are present.
func FromCOCO(kps []KeyPoint, width, height int, minScore float64) Pose {

	p := Pose{
		Landmarks:  make(map[JointName]Point),
		Confidence: make(map[JointName]float64),
	}

	if width <= 0 || height <= 0 {
		return p
	}

	for i, kp := range kps {
		if i >= COCOKeyPointsTotal {
			break
		}

		if kp.Score < minScore {
			continue
		}

		joint := cocoJoints[i]
		p.Landmarks[joint] = Pt(kp.X/float64(width), kp.Y/float64(height))
		p.Confidence[joint] = kp.Score
	}

	p.midpoint(Neck, LeftShoulder, RightShoulder)
	p.midpoint(Root, LeftHip, RightHip)

	return p
}

// midpoint sets joint halfway between a and b when both are present
func (p Pose) midpoint(joint, a, b JointName) {

	pa, okA := p.Landmarks[a]
	pb, okB := p.Landmarks[b]

	if !okA || !okB {
		return
	}

	mid := r2.Scale(0.5, r2.Add(r2.Vec{X: pa[0], Y: pa[1]}, r2.Vec{X: pb[0], Y: pb[1]}))
	p.Landmarks[joint] = Pt(mid.X, mid.Y)
	p.Confidence[joint] = min(p.Confidence[a], p.Confidence[b])
}
