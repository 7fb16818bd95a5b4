package pose

// JointPair is two joints joined by a line of the wireframe
type JointPair struct {
	Joint1 JointName
	Joint2 JointName
}

// topology is the series of joint pairs that define the wireframe lines of a
// pose
var topology = [13]JointPair{
	// left arm
	{LeftShoulder, LeftElbow},
	{LeftElbow, LeftWrist},

	// left leg
	{LeftHip, LeftKnee},
	{LeftKnee, LeftAnkle},

	// right arm
	{RightShoulder, RightElbow},
	{RightElbow, RightWrist},

	// right leg
	{RightHip, RightKnee},
	{RightKnee, RightAnkle},

	// torso
	{LeftShoulder, Neck},
	{RightShoulder, Neck},
	{LeftShoulder, LeftHip},
	{RightShoulder, RightHip},
	{LeftHip, RightHip},
}

// Topology returns a copy of the joint pairs joined by wireframe lines, in
// drawing order
func Topology() [13]JointPair {
	return topology
}
