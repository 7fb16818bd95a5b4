package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/swdee/go-repose/feedback"
	"github.com/swdee/go-repose/pose"
)

// Annotation is the recorded processing chain output for one video frame.
// Annotations are stored one JSON object per line, for example
//
//	{"frame":12,"poses":[{"neck":[0.5,0.2],"left_hip":[0.4,0.6,0.93]}],
//	 "action":{"label":"squat","confidence":0.95,"isModelLabel":true},
//	 "frameCount":5}
//
// Each joint holds [x, y] in unit coordinates with an optional third
// confidence value.  Raw pose model output may be recorded instead as
// "keypoints", one list of 17 COCO ordered [x, y, score] pixel keypoints per
// body, with the "width" and "height" of the frame they were detected in.
type Annotation struct {
	Frame      int                        `json:"frame"`
	Poses      []map[string][]float64     `json:"poses,omitempty"`
	Keypoints  [][][3]float64             `json:"keypoints,omitempty"`
	Width      int                        `json:"width,omitempty"`
	Height     int                        `json:"height,omitempty"`
	Action     *feedback.ActionPrediction `json:"action,omitempty"`
	FrameCount int                        `json:"frameCount,omitempty"`
}

// MinKeyPointScore is the score below which recorded COCO keypoints are
// treated as not detected
const MinKeyPointScore = 0.5

// PoseList converts the recorded joints into poses
func (a Annotation) PoseList() []pose.Pose {

	if len(a.Poses) == 0 && len(a.Keypoints) == 0 {
		return nil
	}

	poses := make([]pose.Pose, 0, len(a.Poses)+len(a.Keypoints))

	for _, joints := range a.Poses {
		p := pose.Pose{
			Landmarks:  make(map[pose.JointName]pose.Point, len(joints)),
			Confidence: make(map[pose.JointName]float64),
		}

		for name, v := range joints {
			joint := pose.JointName(name)
			p.Landmarks[joint] = pose.Pt(v[0], v[1])

			if len(v) == 3 {
				p.Confidence[joint] = v[2]
			}
		}

		poses = append(poses, p)
	}

	for _, body := range a.Keypoints {
		kps := make([]pose.KeyPoint, len(body))

		for i, kp := range body {
			kps[i] = pose.KeyPoint{X: kp[0], Y: kp[1], Score: kp[2]}
		}

		poses = append(poses, pose.FromCOCO(kps, a.Width, a.Height, MinKeyPointScore))
	}

	return poses
}

// validate checks every joint holds two or three values and every set of
// keypoints is a full COCO skeleton
func (a Annotation) validate() error {

	if a.Frame < 0 {
		return fmt.Errorf("negative frame %d", a.Frame)
	}

	for i, joints := range a.Poses {
		for name, v := range joints {
			if len(v) != 2 && len(v) != 3 {
				return fmt.Errorf("pose %d joint %q has %d values, expected 2 or 3",
					i, name, len(v))
			}
		}
	}

	if len(a.Keypoints) > 0 && (a.Width <= 0 || a.Height <= 0) {
		return fmt.Errorf("keypoints recorded without frame width and height")
	}

	for i, body := range a.Keypoints {
		if len(body) != pose.COCOKeyPointsTotal {
			return fmt.Errorf("keypoints %d has %d keypoints, expected %d",
				i, len(body), pose.COCOKeyPointsTotal)
		}
	}

	return nil
}

// Annotations indexes annotations by video frame
type Annotations map[int]Annotation

// LoadAnnotations reads JSON lines annotations.  Blank lines are skipped and
// a later annotation for the same frame replaces an earlier one.
func LoadAnnotations(r io.Reader) (Annotations, error) {

	anns := make(Annotations)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())

		if len(line) == 0 {
			continue
		}

		var ann Annotation

		if err := json.Unmarshal(line, &ann); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		if err := ann.validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		anns[ann.Frame] = ann
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading annotations: %w", err)
	}

	return anns, nil
}

// LoadAnnotationsFile reads a JSON lines annotation file
func LoadAnnotationsFile(file string) (Annotations, error) {

	f, err := os.Open(file)

	if err != nil {
		return nil, fmt.Errorf("error opening annotations: %w", err)
	}

	defer f.Close()

	anns, err := LoadAnnotations(f)

	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", file, err)
	}

	return anns, nil
}
