package feedback

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

// LabelSummary is the share of a session spent performing one action
type LabelSummary struct {
	Label  string  `json:"label"`
	Frames int     `json:"frames"`
	Share  float64 `json:"share"`
}

// Summary is the workout summary built from a session's frame tally
type Summary struct {
	// Session identifies the workout session the tally was collected in
	Session     string         `json:"session,omitempty"`
	TotalFrames int            `json:"totalFrames"`
	Actions     []LabelSummary `json:"actions"`
}

// Summarize builds a summary from the frame tally with actions ordered from
// most to least frames
func Summarize(t *Tally) Summary {

	labels := t.Labels()
	frames := make([]float64, len(labels))

	for i, label := range labels {
		frames[i] = float64(t.Count(label))
	}

	total := floats.Sum(frames)

	sum := Summary{
		TotalFrames: int(total),
		Actions:     make([]LabelSummary, 0, len(labels)),
	}

	for i, label := range labels {
		share := 0.0

		if total > 0 {
			share = frames[i] / total
		}

		sum.Actions = append(sum.Actions, LabelSummary{
			Label:  label,
			Frames: int(frames[i]),
			Share:  share,
		})
	}

	sort.SliceStable(sum.Actions, func(i, j int) bool {
		return sum.Actions[i].Frames > sum.Actions[j].Frames
	})

	return sum
}
