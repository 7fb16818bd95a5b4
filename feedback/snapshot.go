package feedback

import "time"

// Snapshot is a copy of the Aggregator's visible state that may be read
// from any goroutine
type Snapshot struct {
	// At is when the snapshot was taken
	At     time.Time     `json:"at"`
	Banner Banner        `json:"banner"`
	Fade   time.Duration `json:"fade"`
	// GuideVisible is true while the guidance banner is showing
	GuideVisible bool   `json:"guideVisible"`
	GuideText    string `json:"guideText"`
	// Action is the latest predicted action label
	Action string `json:"action"`
	// Confidence is the formatted confidence of the latest prediction
	Confidence string `json:"confidence"`
	// Deferred is the number of feedback updates waiting for the guide to
	// be dismissed
	Deferred int            `json:"deferred"`
	Tally    map[string]int `json:"tally"`
}

// BannerOpacity returns the feedback banner opacity at the given time
func (s Snapshot) BannerOpacity(now time.Time) float64 {
	return s.Banner.Opacity(now, s.Fade)
}
