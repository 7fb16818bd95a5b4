package feedback

import "fmt"

// ActionPrediction is the action classifier output for one processed frame
// or batch of frames
type ActionPrediction struct {
	// Label is the action class name, or a sentinel describing the
	// classifier state
	Label string `json:"label"`
	// Confidence is the classifier confidence in the range [0,1].  Nil when
	// the classifier reported no confidence.
	Confidence *float64 `json:"confidence,omitempty"`
	// IsModelLabel is true for real model classes and false for sentinels
	IsModelLabel bool `json:"isModelLabel"`
}

// sentinel labels used when the classifier has no real prediction
const (
	StartingLabel      = "Starting Up"
	NoPersonLabel      = "No Person"
	LowConfidenceLabel = "Low Confidence"
)

// ObservingText is shown in place of a confidence when none is available
const ObservingText = "Observing..."

// NewPrediction returns a model label prediction with the given confidence
func NewPrediction(label string, confidence float64) ActionPrediction {
	return ActionPrediction{
		Label:        label,
		Confidence:   &confidence,
		IsModelLabel: true,
	}
}

// StartingPrediction is shown before the classifier has produced output
func StartingPrediction() ActionPrediction {
	return ActionPrediction{Label: StartingLabel}
}

// NoPersonPrediction is reported when no body is visible in the frame
func NoPersonPrediction() ActionPrediction {
	return ActionPrediction{Label: NoPersonLabel}
}

// LowConfidencePrediction is reported when no class reached the classifier's
// own minimum confidence
func LowConfidencePrediction() ActionPrediction {
	return ActionPrediction{Label: LowConfidenceLabel}
}

// ConfidenceValue returns the confidence, substituting zero when absent
func (p ActionPrediction) ConfidenceValue() float64 {

	if p.Confidence == nil {
		return 0
	}

	return *p.Confidence
}

// ConfidenceString formats the confidence as a percentage.  It returns false
// when there is no confidence to format.
func (p ActionPrediction) ConfidenceString() (string, bool) {

	if p.Confidence == nil {
		return "", false
	}

	return fmt.Sprintf("%2.0f%%", *p.Confidence*100), true
}
