/*
Package feedback turns the stream of per frame action predictions into the
correctness banner shown to the user and the per action frame tally read at
the end of a workout session.

An Aggregator is not safe for concurrent use.  All of its methods, and the
tasks it schedules, must run on the single UI loop that owns it.
*/
package feedback

import (
	"time"

	"github.com/swdee/go-repose/uiloop"
)

// Scheduler runs deferred tasks on the same execution context as the
// Aggregator.  uiloop.Loop satisfies this interface.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) uiloop.Timer
}

// Params defines the Aggregator thresholds, delays and banner text
type Params struct {
	// ConfidenceThreshold is the minimum confidence for a prediction to be
	// considered a correct movement
	ConfidenceThreshold float64
	// GuideDelay is how long the guidance banner is shown for after Start
	// before feedback may appear
	GuideDelay time.Duration
	// GateRetry is the interval at which feedback held back by the guidance
	// banner is retried
	GateRetry time.Duration
	// HideDelay is how long the feedback banner stays visible after being
	// shown
	HideDelay time.Duration
	// FadeDuration is the length of the banner fade in and fade out
	FadeDuration time.Duration
	// ReplaceHideTimer stops the pending hide timer when new feedback is
	// shown, so the banner always stays visible for HideDelay after the
	// latest feedback.  When false every shown feedback hides the banner
	// HideDelay after it was shown, even if newer feedback has replaced it.
	ReplaceHideTimer bool
	GuideText        string
	CorrectText      string
	IncorrectText    string
}

// DefaultParams returns an instance of Params configured with default values:
// - Confidence Threshold: 0.9
// - Guide Delay: 3s
// - Gate Retry: 300ms
// - Hide Delay: 2.5s
// - Fade Duration: 250ms
// - Replace Hide Timer: false
func DefaultParams() Params {
	return Params{
		ConfidenceThreshold: 0.9,
		GuideDelay:          3 * time.Second,
		GateRetry:           300 * time.Millisecond,
		HideDelay:           2500 * time.Millisecond,
		FadeDuration:        250 * time.Millisecond,
		ReplaceHideTimer:    false,
		GuideText:           "Make sure your full body is visible",
		CorrectText:         "Excellent! Keep going!",
		IncorrectText:       "Wrong Move!",
	}
}

// IsCorrect reports whether the prediction confidence reaches the threshold.
// An absent confidence is treated as zero.
func (p Params) IsCorrect(pred ActionPrediction) bool {
	return pred.ConfidenceValue() >= p.ConfidenceThreshold
}

// Aggregator is the feedback state machine
type Aggregator struct {
	params Params
	sched  Scheduler
	tally  *Tally
	banner Banner
	// started is set once Start has shown the guide
	started bool
	// guideDismissed latches true GuideDelay after Start and never resets
	guideDismissed bool
	// prediction is the latest prediction shown in the action label
	prediction ActionPrediction
	// hideTimer is the most recently scheduled hide
	hideTimer uiloop.Timer
	// deferred is the number of feedback updates waiting on the guide
	deferred int
	listener func(Snapshot)
}

// NewAggregator returns an Aggregator scheduling its timed work on sched
func NewAggregator(p Params, sched Scheduler) *Aggregator {
	return &Aggregator{
		params:     p,
		sched:      sched,
		tally:      NewTally(),
		prediction: StartingPrediction(),
	}
}

// Params returns the parameters the Aggregator was created with
func (a *Aggregator) Params() Params {
	return a.params
}

// SetListener registers a function called with a new Snapshot every time the
// visible state changes.  It is called on the Aggregator's loop.
func (a *Aggregator) SetListener(fn func(Snapshot)) {
	a.listener = fn
}

// Start shows the guidance banner and schedules it to be dismissed.  Calling
// Start more than once has no effect.
func (a *Aggregator) Start() {

	if a.started {
		return
	}

	a.started = true

	a.sched.AfterFunc(a.params.GuideDelay, func() {
		a.guideDismissed = true
		a.notify()
	})

	a.notify()
}

// GuideDismissed reports whether the guidance banner has been dismissed
func (a *Aggregator) GuideDismissed() bool {
	return a.guideDismissed
}

// ShowPrediction updates the action label without producing feedback
func (a *Aggregator) ShowPrediction(pred ActionPrediction) {
	a.prediction = pred
	a.notify()
}

// Observe consumes one prediction covering frameCount frames.  Model labels
// are added to the tally, then correctness feedback is shown once the guide
// has been dismissed.
func (a *Aggregator) Observe(pred ActionPrediction, frameCount int) {

	if pred.IsModelLabel {
		a.tally.Add(pred.Label, frameCount)
	}

	a.prediction = pred
	a.showFeedback(a.params.IsCorrect(pred))
}

// showFeedback displays the banner, or if the guide is still showing retries
// after GateRetry
func (a *Aggregator) showFeedback(correct bool) {

	if !a.guideDismissed {
		a.deferred++

		a.sched.AfterFunc(a.params.GateRetry, func() {
			a.deferred--
			a.showFeedback(correct)
		})

		a.notify()
		return
	}

	now := a.sched.Now()

	// only fade in when appearing, replaced content shows straight away
	if !a.banner.Visible {
		a.banner.FadeInAt = now
	}

	a.banner.Visible = true
	a.banner.Correct = correct
	a.banner.ShownAt = now
	a.banner.Text = a.params.IncorrectText

	if correct {
		a.banner.Text = a.params.CorrectText
	}

	if a.params.ReplaceHideTimer && a.hideTimer != nil {
		a.hideTimer.Stop()
	}

	a.hideTimer = a.sched.AfterFunc(a.params.HideDelay, a.hide)

	a.notify()
}

// hide is run by the hide timer
func (a *Aggregator) hide() {

	if !a.banner.Visible {
		return
	}

	a.banner.Visible = false
	a.banner.HiddenAt = a.sched.Now()

	a.notify()
}

// Banner returns the current banner state
func (a *Aggregator) Banner() Banner {
	return a.banner
}

// Tally returns the session frame tally.  It must only be read on the
// Aggregator's loop.
func (a *Aggregator) Tally() *Tally {
	return a.tally
}

// Snapshot returns an immutable copy of the visible state
func (a *Aggregator) Snapshot() Snapshot {

	confidence, ok := a.prediction.ConfidenceString()

	if !ok {
		confidence = ObservingText
	}

	return Snapshot{
		At:           a.sched.Now(),
		Banner:       a.banner,
		Fade:         a.params.FadeDuration,
		GuideVisible: a.started && !a.guideDismissed,
		GuideText:    a.params.GuideText,
		Action:       a.prediction.Label,
		Confidence:   confidence,
		Deferred:     a.deferred,
		Tally:        a.tally.Counts(),
	}
}

// notify sends a snapshot to the listener
func (a *Aggregator) notify() {

	if a.listener == nil {
		return
	}

	a.listener(a.Snapshot())
}
