package feedback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-repose/uiloop"
)

// fakeTimer is a task scheduled on a fakeScheduler
type fakeTimer struct {
	at      time.Time
	seq     int
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {

	if t.stopped {
		return false
	}

	t.stopped = true
	return true
}

// fakeScheduler is a virtual clock that runs scheduled tasks synchronously
// as time is advanced, in due time order
type fakeScheduler struct {
	now    time.Time
	next   int
	timers []*fakeTimer
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *fakeScheduler) Now() time.Time {
	return f.now
}

func (f *fakeScheduler) AfterFunc(d time.Duration, fn func()) uiloop.Timer {
	t := &fakeTimer{at: f.now.Add(d), seq: f.next, fn: fn}
	f.next++
	f.timers = append(f.timers, t)
	return t
}

// Advance moves the clock forward by d running every task that falls due
func (f *fakeScheduler) Advance(d time.Duration) {

	end := f.now.Add(d)

	for {
		var due *fakeTimer

		for _, t := range f.timers {
			if t.stopped || t.at.After(end) {
				continue
			}

			if due == nil || t.at.Before(due.at) || (t.at.Equal(due.at) && t.seq < due.seq) {
				due = t
			}
		}

		if due == nil {
			break
		}

		f.now = due.at
		due.stopped = true
		due.fn()
	}

	f.now = end
}

// pending returns the number of tasks yet to run
func (f *fakeScheduler) pending() int {

	n := 0

	for _, t := range f.timers {
		if !t.stopped {
			n++
		}
	}

	return n
}

// startedAggregator returns an Aggregator with the guide already dismissed
func startedAggregator(p Params) (*Aggregator, *fakeScheduler) {
	sched := newFakeScheduler()
	agg := NewAggregator(p, sched)
	agg.Start()
	sched.Advance(p.GuideDelay)
	return agg, sched
}

func conf(v float64) *float64 {
	return &v
}

func TestIsCorrect(t *testing.T) {

	p := DefaultParams()

	tests := []struct {
		name       string
		confidence *float64
		want       bool
	}{
		{"absent", nil, false},
		{"zero", conf(0), false},
		{"just below", conf(0.8999), false},
		{"exactly threshold", conf(0.9), true},
		{"above", conf(0.95), true},
		{"certain", conf(1.0), true},
	}

	for _, tc := range tests {
		pred := ActionPrediction{Label: "squat", Confidence: tc.confidence, IsModelLabel: true}
		assert.Equal(t, tc.want, p.IsCorrect(pred), tc.name)
	}
}

func TestTallySumsModelLabels(t *testing.T) {

	agg, _ := startedAggregator(DefaultParams())

	events := []struct {
		pred   ActionPrediction
		frames int
	}{
		{NewPrediction("squat", 0.95), 5},
		{NoPersonPrediction(), 30},
		{NewPrediction("lunge", 0.5), 3},
		{NewPrediction("squat", 0.2), 7},
		{LowConfidencePrediction(), 12},
		{ActionPrediction{Label: "squat", IsModelLabel: true}, 1},
		{StartingPrediction(), 4},
	}

	for _, e := range events {
		agg.Observe(e.pred, e.frames)
	}

	tally := agg.Tally()

	assert.Equal(t, 13, tally.Count("squat"))
	assert.Equal(t, 3, tally.Count("lunge"))
	assert.Equal(t, 0, tally.Count(NoPersonLabel))
	assert.Equal(t, 0, tally.Count(StartingLabel))
	assert.Equal(t, 16, tally.Total())
	assert.Equal(t, []string{"lunge", "squat"}, tally.Labels())
}

func TestTallyIgnoresNegativeCounts(t *testing.T) {

	tally := NewTally()
	tally.Add("squat", 4)
	tally.Add("squat", -2)
	tally.Add("squat", 0)

	assert.Equal(t, 4, tally.Count("squat"))
}

func TestStartIsOnce(t *testing.T) {

	sched := newFakeScheduler()
	agg := NewAggregator(DefaultParams(), sched)

	assert.False(t, agg.Snapshot().GuideVisible, "guide not shown before start")

	agg.Start()
	agg.Start()

	assert.Equal(t, 1, sched.pending(), "only one guide timer scheduled")
	assert.True(t, agg.Snapshot().GuideVisible)

	sched.Advance(2999 * time.Millisecond)
	assert.False(t, agg.GuideDismissed())

	sched.Advance(time.Millisecond)
	assert.True(t, agg.GuideDismissed())
	assert.False(t, agg.Snapshot().GuideVisible)
}

func TestFeedbackGatedByGuide(t *testing.T) {

	sched := newFakeScheduler()
	start := sched.Now()
	agg := NewAggregator(DefaultParams(), sched)
	agg.Start()

	sched.Advance(time.Second)
	agg.Observe(NewPrediction("squat", 0.95), 1)

	assert.False(t, agg.Banner().Visible, "feedback held back under the guide")
	assert.Equal(t, 1, agg.Snapshot().Deferred)

	// the tally is not gated
	assert.Equal(t, 1, agg.Tally().Count("squat"))

	sched.Advance(2 * time.Second)
	require.True(t, agg.GuideDismissed())
	assert.False(t, agg.Banner().Visible, "retry has not run since the latch flipped")

	// retries run every 300ms from 1s, the first after the latch is at 3.1s
	sched.Advance(100 * time.Millisecond)

	banner := agg.Banner()
	assert.True(t, banner.Visible)
	assert.True(t, banner.Correct)
	assert.Equal(t, start.Add(3100*time.Millisecond), banner.ShownAt)
	assert.Equal(t, 0, agg.Snapshot().Deferred)
}

func TestFeedbackVisibleWithinOneRetryOfLatch(t *testing.T) {

	p := DefaultParams()

	// feedback arriving at different offsets before the latch flips
	for _, offset := range []time.Duration{0, 50 * time.Millisecond, 1234 * time.Millisecond, 2999 * time.Millisecond} {

		sched := newFakeScheduler()
		start := sched.Now()
		agg := NewAggregator(p, sched)
		agg.Start()

		sched.Advance(offset)
		agg.Observe(NewPrediction("squat", 0.1), 1)

		// still held back just before the latch flips
		sched.Advance(p.GuideDelay - offset - time.Millisecond)
		assert.False(t, agg.Banner().Visible, "offset %v", offset)

		sched.Advance(time.Millisecond + p.GateRetry)
		banner := agg.Banner()

		assert.True(t, banner.Visible, "offset %v", offset)
		assert.False(t, banner.Correct, "offset %v", offset)
		assert.False(t, banner.ShownAt.After(start.Add(p.GuideDelay+p.GateRetry)), "offset %v", offset)
	}
}

func TestScenarioCorrectSquat(t *testing.T) {

	p := DefaultParams()
	agg, sched := startedAggregator(p)
	shown := sched.Now()

	agg.Observe(NewPrediction("squat", 0.95), 5)

	assert.Equal(t, 5, agg.Tally().Count("squat"))

	banner := agg.Banner()
	assert.True(t, banner.Visible)
	assert.True(t, banner.Correct)
	assert.Equal(t, p.CorrectText, banner.Text)
	assert.Equal(t, shown, banner.ShownAt)

	sched.Advance(2499 * time.Millisecond)
	assert.True(t, agg.Banner().Visible)

	sched.Advance(time.Millisecond)
	banner = agg.Banner()
	assert.False(t, banner.Visible)
	assert.Equal(t, shown.Add(p.HideDelay), banner.HiddenAt)
}

func TestScenarioAbsentConfidence(t *testing.T) {

	p := DefaultParams()
	agg, _ := startedAggregator(p)

	agg.Observe(ActionPrediction{Label: "squat", IsModelLabel: true}, 2)

	banner := agg.Banner()
	assert.True(t, banner.Visible)
	assert.False(t, banner.Correct)
	assert.Equal(t, p.IncorrectText, banner.Text)
	assert.Equal(t, ObservingText, agg.Snapshot().Confidence)
}

func TestScenarioOverlappingFeedback(t *testing.T) {

	p := DefaultParams()
	agg, sched := startedAggregator(p)
	first := sched.Now()

	agg.Observe(NewPrediction("squat", 0.97), 1)
	fadeIn := agg.Banner().FadeInAt

	sched.Advance(time.Second)
	agg.Observe(NewPrediction("squat", 0.4), 1)

	banner := agg.Banner()
	assert.True(t, banner.Visible)
	assert.False(t, banner.Correct, "content flips in place")
	assert.Equal(t, fadeIn, banner.FadeInAt, "no fade in when already visible")

	// the first event's timer hides the banner at its own deadline
	sched.Advance(1500 * time.Millisecond)
	banner = agg.Banner()
	assert.False(t, banner.Visible)
	assert.Equal(t, first.Add(p.HideDelay), banner.HiddenAt)

	// the second event's timer fires later against an already hidden banner
	sched.Advance(time.Second)
	banner = agg.Banner()
	assert.False(t, banner.Visible)
	assert.Equal(t, first.Add(p.HideDelay), banner.HiddenAt)
}

func TestReplaceHideTimer(t *testing.T) {

	p := DefaultParams()
	p.ReplaceHideTimer = true
	agg, sched := startedAggregator(p)
	second := sched.Now().Add(time.Second)

	agg.Observe(NewPrediction("squat", 0.97), 1)
	sched.Advance(time.Second)
	agg.Observe(NewPrediction("squat", 0.4), 1)

	sched.Advance(1500 * time.Millisecond)
	assert.True(t, agg.Banner().Visible, "first hide timer was replaced")

	sched.Advance(time.Second)
	banner := agg.Banner()
	assert.False(t, banner.Visible)
	assert.Equal(t, second.Add(p.HideDelay), banner.HiddenAt)
}

func TestFadeInOnlyFromHidden(t *testing.T) {

	p := DefaultParams()
	agg, sched := startedAggregator(p)

	agg.Observe(NewPrediction("squat", 0.95), 1)
	snap := agg.Snapshot()

	assert.InDelta(t, 0.0, snap.BannerOpacity(sched.Now()), 1e-9)
	assert.InDelta(t, 0.5, snap.BannerOpacity(sched.Now().Add(p.FadeDuration/2)), 1e-9)
	assert.InDelta(t, 1.0, snap.BannerOpacity(sched.Now().Add(p.FadeDuration)), 1e-9)

	// hidden then faded out
	sched.Advance(p.HideDelay)
	snap = agg.Snapshot()
	assert.InDelta(t, 1.0, snap.BannerOpacity(sched.Now()), 1e-9)
	assert.InDelta(t, 0.0, snap.BannerOpacity(sched.Now().Add(p.FadeDuration)), 1e-9)

	// shown again fades in from the new time
	agg.Observe(NewPrediction("squat", 0.95), 1)
	assert.Equal(t, sched.Now(), agg.Banner().FadeInAt)
}

func TestListenerReceivesSnapshots(t *testing.T) {

	sched := newFakeScheduler()
	agg := NewAggregator(DefaultParams(), sched)

	var snaps []Snapshot
	agg.SetListener(func(s Snapshot) { snaps = append(snaps, s) })

	agg.Start()
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].GuideVisible)
	assert.Equal(t, StartingLabel, snaps[0].Action)

	sched.Advance(3 * time.Second)
	require.Len(t, snaps, 2)
	assert.False(t, snaps[1].GuideVisible)

	agg.Observe(NewPrediction("squat", 0.91), 2)
	last := snaps[len(snaps)-1]

	assert.Equal(t, "squat", last.Action)
	assert.Equal(t, "91%", last.Confidence)
	assert.Equal(t, map[string]int{"squat": 2}, last.Tally)
	assert.True(t, last.Banner.Visible)

	// the snapshot tally is a copy
	last.Tally["squat"] = 100
	assert.Equal(t, 2, agg.Tally().Count("squat"))
}

func TestShowPrediction(t *testing.T) {

	agg, _ := startedAggregator(DefaultParams())

	agg.ShowPrediction(NoPersonPrediction())

	snap := agg.Snapshot()
	assert.Equal(t, NoPersonLabel, snap.Action)
	assert.Equal(t, ObservingText, snap.Confidence)
	assert.False(t, snap.Banner.Visible, "label update shows no feedback")
	assert.Equal(t, 0, agg.Tally().Total())
}
