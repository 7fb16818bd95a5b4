/*
Package display is the presentation surface for composited frames and the
feedback state.  The surface has a single writer: Present and
PublishFeedback must only be called from the UI loop.  Viewers read the
surface concurrently over HTTP as an MJPEG stream and a websocket feed.
*/
package display

import (
	"sync/atomic"

	"github.com/swdee/go-repose/compositor"
	"github.com/swdee/go-repose/feedback"
	"go.uber.org/zap"
)

// Params defines the display behaviour
type Params struct {
	// StrictOrder drops composited frames older than the last frame shown,
	// so frames finishing out of order never move the display backwards.
	// When false the last frame to arrive is always shown.
	StrictOrder bool
}

// DefaultParams returns an instance of Params configured with default values:
// - Strict Order: true
func DefaultParams() Params {
	return Params{
		StrictOrder: true,
	}
}

// Stats is a snapshot of display activity
type Stats struct {
	Presented uint64 `json:"presented"`
	Stale     uint64 `json:"stale"`
	Failed    uint64 `json:"failed"`
	LastSeq   uint64 `json:"lastSeq"`
	Viewers   int    `json:"viewers"`
	Watchers  int    `json:"watchers"`
	// FrameDrops and FeedbackDrops count values replaced before a slow
	// viewer or watcher read them
	FrameDrops    uint64 `json:"frameDrops"`
	FeedbackDrops uint64 `json:"feedbackDrops"`
}

// shown is a frame on display
type shown struct {
	seq  uint64
	jpeg []byte
}

// Display holds the latest frame and feedback state and fans them out to
// viewers
type Display struct {
	params Params
	log    *zap.Logger
	// lastSeq is only touched on the UI loop
	lastSeq uint64
	latest  atomic.Pointer[shown]
	// counters are read by the stats endpoint from other goroutines
	presented atomic.Uint64
	stale     atomic.Uint64
	failed    atomic.Uint64
	seq       atomic.Uint64
	frames    *broadcaster[[]byte]
	feedback  *broadcaster[feedback.Snapshot]
	// lastSnap is the most recent feedback state for new watchers
	lastSnap atomic.Pointer[feedback.Snapshot]
}

// New returns a display
func New(p Params, log *zap.Logger) *Display {

	if log == nil {
		log = zap.NewNop()
	}

	return &Display{
		params:   p,
		log:      log,
		frames:   newBroadcaster[[]byte](),
		feedback: newBroadcaster[feedback.Snapshot](),
	}
}

// Present shows a composited frame.  It returns false if the frame was not
// shown because it failed to composite or, in strict order mode, is not newer
// than the frame already on display.
func (d *Display) Present(res compositor.Result) bool {

	if res.Err != nil {
		d.failed.Add(1)
		d.log.Warn("composite failed", zap.Uint64("seq", res.Seq), zap.Error(res.Err))
		return false
	}

	if d.params.StrictOrder && res.Seq <= d.lastSeq {
		d.stale.Add(1)
		d.log.Debug("dropped stale frame", zap.Uint64("seq", res.Seq),
			zap.Uint64("lastSeq", d.lastSeq))
		return false
	}

	d.lastSeq = res.Seq
	d.latest.Store(&shown{seq: res.Seq, jpeg: res.JPEG})
	d.seq.Store(res.Seq)
	d.presented.Add(1)

	d.frames.Send(res.JPEG)

	return true
}

// Latest returns the frame on display and its sequence number, nil before
// the first frame is shown
func (d *Display) Latest() ([]byte, uint64) {

	cur := d.latest.Load()

	if cur == nil {
		return nil, 0
	}

	return cur.jpeg, cur.seq
}

// PublishFeedback pushes a new feedback state to watchers
func (d *Display) PublishFeedback(snap feedback.Snapshot) {
	d.lastSnap.Store(&snap)
	d.feedback.Send(snap)
}

// LastFeedback returns the most recently published feedback state
func (d *Display) LastFeedback() (feedback.Snapshot, bool) {

	snap := d.lastSnap.Load()

	if snap == nil {
		return feedback.Snapshot{}, false
	}

	return *snap, true
}

// Stats returns the display activity counters
func (d *Display) Stats() Stats {
	return Stats{
		Presented: d.presented.Load(),
		Stale:     d.stale.Load(),
		Failed:    d.failed.Load(),
		LastSeq:   d.seq.Load(),
		Viewers:   d.frames.Len(),
		Watchers:  d.feedback.Len(),

		FrameDrops:    d.frames.Drops(),
		FeedbackDrops: d.feedback.Drops(),
	}
}
