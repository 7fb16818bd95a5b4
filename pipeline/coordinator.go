/*
Package pipeline connects the processing chain to the frame compositor, the
feedback aggregator and the display.  Pose and action events arrive on
separate typed channels and are consumed by a single Coordinator goroutine.
The two streams have no ordering relationship to each other.
*/
package pipeline

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/swdee/go-repose/compositor"
	"github.com/swdee/go-repose/display"
	"github.com/swdee/go-repose/feedback"
	"github.com/swdee/go-repose/pose"
	"github.com/swdee/go-repose/uiloop"
	"go.uber.org/zap"
)

// FramePublisher is a source of captured frames
type FramePublisher interface {
	Frames() <-chan compositor.Frame
}

// ProcessingChain runs the pose and action models over published frames
type ProcessingChain interface {
	// SetUpstream wires the frame source the chain reads from
	SetUpstream(pub FramePublisher)
}

// PoseEvent carries the poses detected in a frame
type PoseEvent struct {
	Poses []pose.Pose
	Frame compositor.Frame
}

// ActionEvent carries an action prediction covering FrameCount frames
type ActionEvent struct {
	Prediction feedback.ActionPrediction
	FrameCount int
}

// PublisherEvent announces a newly created frame publisher
type PublisherEvent struct {
	Publisher FramePublisher
}

// Params defines the coordinator channel sizes
type Params struct {
	// EventBuffer is the buffer size of each inbound event channel
	EventBuffer int
	// ResultBuffer is the buffer size of the composited result channel
	ResultBuffer int
}

// DefaultParams returns an instance of Params configured with default values:
// - Event Buffer: 30
// - Result Buffer: 30
func DefaultParams() Params {
	return Params{
		EventBuffer:  30,
		ResultBuffer: 30,
	}
}

// Stats is a snapshot of coordinator activity
type Stats struct {
	Session    string           `json:"session"`
	Poses      uint64           `json:"poses"`
	Actions    uint64           `json:"actions"`
	Publishers uint64           `json:"publishers"`
	Compositor compositor.Stats `json:"compositor"`
	Display    display.Stats    `json:"display"`
}

// Coordinator drives the compositor, aggregator and display from the
// processing chain's event streams
type Coordinator struct {
	session string
	loop    *uiloop.Loop
	agg     *feedback.Aggregator
	comp    *compositor.Compositor
	disp    *display.Display
	chain   ProcessingChain
	seq     *compositor.Sequencer
	// snap is the latest feedback state, written on the loop and read when
	// dispatching frames
	snap       atomic.Pointer[feedback.Snapshot]
	poses      chan PoseEvent
	actions    chan ActionEvent
	publishers chan PublisherEvent
	results    chan compositor.Result
	poseCount  atomic.Uint64
	actCount   atomic.Uint64
	pubCount   atomic.Uint64
	log        *zap.Logger
}

// NewCoordinator returns a coordinator.  The aggregator must be scheduled on
// loop.
func NewCoordinator(p Params, loop *uiloop.Loop, agg *feedback.Aggregator,
	comp *compositor.Compositor, disp *display.Display, log *zap.Logger) *Coordinator {

	session := uuid.NewString()

	if log == nil {
		log = zap.NewNop()
	}

	return &Coordinator{
		session:    session,
		loop:       loop,
		agg:        agg,
		comp:       comp,
		disp:       disp,
		seq:        compositor.NewSequencer(),
		poses:      make(chan PoseEvent, p.EventBuffer),
		actions:    make(chan ActionEvent, p.EventBuffer),
		publishers: make(chan PublisherEvent, 1),
		results:    make(chan compositor.Result, p.ResultBuffer),
		log:        log.With(zap.String("session", session)),
	}
}

// SetChain sets the processing chain announced frame publishers are wired
// into.  It must be called before Run.  Without a chain publishers are only
// logged.
func (c *Coordinator) SetChain(chain ProcessingChain) {
	c.chain = chain
}

// Session returns the session id
func (c *Coordinator) Session() string {
	return c.session
}

// PoseEvents returns the channel the processing chain sends detected poses on
func (c *Coordinator) PoseEvents() chan<- PoseEvent {
	return c.poses
}

// ActionEvents returns the channel the processing chain sends action
// predictions on
func (c *Coordinator) ActionEvents() chan<- ActionEvent {
	return c.actions
}

// PublisherEvents returns the channel frame publishers are announced on
func (c *Coordinator) PublisherEvents() chan<- PublisherEvent {
	return c.publishers
}

// Run starts the aggregator and consumes events until the context is
// cancelled.  Before returning it drains queued pose events and waits for
// frames being composited, so frame images may be freed once Run returns.
func (c *Coordinator) Run(ctx context.Context) error {

	c.log.Info("pipeline started")

	c.loop.Post(func() {
		c.agg.SetListener(c.onFeedback)
		c.agg.Start()
	})

	for {
		select {
		case <-ctx.Done():
			c.Drain()

			c.log.Info("pipeline stopped", zap.Uint64("frames", c.seq.Last()),
				zap.Uint64("actions", c.actCount.Load()))
			return ctx.Err()

		case ev := <-c.poses:
			c.onPoses(ctx, ev)

		case ev := <-c.actions:
			c.onAction(ev)

		case ev := <-c.publishers:
			c.onPublisher(ev)

		case res := <-c.results:
			c.loop.Post(func() {
				c.disp.Present(res)
			})
		}
	}
}

// Drain releases the frames of pose events still queued and waits for every
// dispatched composite to finish.  Call it again after the processing chain
// has stopped to release frames queued once Run returned.
func (c *Coordinator) Drain() {

	for {
		select {
		case ev := <-c.poses:
			if ev.Frame.Release != nil {
				ev.Frame.Release()
			}

		default:
			c.comp.Wait()
			return
		}
	}
}

// onPoses numbers the frame and composites it in the background
func (c *Coordinator) onPoses(ctx context.Context, ev PoseEvent) {

	c.poseCount.Add(1)

	frame := ev.Frame
	frame.Seq = c.seq.Next()

	if !c.comp.Dispatch(ctx, frame, ev.Poses, c.snap.Load(), c.results) {
		c.log.Debug("compositor busy, dropped frame", zap.Uint64("seq", frame.Seq))
	}
}

// onAction hands the prediction to the aggregator on the loop
func (c *Coordinator) onAction(ev ActionEvent) {

	c.actCount.Add(1)

	c.loop.Post(func() {
		c.agg.Observe(ev.Prediction, ev.FrameCount)
	})
}

// onPublisher resets the action label and wires the publisher upstream of
// the processing chain
func (c *Coordinator) onPublisher(ev PublisherEvent) {

	c.pubCount.Add(1)

	c.loop.Post(func() {
		c.agg.ShowPrediction(feedback.StartingPrediction())
	})

	if c.chain != nil {
		c.chain.SetUpstream(ev.Publisher)
	}

	c.log.Info("frame publisher connected")
}

// onFeedback runs on the loop whenever the aggregator state changes
func (c *Coordinator) onFeedback(snap feedback.Snapshot) {
	c.snap.Store(&snap)
	c.disp.PublishFeedback(snap)
}

// Summary returns the workout summary for the session so far
func (c *Coordinator) Summary(ctx context.Context) (feedback.Summary, error) {

	var sum feedback.Summary

	err := c.loop.Call(ctx, func() {
		sum = feedback.Summarize(c.agg.Tally())
	})

	if err != nil {
		return feedback.Summary{}, err
	}

	sum.Session = c.session

	return sum, nil
}

// Stats returns the coordinator activity counters
func (c *Coordinator) Stats() Stats {
	return Stats{
		Session:    c.session,
		Poses:      c.poseCount.Load(),
		Actions:    c.actCount.Load(),
		Publishers: c.pubCount.Load(),
		Compositor: c.comp.Stats(),
		Display:    c.disp.Stats(),
	}
}
