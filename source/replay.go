package source

import (
	"context"
	"sync/atomic"

	"github.com/swdee/go-repose/compositor"
	"github.com/swdee/go-repose/pipeline"
	"go.uber.org/zap"
)

// ReplayChain is a processing chain that replays recorded annotations
// instead of running the pose and action models.  For every frame read from
// its upstream publisher it emits a pose event, and an action event when an
// action was recorded for the frame.
type ReplayChain struct {
	anns     Annotations
	upstream chan pipeline.FramePublisher
	poses    chan<- pipeline.PoseEvent
	actions  chan<- pipeline.ActionEvent
	frames   atomic.Uint64
	log      *zap.Logger
}

// NewReplayChain returns a replay chain sending events on the given channels
func NewReplayChain(anns Annotations, poses chan<- pipeline.PoseEvent,
	actions chan<- pipeline.ActionEvent, log *zap.Logger) *ReplayChain {

	if log == nil {
		log = zap.NewNop()
	}

	return &ReplayChain{
		anns:     anns,
		upstream: make(chan pipeline.FramePublisher, 1),
		poses:    poses,
		actions:  actions,
		log:      log,
	}
}

// SetUpstream switches the chain to read frames from pub.  A publisher set
// before the chain reads it is replaced.
func (c *ReplayChain) SetUpstream(pub pipeline.FramePublisher) {

	for {
		select {
		case c.upstream <- pub:
			return
		default:
		}

		select {
		case <-c.upstream:
		default:
		}
	}
}

// Processed returns the number of frames processed
func (c *ReplayChain) Processed() uint64 {
	return c.frames.Load()
}

// Run processes upstream frames until the context is cancelled
func (c *ReplayChain) Run(ctx context.Context) error {

	var frames <-chan compositor.Frame

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case pub := <-c.upstream:
			frames = pub.Frames()
			c.log.Debug("replay chain upstream set")

		case frame, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}

			if err := c.process(ctx, frame); err != nil {
				return err
			}
		}
	}
}

// process emits the events recorded for the frame
func (c *ReplayChain) process(ctx context.Context, frame compositor.Frame) error {

	c.frames.Add(1)

	ann, found := c.anns[frame.Index]

	select {
	case c.poses <- pipeline.PoseEvent{Poses: ann.PoseList(), Frame: frame}:
	case <-ctx.Done():
		if frame.Release != nil {
			frame.Release()
		}
		return ctx.Err()
	}

	if !found || ann.Action == nil {
		return nil
	}

	count := ann.FrameCount

	if count <= 0 {
		count = 1
	}

	select {
	case c.actions <- pipeline.ActionEvent{Prediction: *ann.Action, FrameCount: count}:
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}
