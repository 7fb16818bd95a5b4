/*
Package source provides the frame publishers and processing chain stand-ins
that feed the pipeline: a video source simulating a camera, a replay chain
emitting recorded pose and action annotations, and a NATS subscriber
receiving action predictions from a remote classifier.
*/
package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync/atomic"
	"time"

	"github.com/swdee/go-repose/compositor"
	"gocv.io/x/gocv"
	"go.uber.org/zap"
)

// VideoParams defines the video source settings
type VideoParams struct {
	// FPS is the rate frames are published at
	FPS int
	// FrameBuffer is the size of the published frame channel.  Frames are
	// dropped when the channel is full, like a camera with no reader.
	FrameBuffer int
	// Width and Height size the placeholder frame
	Width  int
	Height int
}

// DefaultVideoParams returns an instance of VideoParams configured with
// default values:
// - FPS: 30
// - Frame Buffer: 2
// - Width: 640
// - Height: 480
func DefaultVideoParams() VideoParams {
	return VideoParams{
		FPS:         30,
		FrameBuffer: 2,
		Width:       640,
		Height:      480,
	}
}

// interval returns the time between frames
func (p VideoParams) interval() time.Duration {

	if p.FPS <= 0 {
		return time.Second / 30
	}

	return time.Second / time.Duration(p.FPS)
}

// VideoSource publishes frames at a fixed rate, either looping over a video
// file buffered into memory or reading from a capture device
type VideoSource struct {
	params VideoParams
	// buffer holds the frames of a video file, shared read only by every
	// published frame
	buffer []gocv.Mat
	device *gocv.VideoCapture
	frames chan compositor.Frame
	// placeholder is true when a missing video was substituted
	placeholder bool
	buffered    int
	published   atomic.Uint64
	dropped     atomic.Uint64
	log         *zap.Logger
}

// NewVideoFile buffers the video file into memory.  If the file does not
// exist a placeholder source publishing a solid frame is returned instead.
func NewVideoFile(vidFile string, p VideoParams, log *zap.Logger) (*VideoSource, error) {

	if log == nil {
		log = zap.NewNop()
	}

	if _, err := os.Stat(vidFile); errors.Is(err, fs.ErrNotExist) {
		log.Warn("video file not found, using placeholder frames",
			zap.String("file", vidFile))
		return NewPlaceholder(p, log), nil
	}

	v := newVideoSource(p, log)

	if err := v.bufferVideo(vidFile); err != nil {
		v.Close()
		return nil, fmt.Errorf("error buffering video: %w", err)
	}

	if len(v.buffer) == 0 {
		log.Warn("video file has no frames, using placeholder frames",
			zap.String("file", vidFile))
		return NewPlaceholder(p, log), nil
	}

	v.buffered = len(v.buffer)

	log.Info("buffered video", zap.String("file", vidFile),
		zap.Int("frames", v.buffered))

	return v, nil
}

// NewVideoDevice opens a capture device such as a web camera
func NewVideoDevice(deviceID int, p VideoParams, log *zap.Logger) (*VideoSource, error) {

	if log == nil {
		log = zap.NewNop()
	}

	device, err := gocv.VideoCaptureDevice(deviceID)

	if err != nil {
		return nil, fmt.Errorf("error opening capture device %d: %w", deviceID, err)
	}

	v := newVideoSource(p, log)
	v.device = device

	return v, nil
}

// NewPlaceholder returns a source publishing a solid gray frame
func NewPlaceholder(p VideoParams, log *zap.Logger) *VideoSource {

	if log == nil {
		log = zap.NewNop()
	}

	v := newVideoSource(p, log)
	v.placeholder = true
	v.buffer = []gocv.Mat{
		gocv.NewMatWithSizeFromScalar(gocv.NewScalar(46, 44, 44, 0),
			p.Height, p.Width, gocv.MatTypeCV8UC3),
	}
	v.buffered = 1

	return v
}

func newVideoSource(p VideoParams, log *zap.Logger) *VideoSource {
	return &VideoSource{
		params: p,
		frames: make(chan compositor.Frame, p.FrameBuffer),
		log:    log,
	}
}

// bufferVideo reads in the video frames and saves them to a buffer
func (v *VideoSource) bufferVideo(vidFile string) error {

	// open handle to read frames of video file
	video, err := gocv.VideoCaptureFile(vidFile)

	if err != nil {
		return err
	}

	defer video.Close()

	for {
		img := gocv.NewMat()

		// read the next frame from the video
		if ok := video.Read(&img); !ok {
			// reached last video frame
			img.Close()
			break
		}

		if img.Empty() {
			img.Close()
			continue
		}

		v.buffer = append(v.buffer, img)
	}

	return nil
}

// Frames returns the channel frames are published on
func (v *VideoSource) Frames() <-chan compositor.Frame {
	return v.frames
}

// VideoStats is a snapshot of video source activity
type VideoStats struct {
	// Buffered is the number of frames held in memory, zero for a capture
	// device
	Buffered int `json:"buffered"`
	// Placeholder is set when a missing video was substituted
	Placeholder bool   `json:"placeholder"`
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
}

// Stats returns the video source counters
func (v *VideoSource) Stats() VideoStats {
	return VideoStats{
		Buffered:    v.buffered,
		Placeholder: v.placeholder,
		Published:   v.published.Load(),
		Dropped:     v.dropped.Load(),
	}
}

// Run publishes frames at the configured rate until the context is
// cancelled
func (v *VideoSource) Run(ctx context.Context) error {

	ticker := time.NewTicker(v.params.interval())
	defer ticker.Stop()

	// pointer to position in video buffer
	frameNum := -1

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:
			var frame compositor.Frame

			frameNum++

			if v.device != nil {
				var ok bool

				if frame, ok = v.capture(frameNum); !ok {
					continue
				}

			} else {
				if frameNum > len(v.buffer)-1 {
					// last frame reached so loop back to start of video
					frameNum = 0
				}

				frame = compositor.Frame{
					Index:      frameNum,
					Img:        v.buffer[frameNum],
					CapturedAt: time.Now(),
				}
			}

			v.publish(frame)
		}
	}
}

// capture reads the next frame from the capture device
func (v *VideoSource) capture(frameNum int) (compositor.Frame, bool) {

	img := gocv.NewMat()

	if ok := v.device.Read(&img); !ok || img.Empty() {
		img.Close()
		v.log.Debug("capture device returned no frame", zap.Int("frame", frameNum))
		return compositor.Frame{}, false
	}

	return compositor.Frame{
		Index:      frameNum,
		Img:        img,
		CapturedAt: time.Now(),
		Release: func() {
			img.Close()
		},
	}, true
}

// publish sends the frame without blocking, dropping it when no reader is
// keeping up
func (v *VideoSource) publish(frame compositor.Frame) {

	select {
	case v.frames <- frame:
		v.published.Add(1)

	default:
		v.dropped.Add(1)

		if frame.Release != nil {
			frame.Release()
		}
	}
}

// Close frees the buffered frames and capture device
func (v *VideoSource) Close() error {

	for _, img := range v.buffer {
		img.Close()
	}

	v.buffer = nil

	if v.device != nil {
		return v.device.Close()
	}

	return nil
}
