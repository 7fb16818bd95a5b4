/*
Package compositor renders camera frames with the pose wireframe and
feedback banners drawn over them, producing an encoded image ready for the
display.  Compositing runs on background goroutines so frame rendering never
blocks the UI loop.
*/
package compositor

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"sync"
	"sync/atomic"
	"time"

	"github.com/swdee/go-repose/feedback"
	"github.com/swdee/go-repose/pose"
	"github.com/swdee/go-repose/render"
	"gocv.io/x/gocv"
	"golang.org/x/sync/semaphore"
)

// Frame is a captured video frame
type Frame struct {
	// Seq is the acquisition sequence number, increasing with each frame
	Seq uint64
	// Index is the position of the frame in its source.  Looping sources
	// restart it at zero.
	Index int
	// Img holds the frame pixels in BGR order.  It must not be modified
	// while the frame is being composited.
	Img gocv.Mat
	// CapturedAt is when the frame was captured
	CapturedAt time.Time
	// Release is called once compositing no longer needs Img.  May be nil.
	Release func()
}

// release calls the frame's Release function if one was given
func (f Frame) release() {
	if f.Release != nil {
		f.Release()
	}
}

// Result is a composited frame
type Result struct {
	Seq        uint64
	CapturedAt time.Time
	// JPEG is the encoded composited image
	JPEG []byte
	// Connections is the number of wireframe connections drawn
	Connections int
	Err         error
}

// Params defines the compositor settings
type Params struct {
	// Quality is the JPEG encoding quality [0-100]
	Quality int
	// MaxInFlight caps the number of frames composited at once, frames
	// dispatched beyond the cap are dropped.  Zero means unlimited.
	MaxInFlight int64
	// Font is used to render the guide and feedback banners
	Font render.Font
	// LabelMargin is the distance of banners from the image edge
	LabelMargin int
	// Antialias draws the wireframe with anti-aliased round capped strokes on
	// an RGBA copy of the frame instead of with OpenCV lines
	Antialias bool
}

// DefaultParams returns an instance of Params configured with default values:
// - Quality: 85
// - Max In Flight: unlimited
// - Label Margin: 24
// - Antialias: false
func DefaultParams() Params {
	return Params{
		Quality:     85,
		MaxInFlight: 0,
		Font:        render.DefaultFont(),
		LabelMargin: 24,
		Antialias:   false,
	}
}

// Stats is a snapshot of compositor activity
type Stats struct {
	Dispatched uint64 `json:"dispatched"`
	Dropped    uint64 `json:"dropped"`
	InFlight   int64  `json:"inFlight"`
}

// Compositor renders frames with pose overlays
type Compositor struct {
	params Params
	// sem limits concurrent composites when MaxInFlight is set
	sem        *semaphore.Weighted
	dispatched atomic.Uint64
	dropped    atomic.Uint64
	inFlight   atomic.Int64
	// wg tracks dispatched composites still running
	wg sync.WaitGroup
	// now is the clock used to evaluate banner fades
	now func() time.Time
}

// New returns a compositor
func New(p Params) *Compositor {

	c := &Compositor{
		params: p,
		now:    time.Now,
	}

	if p.MaxInFlight > 0 {
		c.sem = semaphore.NewWeighted(p.MaxInFlight)
	}

	return c
}

// Composite draws the frame, then the wireframe of every pose in the order
// given, then the guide and feedback banners from the snapshot, and encodes
// the result.  Pose coordinates are scaled by the frame width and height.
// With no poses and no snapshot the frame is encoded unmodified.
func (c *Compositor) Composite(frame Frame, poses []pose.Pose, snap *feedback.Snapshot) Result {

	res := Result{
		Seq:        frame.Seq,
		CapturedAt: frame.CapturedAt,
	}

	resImg := gocv.NewMat()
	defer resImg.Close()

	// copy the source image and annotate the copy
	frame.Img.CopyTo(&resImg)

	if len(poses) > 0 {
		var err error

		if res.Connections, err = c.drawPoses(&resImg, poses); err != nil {
			res.Err = fmt.Errorf("error drawing frame %d: %w", frame.Seq, err)
			return res
		}
	}

	if snap != nil {
		for _, label := range c.labels(*snap) {
			render.DrawLabel(&resImg, label, c.params.Font)
		}
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, resImg,
		[]int{int(gocv.IMWriteJpegQuality), c.params.Quality})

	if err != nil {
		res.Err = fmt.Errorf("error encoding frame %d: %w", frame.Seq, err)
		return res
	}

	defer buf.Close()

	// copy out of C memory so the result outlives the buffer
	res.JPEG = append([]byte(nil), buf.GetBytes()...)

	return res
}

// drawPoses draws the pose wireframes on to img and returns the number of
// connections drawn
func (c *Compositor) drawPoses(img *gocv.Mat, poses []pose.Pose) (int, error) {

	tr := pose.Scale(float64(img.Cols()), float64(img.Rows()))

	if !c.params.Antialias {
		surface := render.NewMatSurface(img)
		defer surface.Close()

		return render.PoseWireframes(surface, poses, &tr), nil
	}

	src, err := img.ToImage()

	if err != nil {
		return 0, fmt.Errorf("error converting to RGBA: %w", err)
	}

	rgba, ok := src.(*image.RGBA)

	if !ok {
		rgba = image.NewRGBA(src.Bounds())
		draw.Draw(rgba, rgba.Bounds(), src, src.Bounds().Min, draw.Src)
	}

	conns := render.PoseWireframes(render.NewImageSurface(rgba), poses, &tr)

	drawn, err := gocv.ImageToMatRGB(rgba)

	if err != nil {
		return 0, fmt.Errorf("error converting from RGBA: %w", err)
	}

	defer drawn.Close()

	drawn.CopyTo(img)

	return conns, nil
}

// labels returns the banners to draw for the snapshot
func (c *Compositor) labels(snap feedback.Snapshot) []render.Label {

	labels := make([]render.Label, 0, 2)

	if snap.GuideVisible {
		labels = append(labels, render.Label{
			Text:       snap.GuideText,
			Background: render.Gray,
			Opacity:    1,
			Placement:  render.Top,
			Margin:     c.params.LabelMargin,
		})
	}

	if opacity := snap.BannerOpacity(c.now()); opacity > 0 {
		bg := render.Red

		if snap.Banner.Correct {
			bg = render.Green
		}

		labels = append(labels, render.Label{
			Text:       snap.Banner.Text,
			Background: bg,
			Opacity:    opacity,
			Placement:  render.Bottom,
			Margin:     c.params.LabelMargin,
		})
	}

	return labels
}

// Dispatch composites the frame on a new goroutine and sends the result to
// out.  Any number of frames may be in flight, results are delivered in
// completion order which may differ from frame order.  It returns false if
// the frame was dropped because MaxInFlight composites are already running.
// Once ctx is cancelled results not yet delivered are discarded.
func (c *Compositor) Dispatch(ctx context.Context, frame Frame, poses []pose.Pose,
	snap *feedback.Snapshot, out chan<- Result) bool {

	if c.sem != nil && !c.sem.TryAcquire(1) {
		c.dropped.Add(1)
		frame.release()
		return false
	}

	c.dispatched.Add(1)
	c.inFlight.Add(1)
	c.wg.Add(1)

	go func() {
		defer c.wg.Done()

		res := c.Composite(frame, poses, snap)
		frame.release()

		c.inFlight.Add(-1)

		if c.sem != nil {
			c.sem.Release(1)
		}

		select {
		case out <- res:
		case <-ctx.Done():
		}
	}()

	return true
}

// Wait blocks until every dispatched composite has released its frame and
// delivered or discarded its result.  Frame images shared between frames
// must not be freed before Wait returns.
func (c *Compositor) Wait() {
	c.wg.Wait()
}

// Stats returns the compositor activity counters
func (c *Compositor) Stats() Stats {
	return Stats{
		Dispatched: c.dispatched.Load(),
		Dropped:    c.dropped.Load(),
		InFlight:   c.inFlight.Load(),
	}
}
