/*
Example repose serves a replayed workout video over HTTP with the pose
wireframe and correctness feedback banners composited onto every frame.

	http://localhost:8080/stream    MJPEG video
	http://localhost:8080/frame     latest composited frame
	http://localhost:8080/feedback  websocket feedback state
	http://localhost:8080/stats     display counters
	http://localhost:8080/pipeline  pipeline, video and replay counters
	http://localhost:8080/summary   workout summary
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/swdee/go-repose/compositor"
	"github.com/swdee/go-repose/display"
	"github.com/swdee/go-repose/feedback"
	"github.com/swdee/go-repose/pipeline"
	"github.com/swdee/go-repose/source"
	"github.com/swdee/go-repose/uiloop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {

	cfg, notes, err := loadConfig(os.Args[1:])

	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(2)
	}

	log := newLogger(cfg.LogFile, cfg.Debug)
	defer log.Sync()

	for _, note := range notes {
		log.Info(note)
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("repose failed", zap.Error(err))
	}
}

// run wires the pipeline and serves it until interrupted
func run(cfg *Config, log *zap.Logger) error {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the loop outlives the other workers so the summary can be read after
	// they stop
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	loop := uiloop.New(256, log.Named("uiloop"))
	loopDone := make(chan error, 1)

	go func() {
		loopDone <- loop.Run(loopCtx)
	}()

	aggParams := feedback.DefaultParams()
	aggParams.ReplaceHideTimer = cfg.ReplaceHideTimer
	agg := feedback.NewAggregator(aggParams, loop)

	compParams := compositor.DefaultParams()
	compParams.MaxInFlight = int64(cfg.MaxInFlight)
	compParams.Antialias = cfg.Antialias
	comp := compositor.New(compParams)

	disp := display.New(display.Params{StrictOrder: cfg.StrictOrder}, log.Named("display"))

	coord := pipeline.NewCoordinator(pipeline.DefaultParams(), loop, agg, comp, disp,
		log.Named("pipeline"))

	anns := source.Annotations{}

	if cfg.Annotations != "" {
		var err error

		if anns, err = source.LoadAnnotationsFile(cfg.Annotations); err != nil {
			return err
		}

		log.Info("loaded annotations", zap.String("file", cfg.Annotations),
			zap.Int("frames", len(anns)))
	}

	chain := source.NewReplayChain(anns, coord.PoseEvents(), coord.ActionEvents(),
		log.Named("replay"))
	coord.SetChain(chain)

	video, err := openVideo(cfg, log.Named("video"))

	if err != nil {
		return err
	}

	defer video.Close()

	var actions *source.NATSActions

	if cfg.NATSURL != "" {
		actions, err = source.NewNATSActions(cfg.NATSURL, cfg.NATSSubject,
			coord.ActionEvents(), log.Named("nats"))

		if err != nil {
			return err
		}

		defer actions.Close()
	}

	mux := http.NewServeMux()
	disp.Routes(mux, coord.Summary)
	mux.HandleFunc("/pipeline", display.JSONHandler(func() any {
		return collectStats(coord, video, chain)
	}))

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return coord.Run(gctx) })
	g.Go(func() error { return chain.Run(gctx) })
	g.Go(func() error { return video.Run(gctx) })

	if actions != nil {
		g.Go(func() error { return actions.Run(gctx) })
	}

	g.Go(func() error {
		log.Info(fmt.Sprintf("Open browser and view video at http://%s/stream", cfg.HTTPAddr))

		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	coord.PublisherEvents() <- pipeline.PublisherEvent{Publisher: video}

	err = g.Wait()

	// release frames the chain queued after the coordinator stopped, the
	// video buffer is freed on return
	coord.Drain()

	logSummary(coord, video, chain, log)

	stopLoop()
	<-loopDone

	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

// openVideo returns the capture device when one is configured, otherwise the
// video file
func openVideo(cfg *Config, log *zap.Logger) (*source.VideoSource, error) {

	params := source.DefaultVideoParams()
	params.FPS = cfg.FPS

	if cfg.Device >= 0 {
		return source.NewVideoDevice(cfg.Device, params, log)
	}

	return source.NewVideoFile(cfg.Video, params, log)
}

// runStats is reported by the pipeline endpoint
type runStats struct {
	pipeline.Stats
	Video    source.VideoStats `json:"video"`
	Replayed uint64            `json:"replayed"`
}

// collectStats gathers the counters of every pipeline stage
func collectStats(coord *pipeline.Coordinator, video *source.VideoSource,
	chain *source.ReplayChain) runStats {

	return runStats{
		Stats:    coord.Stats(),
		Video:    video.Stats(),
		Replayed: chain.Processed(),
	}
}

// logSummary logs the session workout summary and pipeline counters
func logSummary(coord *pipeline.Coordinator, video *source.VideoSource,
	chain *source.ReplayChain, log *zap.Logger) {

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	sum, err := coord.Summary(ctx)

	if err != nil {
		log.Warn("workout summary unavailable", zap.Error(err))
		return
	}

	for _, action := range sum.Actions {
		log.Info("workout summary", zap.String("session", sum.Session),
			zap.String("action", action.Label), zap.Int("frames", action.Frames),
			zap.Float64("share", action.Share))
	}

	st := collectStats(coord, video, chain)

	log.Info("pipeline stats", zap.Uint64("poses", st.Poses),
		zap.Uint64("actions", st.Actions), zap.Uint64("presented", st.Display.Presented),
		zap.Uint64("stale", st.Display.Stale), zap.Uint64("dropped", st.Compositor.Dropped))

	log.Info("source stats", zap.Bool("placeholder", st.Video.Placeholder),
		zap.Uint64("published", st.Video.Published), zap.Uint64("skipped", st.Video.Dropped),
		zap.Uint64("replayed", st.Replayed))
}
