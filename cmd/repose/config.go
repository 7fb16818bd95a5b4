package main

import (
	"flag"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the command line settings.  Flag defaults are read from the
// environment, which may be populated from a .env file.
type Config struct {
	HTTPAddr         string
	Video            string
	Device           int
	Annotations      string
	NATSURL          string
	NATSSubject      string
	FPS              int
	MaxInFlight      int
	Antialias        bool
	LogFile          string
	Debug            bool
	StrictOrder      bool
	ReplaceHideTimer bool
}

// loadConfig parses the command line arguments
func loadConfig(args []string) (*Config, []string, error) {

	var notes []string

	// a missing .env file is not an error, system environment variables are
	// used instead
	if err := godotenv.Load(); err != nil {
		notes = append(notes, "no .env file found, using system environment variables")
	}

	cfg := &Config{}
	fs := flag.NewFlagSet("repose", flag.ContinueOnError)

	fs.StringVar(&cfg.HTTPAddr, "a", getEnv("REPOSE_HTTP_ADDR", "localhost:8080"),
		"HTTP Address to run server on, format address:port")
	fs.StringVar(&cfg.Video, "v", getEnv("REPOSE_VIDEO", "../data/workout.mp4"),
		"Video file to replay as the camera")
	fs.IntVar(&cfg.Device, "d", getEnvInt("REPOSE_DEVICE", -1),
		"Capture device ID to read instead of the video file, -1 to disable")
	fs.StringVar(&cfg.Annotations, "n", getEnv("REPOSE_ANNOTATIONS", ""),
		"JSON lines file of recorded pose and action annotations")
	fs.StringVar(&cfg.NATSURL, "nats", getEnv("REPOSE_NATS_URL", ""),
		"NATS server URL to receive action predictions from, empty to disable")
	fs.StringVar(&cfg.NATSSubject, "subject", getEnv("REPOSE_NATS_SUBJECT", "repose.actions"),
		"NATS subject action predictions are published on")
	fs.IntVar(&cfg.FPS, "fps", getEnvInt("REPOSE_FPS", 30),
		"Frame rate to publish video frames at")
	fs.IntVar(&cfg.MaxInFlight, "x", getEnvInt("REPOSE_MAX_INFLIGHT", 0),
		"Maximum frames composited at once, 0 for unlimited")
	fs.BoolVar(&cfg.Antialias, "aa", getEnvBool("REPOSE_ANTIALIAS", false),
		"Draw the pose wireframe with anti-aliased strokes")
	fs.StringVar(&cfg.LogFile, "log", getEnv("REPOSE_LOG_FILE", ""),
		"Rotated JSON log file, empty to log to the console only")
	fs.BoolVar(&cfg.Debug, "debug", getEnvBool("REPOSE_DEBUG", false),
		"Enable debug logging")
	fs.BoolVar(&cfg.StrictOrder, "strict", getEnvBool("REPOSE_STRICT_ORDER", true),
		"Drop composited frames older than the frame on display")
	fs.BoolVar(&cfg.ReplaceHideTimer, "replace-hide", getEnvBool("REPOSE_REPLACE_HIDE", false),
		"New feedback restarts the banner hide timer")

	if err := fs.Parse(args); err != nil {
		return nil, notes, err
	}

	return cfg, notes, nil
}

func getEnv(key string, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if intVal, err := strconv.Atoi(v); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if boolVal, err := strconv.ParseBool(v); err == nil {
			return boolVal
		}
	}
	return defaultVal
}
