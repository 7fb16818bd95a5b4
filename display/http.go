package display

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/swdee/go-repose/feedback"
	"go.uber.org/zap"
)

const (
	// writeWait is the time allowed to write a message to a watcher
	writeWait = 10 * time.Second
	// pongWait is the time allowed to read the next pong from a watcher
	pongWait = 60 * time.Second
	// pingPeriod must be less than pongWait
	pingPeriod = 50 * time.Second
)

// SummaryFunc returns the workout summary for the current session
type SummaryFunc func(ctx context.Context) (feedback.Summary, error)

// FeedbackMessage is the websocket message sent to feedback watchers
type FeedbackMessage struct {
	Type      string            `json:"type"`
	Payload   feedback.Snapshot `json:"payload"`
	Opacity   float64           `json:"opacity"`
	Timestamp int64             `json:"timestamp"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Routes registers the display endpoints on the mux
func (d *Display) Routes(mux *http.ServeMux, summary SummaryFunc) {
	mux.HandleFunc("/stream", d.Stream)
	mux.HandleFunc("/frame", d.Frame)
	mux.HandleFunc("/feedback", d.Feedback)
	mux.HandleFunc("/stats", d.StatsHandler)
	mux.HandleFunc("/summary", d.SummaryHandler(summary))
}

// Stream is the HTTP handler used to stream composited frames to a browser
// as multipart JPEG
func (d *Display) Stream(w http.ResponseWriter, r *http.Request) {

	id, frames := d.frames.Subscribe()
	defer d.frames.Unsubscribe(id)

	d.log.Info("stream viewer connected", zap.String("viewer", id))

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")

	flusher, _ := w.(http.Flusher)

	// send headers before the first frame is ready
	if flusher != nil {
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			d.log.Info("stream viewer disconnected", zap.String("viewer", id))
			return

		case buf, ok := <-frames:
			if !ok {
				return
			}

			// write the image to the response writer
			w.Write([]byte("--frame\r\n"))
			w.Write([]byte("Content-Type: image/jpeg\r\n\r\n"))
			w.Write(buf)

			if _, err := w.Write([]byte("\r\n")); err != nil {
				d.log.Debug("stream write failed", zap.String("viewer", id), zap.Error(err))
				return
			}

			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

// Frame is the HTTP handler serving the frame on display as a single JPEG
func (d *Display) Frame(w http.ResponseWriter, r *http.Request) {

	jpeg, seq := d.Latest()

	if jpeg == nil {
		http.Error(w, "no frame on display", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Frame-Seq", strconv.FormatUint(seq, 10))
	w.Write(jpeg)
}

// Feedback upgrades the connection to a websocket and pushes every feedback
// state change to the watcher
func (d *Display) Feedback(w http.ResponseWriter, r *http.Request) {

	conn, err := upgrader.Upgrade(w, r, nil)

	if err != nil {
		d.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	id, snaps := d.feedback.Subscribe()

	d.log.Info("feedback watcher connected", zap.String("watcher", id))

	closed := make(chan struct{})

	go d.readPump(conn, closed)

	defer func() {
		d.feedback.Unsubscribe(id)
		conn.Close()
		d.log.Info("feedback watcher disconnected", zap.String("watcher", id))
	}()

	// send the current state straight away
	if snap, ok := d.LastFeedback(); ok {
		if err := writeFeedback(conn, snap); err != nil {
			return
		}
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return

		case snap, ok := <-snaps:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := writeFeedback(conn, snap); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards watcher messages, keeping the read deadline alive with
// pongs, and closes closed when the connection ends
func (d *Display) readPump(conn *websocket.Conn, closed chan<- struct{}) {

	defer close(closed)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				d.log.Debug("feedback watcher read error", zap.Error(err))
			}
			return
		}
	}
}

// writeFeedback sends a snapshot to the watcher
func writeFeedback(conn *websocket.Conn, snap feedback.Snapshot) error {

	now := time.Now()

	conn.SetWriteDeadline(now.Add(writeWait))

	return conn.WriteJSON(FeedbackMessage{
		Type:      "FEEDBACK",
		Payload:   snap,
		Opacity:   snap.BannerOpacity(now),
		Timestamp: now.Unix(),
	})
}

// StatsHandler reports the display counters as JSON
func (d *Display) StatsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, d.Stats())
}

// JSONHandler returns a handler reporting the value returned by fn as JSON
func JSONHandler(fn func() any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, fn())
	}
}

// SummaryHandler returns a handler reporting the session summary as JSON
func (d *Display) SummaryHandler(summary SummaryFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {

		sum, err := summary(r.Context())

		if err != nil {
			d.log.Warn("summary unavailable", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}

		writeJSON(w, http.StatusOK, sum)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
