package display

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swdee/go-repose/compositor"
	"github.com/swdee/go-repose/feedback"
)

func result(seq uint64, payload string) compositor.Result {
	return compositor.Result{Seq: seq, JPEG: []byte(payload)}
}

func TestPresentStrictOrder(t *testing.T) {

	d := New(DefaultParams(), nil)

	assert.True(t, d.Present(result(1, "one")))
	assert.True(t, d.Present(result(3, "three")))

	// frame 2 finished compositing after frame 3
	assert.False(t, d.Present(result(2, "two")))
	assert.False(t, d.Present(result(3, "three again")))

	latest, seq := d.Latest()
	assert.Equal(t, "three", string(latest))
	assert.Equal(t, uint64(3), seq)

	stats := d.Stats()
	assert.Equal(t, uint64(2), stats.Presented)
	assert.Equal(t, uint64(2), stats.Stale)
	assert.Equal(t, uint64(3), stats.LastSeq)
}

func TestPresentLastWriteWins(t *testing.T) {

	d := New(Params{StrictOrder: false}, nil)

	assert.True(t, d.Present(result(3, "three")))
	assert.True(t, d.Present(result(2, "two")))

	latest, seq := d.Latest()
	assert.Equal(t, "two", string(latest))
	assert.Equal(t, uint64(2), seq)
}

func TestPresentFailedComposite(t *testing.T) {

	d := New(DefaultParams(), nil)

	res := compositor.Result{Seq: 5, Err: errors.New("encode failed")}
	assert.False(t, d.Present(res))

	latest, seq := d.Latest()
	assert.Nil(t, latest)
	assert.Equal(t, uint64(0), seq)
	assert.Equal(t, uint64(1), d.Stats().Failed)
}

func TestBroadcasterKeepsNewest(t *testing.T) {

	b := newBroadcaster[int]()
	id, ch := b.Subscribe()

	b.Send(1)
	b.Send(2)
	b.Send(3)

	assert.Equal(t, 3, <-ch)
	assert.Equal(t, uint64(2), b.Drops())

	b.Unsubscribe(id)

	_, ok := <-ch
	assert.False(t, ok, "channel closed on unsubscribe")
	assert.Equal(t, 0, b.Len())
}

func TestStatsCountsSlowViewerDrops(t *testing.T) {

	d := New(DefaultParams(), nil)

	_, frames := d.frames.Subscribe()
	_, snaps := d.feedback.Subscribe()

	for i := uint64(1); i <= 4; i++ {
		d.Present(result(i, "frame"))
	}

	d.PublishFeedback(feedback.Snapshot{Action: "one"})
	d.PublishFeedback(feedback.Snapshot{Action: "two"})

	stats := d.Stats()
	assert.Equal(t, uint64(3), stats.FrameDrops)
	assert.Equal(t, uint64(1), stats.FeedbackDrops)
	assert.Equal(t, 1, stats.Viewers)
	assert.Equal(t, 1, stats.Watchers)

	assert.Equal(t, "frame", string(<-frames))
	assert.Equal(t, "two", (<-snaps).Action)

	srv := httptest.NewServer(http.HandlerFunc(d.StatsHandler))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	var got Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, uint64(3), got.FrameDrops)
	assert.Equal(t, uint64(4), got.LastSeq)
}

func TestFrameHandler(t *testing.T) {

	d := New(DefaultParams(), nil)
	srv := httptest.NewServer(http.HandlerFunc(d.Frame))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.True(t, d.Present(result(4, "four")))
	require.True(t, d.Present(result(6, "six")))

	resp, err = http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	assert.Equal(t, "6", resp.Header.Get("X-Frame-Seq"))
	assert.Equal(t, "six", string(body))
}

func TestJSONHandler(t *testing.T) {

	srv := httptest.NewServer(JSONHandler(func() any {
		return map[string]int{"replayed": 12}
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 12, got["replayed"])
}

func TestStreamHandler(t *testing.T) {

	d := New(DefaultParams(), nil)
	srv := httptest.NewServer(http.HandlerFunc(d.Stream))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "multipart/x-mixed-replace; boundary=frame", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return d.Stats().Viewers == 1 },
		2*time.Second, 10*time.Millisecond)

	payload := "not really a jpeg"
	require.True(t, d.Present(result(1, payload)))

	rd := bufio.NewReader(resp.Body)

	boundary, err := rd.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "--frame\r\n", boundary)

	header, err := rd.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "Content-Type: image/jpeg\r\n", header)

	_, err = rd.ReadString('\n')
	require.NoError(t, err)

	body := make([]byte, len(payload))
	_, err = io.ReadFull(rd, body)
	require.NoError(t, err)
	assert.Equal(t, payload, string(body))
}

func TestFeedbackWebsocket(t *testing.T) {

	d := New(DefaultParams(), nil)
	d.PublishFeedback(feedback.Snapshot{GuideVisible: true, GuideText: "Make sure your full body is visible"})

	srv := httptest.NewServer(http.HandlerFunc(d.Feedback))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg FeedbackMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "FEEDBACK", msg.Type)
	assert.True(t, msg.Payload.GuideVisible)

	require.Eventually(t, func() bool { return d.Stats().Watchers == 1 },
		2*time.Second, 10*time.Millisecond)

	d.PublishFeedback(feedback.Snapshot{
		Banner: feedback.Banner{Visible: true, Correct: true, Text: "Excellent! Keep going!"},
	})

	require.NoError(t, conn.ReadJSON(&msg))
	assert.True(t, msg.Payload.Banner.Visible)
	assert.Equal(t, "Excellent! Keep going!", msg.Payload.Banner.Text)
	assert.InDelta(t, 1.0, msg.Opacity, 1e-9)
}

func TestSummaryHandler(t *testing.T) {

	d := New(DefaultParams(), nil)

	tally := feedback.NewTally()
	tally.Add("squat", 3)
	tally.Add("lunge", 1)

	h := d.SummaryHandler(func(ctx context.Context) (feedback.Summary, error) {
		return feedback.Summarize(tally), nil
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/summary", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var sum feedback.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, 4, sum.TotalFrames)
	require.Len(t, sum.Actions, 2)
	assert.Equal(t, "squat", sum.Actions[0].Label)

	failing := d.SummaryHandler(func(ctx context.Context) (feedback.Summary, error) {
		return feedback.Summary{}, errors.New("loop closed")
	})

	rec = httptest.NewRecorder()
	failing(rec, httptest.NewRequest(http.MethodGet, "/summary", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
