package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/swdee/go-repose/feedback"
	"github.com/swdee/go-repose/pipeline"
	"go.uber.org/zap"
)

// ErrNoLabel is returned when an action message has no label
var ErrNoLabel = errors.New("action message has no label")

// ActionMessage is the JSON payload of an action prediction published by a
// remote classifier
type ActionMessage struct {
	feedback.ActionPrediction
	// FrameCount is the number of frames the prediction covers, missing or
	// non positive counts are treated as one frame
	FrameCount int `json:"frameCount,omitempty"`
}

// DecodeAction parses an action message into an action event
func DecodeAction(data []byte) (pipeline.ActionEvent, error) {

	var msg ActionMessage

	if err := json.Unmarshal(data, &msg); err != nil {
		return pipeline.ActionEvent{}, fmt.Errorf("error decoding action: %w", err)
	}

	if msg.Label == "" {
		return pipeline.ActionEvent{}, ErrNoLabel
	}

	if msg.FrameCount <= 0 {
		msg.FrameCount = 1
	}

	return pipeline.ActionEvent{
		Prediction: msg.ActionPrediction,
		FrameCount: msg.FrameCount,
	}, nil
}

// NATSActions receives action predictions from a NATS subject
type NATSActions struct {
	nc      *nats.Conn
	subject string
	out     chan<- pipeline.ActionEvent
	log     *zap.Logger
}

// NewNATSActions connects to the NATS server at url
func NewNATSActions(url, subject string, out chan<- pipeline.ActionEvent,
	log *zap.Logger) (*NATSActions, error) {

	if log == nil {
		log = zap.NewNop()
	}

	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSActions{
		nc:      nc,
		subject: subject,
		out:     out,
		log:     log,
	}, nil
}

// Run forwards decoded action predictions until the context is cancelled.
// Messages that fail to decode are logged and skipped.
func (n *NATSActions) Run(ctx context.Context) error {

	msgs := make(chan *nats.Msg, 64)

	sub, err := n.nc.ChanSubscribe(n.subject, msgs)

	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", n.subject, err)
	}

	defer sub.Unsubscribe()

	n.log.Info("subscribed to action predictions", zap.String("subject", n.subject))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg := <-msgs:
			ev, err := DecodeAction(msg.Data)

			if err != nil {
				n.log.Warn("dropped action message", zap.String("subject", msg.Subject),
					zap.Error(err))
				continue
			}

			select {
			case n.out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Close closes the connection
func (n *NATSActions) Close() {
	if n.nc != nil {
		n.nc.Close()
	}
}
