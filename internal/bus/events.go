package bus

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/yuanying/narrator/internal/playback"
)

// EventMessage is the JSON payload published for every playback event.
type EventMessage struct {
	Kind         string    `json:"kind"`
	SessionID    string    `json:"session_id"`
	State        string    `json:"state"`
	ChunkIndex   int       `json:"chunk_index"`
	Offset       int       `json:"offset"`
	SourceOffset int       `json:"source_offset"`
	Progress     float64   `json:"progress"`
	Error        string    `json:"error,omitempty"`
	Time         time.Time `json:"time"`
}

func newEventMessage(e playback.Event) EventMessage {
	msg := EventMessage{
		Kind:         e.Kind.String(),
		SessionID:    e.SessionID,
		State:        e.State.String(),
		ChunkIndex:   e.ChunkIndex,
		Offset:       e.Offset,
		SourceOffset: e.SourceOffset,
		Progress:     e.Progress,
		Time:         e.Time,
	}
	if e.Err != nil {
		msg.Error = e.Err.Error()
	}
	return msg
}

// Subject returns the subject events of one session and kind are published
// on: <prefix>.playback.<session>.<kind>. Events without a session use the
// token "none".
func Subject(prefix, sessionID, kind string) string {
	if sessionID == "" {
		sessionID = noSession
	}
	return strings.Join([]string{strings.TrimSuffix(prefix, "."), "playback", sessionID, kind}, ".")
}

const noSession = "none"

// Publisher is a playback.Sink that forwards events to NATS. Publish never
// blocks on the network; failures are logged and dropped.
type Publisher struct {
	client *Client
	prefix string
	log    *slog.Logger
}

func NewPublisher(client *Client, prefix string) *Publisher {
	return &Publisher{
		client: client,
		prefix: prefix,
		log:    client.log.With(slog.String("component", "bus-publisher")),
	}
}

func (p *Publisher) Publish(e playback.Event) {
	msg := newEventMessage(e)
	data, err := json.Marshal(msg)
	if err != nil {
		p.log.Warn("encode playback event failed", slog.String("error", err.Error()))
		return
	}
	if err := p.client.conn.Publish(Subject(p.prefix, msg.SessionID, msg.Kind), data); err != nil {
		p.log.Warn("publish playback event failed",
			slog.String("kind", msg.Kind),
			slog.String("error", err.Error()))
	}
}

// Flush waits until published events reach the server.
func (p *Publisher) Flush() error {
	return p.client.conn.Flush()
}

// SubscribeEvents delivers every playback event under prefix to handler.
// Messages that fail to decode are logged and skipped.
func (c *Client) SubscribeEvents(prefix string, handler func(EventMessage)) (*nats.Subscription, error) {
	subject := strings.TrimSuffix(prefix, ".") + ".playback.>"
	sub, err := c.conn.Subscribe(subject, func(m *nats.Msg) {
		var msg EventMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			c.log.Warn("discarding malformed playback event",
				slog.String("subject", m.Subject),
				slog.String("error", err.Error()))
			return
		}
		handler(msg)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}
	return sub, nil
}
