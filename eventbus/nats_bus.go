// Package eventbus announces finished page actions on NATS.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"xhsmcp/queue"
)

// NATSBus publishes events on one core NATS subject.
type NATSBus struct {
	nc      *nats.Conn
	subject string
}

type NATSConfig struct {
	URL     string
	Subject string
}

func NewNATSBus(cfg NATSConfig) (*NATSBus, error) {
	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("xhs-mcp"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	subject := cfg.Subject
	if subject == "" {
		subject = "xhs.events.action"
	}
	return &NATSBus{nc: nc, subject: subject}, nil
}

func (b *NATSBus) Publish(ctx context.Context, evt Event) error {
	if !evt.Valid() {
		return errors.New("invalid event: missing required fields")
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.nc.Publish(b.subject, data)
}

// Close flushes pending messages and closes the connection.
func (b *NATSBus) Close() {
	_ = b.nc.Drain()
}

// Publisher is anything events can be sent to.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// ActionNotifier turns finished queue jobs into events.
type ActionNotifier struct {
	pub    Publisher
	logger *slog.Logger
	now    func() time.Time
}

func NewActionNotifier(pub Publisher, logger *slog.Logger) *ActionNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActionNotifier{pub: pub, logger: logger.With("component", "eventbus"), now: time.Now}
}

// EventForJob builds the event announcing job.
func EventForJob(job queue.Job, now time.Time) Event {
	typ := TypeActionCompleted
	switch job.Status {
	case queue.StatusFailed:
		typ = TypeActionFailed
	case queue.StatusCancelled:
		typ = TypeActionCancelled
	}
	meta := map[string]any{
		"status":      job.Status,
		"duration_ms": job.DurationMs,
	}
	for k, v := range job.Params {
		meta[k] = v
	}
	return Event{
		EventID:   NewEventID("xhs_", now),
		Source:    Source,
		Type:      typ,
		Timestamp: now,
		Context:   EventContext{JobID: job.ID, Action: job.Action},
		Payload:   EventPayload{Text: job.Error, Metadata: meta},
	}
}

func (n *ActionNotifier) JobFinished(ctx context.Context, job queue.Job) {
	if err := n.pub.Publish(ctx, EventForJob(job, n.now())); err != nil {
		n.logger.Warn("publishing action event failed", "job_id", job.ID, "err", err)
	}
}
