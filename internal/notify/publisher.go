// Package notify publishes structural change events to NATS so downstream
// consumers (search indexers, cache invalidation, review bots) can react to
// document restructuring without polling.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/mdstruct/internal/delta"
	"git.home.luguber.info/inful/mdstruct/internal/logfields"
)

// ChangeEvent is the wire payload published for each computed delta.
type ChangeEvent struct {
	Document       string           `json:"document"`
	SnapshotID     string           `json:"snapshot_id,omitempty"`
	Classification string           `json:"classification"`
	Stats          delta.Statistics `json:"stats"`
	Moved          int              `json:"moved"`
	BrokenLinks    int              `json:"broken_links"`
	Timestamp      time.Time        `json:"timestamp"`
}

// Publisher sends change events to a NATS JetStream subject.
type Publisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
}

// NewPublisher connects to NATS and prepares a JetStream context.
func NewPublisher(url, subject string) (*Publisher, error) {
	if url == "" {
		return nil, fmt.Errorf("nats url is required")
	}
	if subject == "" {
		return nil, fmt.Errorf("subject is required")
	}

	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	slog.Info("NATS publisher initialized", slog.String("url", url), slog.String("subject", subject))

	return &Publisher{conn: conn, js: js, subject: subject}, nil
}

// PublishDelta publishes a summary of the computed delta.
func (p *Publisher) PublishDelta(ctx context.Context, document, snapshotID string, d *delta.Delta) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	event := ChangeEvent{
		Document:       document,
		SnapshotID:     snapshotID,
		Classification: string(d.Classification),
		Stats:          d.Statistics,
		Moved:          len(d.Moved),
		BrokenLinks:    len(d.BrokenLinks),
		Timestamp:      time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	slog.Debug("Published change event",
		logfields.Document(document),
		logfields.Classification(string(d.Classification)))

	return nil
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
