package rankingevents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/baysaa41/mmo-ranking/app/shared/attr"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// RankingCompleted is published once a new snapshot has been activated.
type RankingCompleted struct {
	ContestID  int64     `json:"contest_id"`
	SnapshotID uuid.UUID `json:"snapshot_id"`
	ComputedAt time.Time `json:"computed_at"`
	SheetCount int       `json:"sheet_count"`
	ScopeCount int       `json:"scope_count"`
}

// Publisher announces ranking events to other services.
type Publisher interface {
	PublishRankingCompleted(ctx context.Context, event RankingCompleted) error
	Close()
}

// drainTimeout bounds how long Close waits for buffered events to reach the
// server.
const drainTimeout = 5 * time.Second

// NATSPublisher publishes JSON events on a core NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
	closed  chan struct{}
}

// NewNATSPublisher connects to url. An empty url returns a publisher that
// drops every event.
func NewNATSPublisher(url, subject string, logger *slog.Logger) (Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if url == "" {
		logger.Info("NATS url not set, ranking events are disabled")
		return NoopPublisher{}, nil
	}

	closed := make(chan struct{})
	conn, err := nats.Connect(url,
		nats.Name("olympiad-ranking"),
		nats.Timeout(10*time.Second),
		nats.DrainTimeout(drainTimeout),
		nats.ClosedHandler(func(*nats.Conn) { close(closed) }),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("Connected to NATS", attr.String("url", conn.ConnectedUrlRedacted()), attr.String("subject", subject))

	return &NATSPublisher{conn: conn, subject: subject, logger: logger, closed: closed}, nil
}

func (p *NATSPublisher) PublishRankingCompleted(ctx context.Context, event RankingCompleted) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal ranking event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("failed to publish ranking event: %w", err)
	}
	p.logger.DebugContext(ctx, "Published ranking event",
		attr.ContestID(event.ContestID),
		attr.String("snapshot_id", event.SnapshotID.String()),
	)
	return nil
}

// Close drains the connection and blocks until it is closed, so events
// published just before process exit still reach the server.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return
	}
	select {
	case <-p.closed:
	case <-time.After(drainTimeout + time.Second):
		p.logger.Warn("NATS drain did not finish, closing connection")
		p.conn.Close()
	}
}

// NoopPublisher discards events.
type NoopPublisher struct{}

func (NoopPublisher) PublishRankingCompleted(context.Context, RankingCompleted) error { return nil }
func (NoopPublisher) Close()                                                          {}
