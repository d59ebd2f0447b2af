package messaging

import (
	"context"
	"log/slog"
	"time"

	"leave-service/internal/metrics"
	"leave-service/internal/notify"

	"github.com/nats-io/nats.go"
)

// Producer publishes notification events on a NATS subject.
type Producer struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewProducer(url string, subject string, logger *slog.Logger, m *metrics.Metrics) (*Producer, error) {
	nc, err := nats.Connect(url, nats.Name("leave-service-producer"))
	if err != nil {
		return nil, err
	}

	logger.Info("NATS producer initialized", "url", url, "subject", subject)

	return &Producer{
		conn:    nc,
		subject: subject,
		logger:  logger,
		metrics: m,
	}, nil
}

func (p *Producer) Publish(ctx context.Context, e notify.Event) error {
	data, err := e.Marshal()
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal notification", "error", err)
		return err
	}

	start := time.Now()
	err = p.conn.Publish(p.subject, data)
	if err == nil {
		err = p.conn.FlushWithContext(ctx)
	}
	p.metrics.Messaging.RecordPublish(ctx, metrics.Route{Transport: Transport, Destination: p.subject, Kind: string(e.Kind)}, time.Since(start), err)

	if err != nil {
		p.logger.ErrorContext(ctx, "failed to send notification to NATS", "error", err, "event_id", e.ID)
		return err
	}

	p.logger.DebugContext(ctx, "notification sent to NATS", "subject", p.subject, "kind", e.Kind, "event_id", e.ID)
	return nil
}

// HealthCheck verifies NATS connection is healthy
func (p *Producer) HealthCheck() error {
	return connHealth(p.conn)
}

func (p *Producer) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
	return nil
}

func connHealth(conn *nats.Conn) error {
	if conn == nil {
		return nats.ErrConnectionClosed
	}
	if !conn.IsConnected() {
		return nats.ErrDisconnected
	}
	return nil
}
