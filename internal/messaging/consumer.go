package messaging

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"leave-service/internal/metrics"
	"leave-service/internal/notify"

	"github.com/nats-io/nats.go"
)

// QueueGroup spreads deliveries across service replicas so each
// notification is mailed once.
const QueueGroup = "leave-mailer"

const deliverTimeout = 30 * time.Second

// Transport names NATS in notification metrics.
const Transport = "nats"

// Consumer receives notification events from NATS and hands them to a sink,
// normally a notify.MailPublisher.
type Consumer struct {
	conn    *nats.Conn
	subject string
	sink    notify.Publisher
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu  sync.Mutex
	sub *nats.Subscription
}

func NewConsumer(url string, subject string, sink notify.Publisher, logger *slog.Logger, m *metrics.Metrics) (*Consumer, error) {
	nc, err := nats.Connect(url, nats.Name("leave-service-consumer"))
	if err != nil {
		return nil, err
	}

	return &Consumer{
		conn:    nc,
		subject: subject,
		sink:    sink,
		logger:  logger,
		metrics: m,
	}, nil
}

// Start subscribes and blocks until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	sub, err := c.conn.QueueSubscribe(c.subject, QueueGroup, func(msg *nats.Msg) {
		c.handle(msg)
	})
	if err != nil {
		return err
	}
	if err := c.conn.Flush(); err != nil {
		return err
	}

	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()
	c.logger.Info("NATS consumer started", "subject", c.subject, "queue", QueueGroup)

	<-ctx.Done()
	return ctx.Err()
}

func (c *Consumer) handle(msg *nats.Msg) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	e, err := notify.Unmarshal(msg.Data)
	if err != nil {
		c.logger.Error("failed to decode notification", "error", err, "subject", msg.Subject)
		c.metrics.Messaging.RecordDecodeFailure(ctx, c.route(""))
		return
	}

	err = c.sink.Publish(ctx, e)
	c.metrics.Messaging.RecordDelivery(ctx, c.route(string(e.Kind)), time.Since(start), err)
	if err != nil {
		c.logger.Error("failed to deliver notification", "error", err, "event_id", e.ID, "kind", e.Kind)
		return
	}

	c.logger.Info("notification delivered", "event_id", e.ID, "kind", e.Kind, "to", e.To)
}

func (c *Consumer) route(kind string) metrics.Route {
	return metrics.Route{Transport: Transport, Destination: c.subject, Kind: kind}
}

func (c *Consumer) Close() error {
	c.mu.Lock()
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
	return nil
}

// HealthCheck verifies NATS connection is healthy
func (c *Consumer) HealthCheck() error {
	return connHealth(c.conn)
}
