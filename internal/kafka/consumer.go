package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"leave-service/internal/metrics"
	"leave-service/internal/notify"

	"github.com/IBM/sarama"
)

const deliverTimeout = 30 * time.Second

type Consumer struct {
	consumer sarama.ConsumerGroup
	topic    string
	handler  *ConsumerGroupHandler
	logger   *slog.Logger
}

func NewConsumer(brokers []string, topic, groupID string, sink notify.Publisher, logger *slog.Logger, m *metrics.Metrics) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V2_8_0_0
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	consumerGroup, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		consumer: consumerGroup,
		topic:    topic,
		handler: &ConsumerGroupHandler{
			Sink:    sink,
			Topic:   topic,
			Logger:  logger,
			Metrics: m,
		},
		logger: logger,
	}, nil
}

// Start consumes until ctx is done. Consume returns on every rebalance, so it
// runs in a loop.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("kafka consumer started", "topic", c.topic)
	for {
		if err := c.consumer.Consume(ctx, []string{c.topic}, c.handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return nil
			}
			c.logger.Error("error consuming messages", "error", err)
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}

// ConsumerGroupHandler implements sarama.ConsumerGroupHandler interface
type ConsumerGroupHandler struct {
	Sink    notify.Publisher
	Topic   string
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func (h *ConsumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *ConsumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim delivers each message once. Undecodable or undeliverable
// messages are logged and still marked so they are not redelivered forever.
func (h *ConsumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		h.Logger.Debug("received notification from Kafka",
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)

		h.deliver(session.Context(), msg)
		session.MarkMessage(msg, "")
	}

	return nil
}

func (h *ConsumerGroupHandler) route(kind string) metrics.Route {
	return metrics.Route{Transport: Transport, Destination: h.Topic, Kind: kind}
}

func (h *ConsumerGroupHandler) deliver(parent context.Context, msg *sarama.ConsumerMessage) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, deliverTimeout)
	defer cancel()

	e, err := notify.Unmarshal(msg.Value)
	if err != nil {
		h.Logger.Error("failed to decode notification", "error", err, "offset", msg.Offset)
		h.Metrics.Messaging.RecordDecodeFailure(ctx, h.route(""))
		return
	}

	err = h.Sink.Publish(ctx, e)
	h.Metrics.Messaging.RecordDelivery(ctx, h.route(string(e.Kind)), time.Since(start), err)
	if err != nil {
		h.Logger.Error("failed to deliver notification", "error", err, "event_id", e.ID, "kind", e.Kind)
		return
	}

	h.Logger.Info("notification delivered", "event_id", e.ID, "kind", e.Kind, "to", e.To)
}
