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

// Producer publishes notification events to a Kafka topic, keyed by leave id
// so events for one leave stay ordered on a partition.
type Producer struct {
	producer sarama.SyncProducer
	client   sarama.Client
	topic    string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Transport names Kafka in notification metrics.
const Transport = "kafka"

var ErrClientUnavailable = errors.New("kafka client unavailable")

func NewProducer(brokers []string, topic string, logger *slog.Logger, m *metrics.Metrics) (*Producer, error) {
	client, err := sarama.NewClient(brokers, ProducerConfig())
	if err != nil {
		return nil, err
	}
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("kafka producer initialized", "brokers", brokers, "topic", topic)

	p := NewProducerWithClient(producer, topic, logger, m)
	p.client = client
	return p, nil
}

// NewProducerWithClient wraps an existing sarama producer.
func NewProducerWithClient(producer sarama.SyncProducer, topic string, logger *slog.Logger, m *metrics.Metrics) *Producer {
	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger,
		metrics:  m,
	}
}

func ProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	return config
}

func (p *Producer) Publish(ctx context.Context, e notify.Event) error {
	valueBytes, err := e.Marshal()
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal notification", "error", err)
		return err
	}

	key := e.Payload.LeaveID
	if key == "" {
		key = e.ID.String()
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(valueBytes),
		Headers: []sarama.RecordHeader{
			{Key: []byte("kind"), Value: []byte(e.Kind)},
		},
	}

	start := time.Now()
	partition, offset, err := p.producer.SendMessage(msg)
	p.metrics.Messaging.RecordPublish(ctx, metrics.Route{Transport: Transport, Destination: p.topic, Kind: string(e.Kind)}, time.Since(start), err)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to send notification to kafka", "error", err, "event_id", e.ID)
		return err
	}

	p.logger.DebugContext(ctx, "notification sent to kafka", "topic", p.topic, "partition", partition, "offset", offset, "key", key)
	return nil
}

// HealthCheck reports whether the cluster controller is reachable through
// the producer's client.
func (p *Producer) HealthCheck() error {
	if p.client == nil || p.client.Closed() {
		return ErrClientUnavailable
	}
	if _, err := p.client.Controller(); err != nil {
		return err
	}
	return nil
}

func (p *Producer) Close() error {
	err := p.producer.Close()
	if p.client != nil && !p.client.Closed() {
		err = errors.Join(err, p.client.Close())
	}
	return err
}
