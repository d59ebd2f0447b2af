package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Route identifies the broker path a notification event travels on.
type Route struct {
	Transport   string // "nats" or "kafka"
	Destination string // subject or topic
	Kind        string // notification kind; empty when the payload could not be decoded
}

func (r Route) attrs(extra ...attribute.KeyValue) metric.MeasurementOption {
	kv := append([]attribute.KeyValue{
		attribute.String("transport", r.Transport),
		attribute.String("destination", r.Destination),
		attribute.String("kind", r.Kind),
	}, extra...)
	return metric.WithAttributes(kv...)
}

// MessagingMetrics covers the broker leg between the dispatcher and the mailer.
type MessagingMetrics struct {
	published       metric.Int64Counter
	delivered       metric.Int64Counter
	failures        metric.Int64Counter
	publishLatency  metric.Float64Histogram
	deliveryLatency metric.Float64Histogram
}

func NewMessagingMetrics(meter metric.Meter) (*MessagingMetrics, error) {
	mm := &MessagingMetrics{}

	var err error

	mm.published, err = meter.Int64Counter(
		"leave_service.notifications.published",
		metric.WithDescription("Notification events handed to the broker"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	mm.delivered, err = meter.Int64Counter(
		"leave_service.notifications.delivered",
		metric.WithDescription("Notification events taken off the broker and mailed"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	mm.failures, err = meter.Int64Counter(
		"leave_service.notifications.failures",
		metric.WithDescription("Notification events that failed to publish, decode or deliver"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	// Broker acks are expected well under a second.
	mm.publishLatency, err = meter.Float64Histogram(
		"leave_service.notifications.publish_duration",
		metric.WithDescription("Time to publish a notification event to the broker"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0,
		),
	)
	if err != nil {
		return nil, err
	}

	// Delivery includes the SMTP round trip.
	mm.deliveryLatency, err = meter.Float64Histogram(
		"leave_service.notifications.delivery_duration",
		metric.WithDescription("Time to deliver a consumed notification event"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0,
		),
	)
	if err != nil {
		return nil, err
	}

	return mm, nil
}

func (mm *MessagingMetrics) RecordPublish(ctx context.Context, route Route, duration time.Duration, err error) {
	if mm == nil || mm.published == nil {
		return
	}
	mm.publishLatency.Record(ctx, duration.Seconds(), route.attrs())
	if err != nil {
		mm.failures.Add(ctx, 1, route.attrs(attribute.String("stage", "publish")))
		return
	}
	mm.published.Add(ctx, 1, route.attrs())
}

func (mm *MessagingMetrics) RecordDelivery(ctx context.Context, route Route, duration time.Duration, err error) {
	if mm == nil || mm.delivered == nil {
		return
	}
	mm.deliveryLatency.Record(ctx, duration.Seconds(), route.attrs())
	if err != nil {
		mm.failures.Add(ctx, 1, route.attrs(attribute.String("stage", "deliver")))
		return
	}
	mm.delivered.Add(ctx, 1, route.attrs())
}

// RecordDecodeFailure counts a broker message that was not a notification event.
func (mm *MessagingMetrics) RecordDecodeFailure(ctx context.Context, route Route) {
	if mm == nil || mm.failures == nil {
		return
	}
	mm.failures.Add(ctx, 1, route.attrs(attribute.String("stage", "decode")))
}
