package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type LeaveMetrics struct {
	applied       metric.Int64Counter
	decided       metric.Int64Counter
	overridden    metric.Int64Counter
	notifications metric.Int64Counter
}

func NewLeaveMetrics(meter metric.Meter) (*LeaveMetrics, error) {
	lm := &LeaveMetrics{}

	var err error

	lm.applied, err = meter.Int64Counter(
		"leave_service.leaves.applied",
		metric.WithDescription("Total number of leave applications accepted"),
		metric.WithUnit("{leave}"),
	)
	if err != nil {
		return nil, err
	}

	lm.decided, err = meter.Int64Counter(
		"leave_service.leaves.decided",
		metric.WithDescription("Total number of approve/reject decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	lm.overridden, err = meter.Int64Counter(
		"leave_service.leaves.overridden",
		metric.WithDescription("Total number of admin overrides"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	lm.notifications, err = meter.Int64Counter(
		"leave_service.notifications.enqueued",
		metric.WithDescription("Notifications handed to the dispatcher"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, err
	}

	return lm, nil
}

func (lm *LeaveMetrics) RecordApplied(ctx context.Context, leaveType string) {
	if lm != nil && lm.applied != nil {
		lm.applied.Add(ctx, 1, metric.WithAttributes(attribute.String("leave_type", leaveType)))
	}
}

func (lm *LeaveMetrics) RecordDecided(ctx context.Context, status string) {
	if lm != nil && lm.decided != nil {
		lm.decided.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

func (lm *LeaveMetrics) RecordOverridden(ctx context.Context, status string) {
	if lm != nil && lm.overridden != nil {
		lm.overridden.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
	}
}

// RecordNotification counts enqueue attempts; dropped is true when the queue refused the event.
func (lm *LeaveMetrics) RecordNotification(ctx context.Context, kind string, dropped bool) {
	if lm != nil && lm.notifications != nil {
		lm.notifications.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.Bool("dropped", dropped),
		))
	}
}
