// Package notify carries leave notifications from the request path to the
// mailbox: the services enqueue an Event on a Dispatcher, worker goroutines
// hand it to a Publisher (NATS, Kafka, direct SMTP or log) and broker
// consumers finally render and mail it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Kind string

const (
	KindApplicationSubmitted Kind = "application_submitted"
	KindDecisionMade         Kind = "decision_made"
)

// Payload is the data needed to render either email.
type Payload struct {
	LeaveID     string    `json:"leaveId"`
	StudentName string    `json:"studentName"`
	FacultyName string    `json:"facultyName,omitempty"`
	LeaveType   string    `json:"leaveType"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
	Duration    int       `json:"duration"`
	Reason      string    `json:"reason,omitempty"`
	Status      string    `json:"status,omitempty"`
	Comment     string    `json:"comment,omitempty"`
	DecidedBy   string    `json:"decidedBy,omitempty"`
}

type Event struct {
	ID         uuid.UUID `json:"id"`
	Kind       Kind      `json:"kind"`
	To         string    `json:"to"`
	Payload    Payload   `json:"payload"`
	OccurredAt time.Time `json:"occurredAt"`
}

func NewEvent(kind Kind, to string, payload Payload, now time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Kind:       kind,
		To:         to,
		Payload:    payload,
		OccurredAt: now,
	}
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

func Unmarshal(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode notification: %w", err)
	}
	if e.To == "" {
		return Event{}, fmt.Errorf("decode notification: missing recipient")
	}
	switch e.Kind {
	case KindApplicationSubmitted, KindDecisionMade:
	default:
		return Event{}, fmt.Errorf("decode notification: unknown kind %q", e.Kind)
	}
	return e, nil
}

// Notifier is the capability the leave services see. Notify must not block.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Publisher moves an event one hop further: onto a broker, or into a mailbox.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error {
	return f(ctx, e)
}
