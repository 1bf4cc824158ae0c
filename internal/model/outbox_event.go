package model

import "time"

// OutboxStatus enumerates relay states of an outbox record.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "PENDING"
	OutboxPublished OutboxStatus = "PUBLISHED"
	OutboxFailed    OutboxStatus = "FAILED"
)

// OutboxEvent is a domain event written in the same transaction as the
// state change it describes — that atomicity is the entire reason this
// table exists. The relay worker publishes PENDING records asynchronously,
// marks PUBLISHED on success and FAILED (with retry bookkeeping) on error.
// Delivery is at-least-once; consumers must be idempotent.
//
// Fields:
//
//	ID            – primary key identifier.
//	AggregateType – kind of aggregate that produced the event (e.g. "Payment").
//	AggregateID   – identifier of that aggregate, stringified.
//	EventType     – event name (e.g. "PaymentCompleted").
//	Topic         – destination queue/topic on the broker.
//	Payload       – JSON-serialized event body.
//	Status        – PENDING, PUBLISHED or FAILED.
//	RetryCount    – failed publish attempts so far.
//	LastError     – message of the most recent publish failure.
//	CreatedAt     – creation timestamp.
//	PublishedAt   – set when the relay marks the record PUBLISHED.
type OutboxEvent struct {
	ID            uint64       // outbox_events.id
	AggregateType string       // outbox_events.aggregate_type
	AggregateID   string       // outbox_events.aggregate_id
	EventType     string       // outbox_events.event_type
	Topic         string       // outbox_events.topic
	Payload       []byte       // outbox_events.payload
	Status        OutboxStatus // outbox_events.status
	RetryCount    int          // outbox_events.retry_count
	LastError     string       // outbox_events.last_error
	CreatedAt     time.Time    // outbox_events.created_at
	PublishedAt   *time.Time   // outbox_events.published_at (nullable)
}

// NewOutboxEvent creates a PENDING record ready to be inserted alongside
// the business write that produced it.
func NewOutboxEvent(aggregateType, aggregateID, eventType, topic string, payload []byte) *OutboxEvent {
	return &OutboxEvent{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Topic:         topic,
		Payload:       payload,
		Status:        OutboxPending,
		CreatedAt:     time.Now().UTC(),
	}
}

// MarkPublished records a successful publish.
func (e *OutboxEvent) MarkPublished() {
	now := time.Now().UTC()
	e.Status = OutboxPublished
	e.PublishedAt = &now
}

// MarkFailed records a publish failure for the retry pass.
func (e *OutboxEvent) MarkFailed(errMsg string) {
	e.Status = OutboxFailed
	e.RetryCount++
	e.LastError = errMsg
}

// ResetToPending puts a FAILED record back in line for the relay.
func (e *OutboxEvent) ResetToPending() {
	e.Status = OutboxPending
}
