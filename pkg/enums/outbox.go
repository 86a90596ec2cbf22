package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated          OutboxEventType = "order_created"
	EventOrderMoved            OutboxEventType = "order_moved"
	EventOrderCutStatusChanged OutboxEventType = "order_cut_status_changed"
	EventOrderQueueToggled     OutboxEventType = "order_queue_toggled"
	EventOrderPaymentPosted    OutboxEventType = "order_payment_posted"
	EventOrderNoteAdded        OutboxEventType = "order_note_added"
	EventOrderUpdated          OutboxEventType = "order_updated"
	EventOrderDeleted          OutboxEventType = "order_deleted"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderMoved,
	EventOrderCutStatusChanged,
	EventOrderQueueToggled,
	EventOrderPaymentPosted,
	EventOrderNoteAdded,
	EventOrderUpdated,
	EventOrderDeleted,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
