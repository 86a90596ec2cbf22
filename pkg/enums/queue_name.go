package enums

import "fmt"

// QueueName identifies one of the cross-cutting exception queues layered on
// top of department placement.
type QueueName string

const (
	QueueHold           QueueName = "hold"
	QueueRush           QueueName = "rush"
	QueueRedo           QueueName = "redo"
	QueueRefinish       QueueName = "refinish"
	QueueExternalVendor QueueName = "external_vendor"
)

var validQueueNames = []QueueName{
	QueueHold,
	QueueRush,
	QueueRedo,
	QueueRefinish,
	QueueExternalVendor,
}

// String implements fmt.Stringer.
func (q QueueName) String() string {
	return string(q)
}

// IsValid reports whether the value is a known QueueName.
func (q QueueName) IsValid() bool {
	for _, candidate := range validQueueNames {
		if candidate == q {
			return true
		}
	}
	return false
}

// ParseQueueName converts raw input into a QueueName.
func ParseQueueName(value string) (QueueName, error) {
	for _, candidate := range validQueueNames {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid queue name %q", value)
}
