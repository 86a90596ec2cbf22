package enums

import "fmt"

// ReorderDirection moves an order one slot within its department list.
type ReorderDirection string

const (
	ReorderUp   ReorderDirection = "up"
	ReorderDown ReorderDirection = "down"
)

// String implements fmt.Stringer.
func (d ReorderDirection) String() string {
	return string(d)
}

// IsValid reports whether the value is a known ReorderDirection.
func (d ReorderDirection) IsValid() bool {
	return d == ReorderUp || d == ReorderDown
}

// ParseReorderDirection converts raw input into a ReorderDirection.
func ParseReorderDirection(value string) (ReorderDirection, error) {
	switch ReorderDirection(value) {
	case ReorderUp:
		return ReorderUp, nil
	case ReorderDown:
		return ReorderDown, nil
	}
	return "", fmt.Errorf("invalid reorder direction %q", value)
}
