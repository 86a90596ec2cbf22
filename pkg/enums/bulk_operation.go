package enums

import "fmt"

// BulkOperation names an operation the bulk coordinator can fan out over an
// order-id set.
type BulkOperation string

const (
	BulkOperationMove         BulkOperation = "move"
	BulkOperationEdit         BulkOperation = "edit"
	BulkOperationDelete       BulkOperation = "delete"
	BulkOperationSetCutStatus BulkOperation = "set_cut_status"
)

var validBulkOperations = []BulkOperation{
	BulkOperationMove,
	BulkOperationEdit,
	BulkOperationDelete,
	BulkOperationSetCutStatus,
}

// String implements fmt.Stringer.
func (b BulkOperation) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BulkOperation.
func (b BulkOperation) IsValid() bool {
	for _, candidate := range validBulkOperations {
		if candidate == b {
			return true
		}
	}
	return false
}

// ParseBulkOperation converts raw input into a BulkOperation.
func ParseBulkOperation(value string) (BulkOperation, error) {
	for _, candidate := range validBulkOperations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bulk operation %q", value)
}
