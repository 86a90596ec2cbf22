package enums

import "fmt"

// CutStatus is the secondary sub-status carried by cuttable product types.
// Orders of non-cuttable types always hold CutStatusNone.
type CutStatus string

const (
	CutStatusNone    CutStatus = "none"
	CutStatusWaiting CutStatus = "waiting"
	CutStatusCut     CutStatus = "cut"
)

var validCutStatuses = []CutStatus{
	CutStatusNone,
	CutStatusWaiting,
	CutStatusCut,
}

// String implements fmt.Stringer.
func (c CutStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CutStatus.
func (c CutStatus) IsValid() bool {
	for _, candidate := range validCutStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCutStatus converts raw input into a CutStatus.
func ParseCutStatus(value string) (CutStatus, error) {
	for _, candidate := range validCutStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cut status %q", value)
}
