package enums

import "fmt"

// ExternalVendorStatus tracks an order's position in the external vendor
// handoff. Vendor handoffs are externally driven, so any value may follow any
// other.
type ExternalVendorStatus string

const (
	ExternalVendorNotSent         ExternalVendorStatus = "not_sent"
	ExternalVendorShippedToVendor ExternalVendorStatus = "shipped_to_vendor"
	ExternalVendorAtVendor        ExternalVendorStatus = "at_vendor"
	ExternalVendorReturned        ExternalVendorStatus = "returned"
	ExternalVendorWaitingShipping ExternalVendorStatus = "waiting_shipping"
)

var validExternalVendorStatuses = []ExternalVendorStatus{
	ExternalVendorNotSent,
	ExternalVendorShippedToVendor,
	ExternalVendorAtVendor,
	ExternalVendorReturned,
	ExternalVendorWaitingShipping,
}

// String implements fmt.Stringer.
func (e ExternalVendorStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known ExternalVendorStatus.
func (e ExternalVendorStatus) IsValid() bool {
	for _, candidate := range validExternalVendorStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseExternalVendorStatus converts raw input into an ExternalVendorStatus.
func ParseExternalVendorStatus(value string) (ExternalVendorStatus, error) {
	for _, candidate := range validExternalVendorStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid external vendor status %q", value)
}
