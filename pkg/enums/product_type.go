package enums

import "fmt"

// ProductType classifies what a production order manufactures.
type ProductType string

const (
	ProductTypeRim           ProductType = "rim"
	ProductTypeSteeringWheel ProductType = "steering_wheel"
	ProductTypeCapStandard   ProductType = "cap_standard"
	ProductTypeCapTwoBar     ProductType = "cap_two_bar"
	ProductTypeCapThreeBar   ProductType = "cap_three_bar"
	ProductTypeCapBullet     ProductType = "cap_bullet"
)

var validProductTypes = []ProductType{
	ProductTypeRim,
	ProductTypeSteeringWheel,
	ProductTypeCapStandard,
	ProductTypeCapTwoBar,
	ProductTypeCapThreeBar,
	ProductTypeCapBullet,
}

// String implements fmt.Stringer.
func (p ProductType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProductType.
func (p ProductType) IsValid() bool {
	for _, candidate := range validProductTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsCuttable reports whether the product type carries the waiting/cut
// sub-status. Only caps and steering wheels are cut from blanks; rims never
// hold a cut status.
func (p ProductType) IsCuttable() bool {
	switch p {
	case ProductTypeSteeringWheel, ProductTypeCapStandard, ProductTypeCapTwoBar, ProductTypeCapThreeBar, ProductTypeCapBullet:
		return true
	}
	return false
}

// ParseProductType converts raw input into a ProductType.
func ParseProductType(value string) (ProductType, error) {
	for _, candidate := range validProductTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product type %q", value)
}
