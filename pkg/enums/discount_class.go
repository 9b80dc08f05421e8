package enums

import "fmt"

// DiscountClass is the per-customer pricing tier chosen at registration.
type DiscountClass string

const (
	DiscountClassIndividual DiscountClass = "individual"
	DiscountClassRetail     DiscountClass = "retail"
)

var validDiscountClasses = []DiscountClass{
	DiscountClassIndividual,
	DiscountClassRetail,
}

// String implements fmt.Stringer.
func (d DiscountClass) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DiscountClass.
func (d DiscountClass) IsValid() bool {
	for _, candidate := range validDiscountClasses {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscountClass converts raw input into a DiscountClass.
func ParseDiscountClass(value string) (DiscountClass, error) {
	for _, candidate := range validDiscountClasses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount class %q", value)
}
