package enums

import "fmt"

// TargetType describes how a rule selects eligible products.
type TargetType string

const (
	TargetTypeAll        TargetType = "all"
	TargetTypeProduct    TargetType = "product"
	TargetTypeCollection TargetType = "collection"
)

var validTargetTypes = []TargetType{
	TargetTypeAll,
	TargetTypeProduct,
	TargetTypeCollection,
}

// String implements fmt.Stringer.
func (t TargetType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TargetType.
func (t TargetType) IsValid() bool {
	for _, candidate := range validTargetTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTargetType converts raw input into a TargetType.
func ParseTargetType(value string) (TargetType, error) {
	for _, candidate := range validTargetTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid target type %q", value)
}
