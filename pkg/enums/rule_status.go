package enums

import "fmt"

// RuleStatus tracks the lifecycle of a discount rule record.
type RuleStatus string

const (
	RuleStatusDraft    RuleStatus = "draft"
	RuleStatusActive   RuleStatus = "active"
	RuleStatusArchived RuleStatus = "archived"
)

var validRuleStatuses = []RuleStatus{
	RuleStatusDraft,
	RuleStatusActive,
	RuleStatusArchived,
}

// String implements fmt.Stringer.
func (r RuleStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RuleStatus.
func (r RuleStatus) IsValid() bool {
	for _, candidate := range validRuleStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRuleStatus converts raw input into a RuleStatus.
func ParseRuleStatus(value string) (RuleStatus, error) {
	for _, candidate := range validRuleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rule status %q", value)
}
