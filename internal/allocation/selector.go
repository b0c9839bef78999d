package allocation

import (
	"github.com/masumbillah21/conditional-discount/pkg/enums"
)

// TargetSelector is a targeting predicate over the product-id space.
// Collection selectors are matched against product ids too: the caller
// resolves collection membership into product ids before evaluation.
type TargetSelector struct {
	Type enums.TargetType
	IDs  []string

	idSet map[string]struct{}
}

// NewSelector builds a selector with its membership set precomputed.
func NewSelector(targetType enums.TargetType, ids []string) TargetSelector {
	sel := TargetSelector{Type: targetType, IDs: ids}
	if targetType != enums.TargetTypeAll {
		sel.idSet = make(map[string]struct{}, len(ids))
		for _, id := range ids {
			if id == "" {
				continue
			}
			sel.idSet[id] = struct{}{}
		}
	}
	return sel
}

// Matches reports whether the product id satisfies the predicate.
// An explicit id-based selector with an empty set matches nothing.
func (s TargetSelector) Matches(productID string) bool {
	if s.Type == enums.TargetTypeAll {
		return true
	}
	_, ok := s.idSet[productID]
	return ok
}

// SameTargeting reports whether two selectors resolve to identical
// targeting: both match everything, or both carry the same id set.
func (s TargetSelector) SameTargeting(other TargetSelector) bool {
	if s.Type == enums.TargetTypeAll || other.Type == enums.TargetTypeAll {
		return s.Type == other.Type
	}
	if len(s.idSet) != len(other.idSet) {
		return false
	}
	for id := range s.idSet {
		if _, ok := other.idSet[id]; !ok {
			return false
		}
	}
	return true
}
