// Package allocation implements the cart discount allocation engine: a
// pure function deciding whether a quantity threshold of required
// products is met and which cart units receive the price adjustment.
// It performs no I/O, holds no state between invocations, and never
// surfaces an error: every failure mode degrades to an empty result.
package allocation

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/masumbillah21/conditional-discount/pkg/enums"
)

// SelectionStrategyFirst tags every produced descriptor: the engine
// emits at most one discount per invocation, so the first matching
// strategy is the only one ever exercised.
const SelectionStrategyFirst = "FIRST"

// SkipPolicy is the exemption rule applied before slicing discounted
// units, made explicit so the bifurcation is inspectable instead of
// emergent positional logic.
type SkipPolicy string

const (
	// SkipPolicyExemptThreshold exempts the cheapest MinQuantity units:
	// the threshold units the buyer must purchase stay at full price.
	// Applied when required and discounted selectors co-target.
	SkipPolicyExemptThreshold SkipPolicy = "exempt_threshold"
	// SkipPolicyNone discounts the whole eligible set once the gate
	// passes. Applied when the selectors target different populations.
	SkipPolicyNone SkipPolicy = "none"
)

// LineTarget is one (line id, discounted quantity) pair of the result.
type LineTarget struct {
	LineID   string
	Quantity int
}

// DiscountValue is the single resolved adjustment attached to every
// discounted unit of the result.
type DiscountValue struct {
	Kind   enums.DiscountKind
	Amount decimal.Decimal
}

// Result is the discount-application descriptor. An empty target list
// means "apply nothing" and is a valid outcome, not an error.
type Result struct {
	Targets  []LineTarget
	Value    DiscountValue
	Policy   SkipPolicy
	Strategy string
}

// Applied reports whether any unit was selected for discounting.
func (r Result) Applied() bool {
	return len(r.Targets) > 0
}

// NoDiscount is the explicit empty result.
func NoDiscount() Result {
	return Result{Strategy: SelectionStrategyFirst}
}

// Evaluate parses the raw configuration blob and runs the allocation
// over the cart snapshot. Absent or unparseable configuration yields
// the empty result.
func Evaluate(rawConfig string, lines []CartLine) Result {
	cfg := ParseConfig(rawConfig)
	if cfg == nil {
		return NoDiscount()
	}
	return EvaluateConfig(cfg, lines)
}

// EvaluateConfig runs the classify, gate, and select stages against an
// already normalized configuration.
func EvaluateConfig(cfg *RuleConfig, lines []CartLine) Result {
	if cfg == nil {
		return NoDiscount()
	}

	units := expandLines(lines)

	requiredCount := 0
	var discountable []CartUnit
	for _, unit := range units {
		if cfg.Required.Matches(unit.ProductID) {
			requiredCount++
		}
		if cfg.Discounted.Matches(unit.ProductID) {
			discountable = append(discountable, unit)
		}
	}

	if requiredCount < cfg.MinQuantity {
		return NoDiscount()
	}
	if len(discountable) == 0 {
		return NoDiscount()
	}

	policy := SkipPolicyNone
	if cfg.Required.SameTargeting(cfg.Discounted) {
		policy = SkipPolicyExemptThreshold
	}

	chosen := selectUnits(discountable, cfg, policy)
	if len(chosen) == 0 {
		return NoDiscount()
	}

	return Result{
		Targets: groupByLine(chosen),
		Value: DiscountValue{
			Kind:   cfg.Kind,
			Amount: cfg.Value,
		},
		Policy:   policy,
		Strategy: SelectionStrategyFirst,
	}
}

// selectUnits orders the discountable units cheapest-first and applies
// the skip policy and cap. The sort is stable on encounter order so
// equal prices resolve deterministically.
func selectUnits(discountable []CartUnit, cfg *RuleConfig, policy SkipPolicy) []CartUnit {
	sorted := make([]CartUnit, len(discountable))
	copy(sorted, discountable)
	sort.SliceStable(sorted, func(i, j int) bool {
		cmp := sorted[i].UnitPrice.Cmp(sorted[j].UnitPrice)
		if cmp != 0 {
			return cmp < 0
		}
		return sorted[i].ord < sorted[j].ord
	})

	candidates := sorted
	if policy == SkipPolicyExemptThreshold {
		if cfg.MinQuantity >= len(sorted) {
			return nil
		}
		candidates = sorted[cfg.MinQuantity:]
	}

	if cfg.MaxDiscountedUnits > 0 && len(candidates) > cfg.MaxDiscountedUnits {
		candidates = candidates[:cfg.MaxDiscountedUnits]
	}
	return candidates
}

// groupByLine merges chosen units into per-line quantities, each line
// id appearing at most once, ordered by first selection.
func groupByLine(units []CartUnit) []LineTarget {
	index := map[string]int{}
	var targets []LineTarget
	for _, unit := range units {
		if at, ok := index[unit.LineID]; ok {
			targets[at].Quantity++
			continue
		}
		index[unit.LineID] = len(targets)
		targets = append(targets, LineTarget{LineID: unit.LineID, Quantity: 1})
	}
	return targets
}
