package allocation

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/masumbillah21/conditional-discount/pkg/enums"
)

// RuleConfig is the canonical, normalized rule configuration. All
// downstream stages operate on this form only; backward compatibility
// with older blob shapes lives entirely in ParseConfig.
type RuleConfig struct {
	MinQuantity        int
	MaxDiscountedUnits int // 0 means unlimited
	Kind               enums.DiscountKind
	Value              decimal.Decimal
	Required           TargetSelector
	Discounted         TargetSelector
}

// configPayload mirrors the persisted blob. The required/discounted
// selectors are the current shape; target_type/target_ids is the legacy
// single-selector shape kept for rules authored before the split.
type configPayload struct {
	MinQuantity        *flexInt         `json:"min_quantity"`
	MaxDiscountedUnits *flexInt         `json:"max_discounted_units"`
	DiscountType       string           `json:"discount_type"`
	DiscountValue      *decimal.Decimal `json:"discount_value"`
	Required           *selectorPayload `json:"required"`
	Discounted         *selectorPayload `json:"discounted"`

	LegacyTargetType string   `json:"target_type"`
	LegacyTargetIDs  []string `json:"target_ids"`
}

type selectorPayload struct {
	Type string   `json:"type"`
	IDs  []string `json:"ids"`
}

// flexInt tolerates integers serialized as JSON numbers or strings.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		return nil
	}
	raw = strings.Trim(raw, `"`)
	if raw == "" {
		return nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		// Tolerate floats like 3.0 coming out of loosely typed authors.
		if asFloat, ferr := strconv.ParseFloat(raw, 64); ferr == nil {
			*f = flexInt(int(asFloat))
			return nil
		}
		return err
	}
	*f = flexInt(parsed)
	return nil
}

// ParseConfig normalizes the raw blob into a RuleConfig. A missing or
// unparseable blob yields nil: the caller must treat that as "apply
// nothing", never as a failure.
func ParseConfig(raw string) *RuleConfig {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	var payload configPayload
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil {
		return nil
	}

	cfg := RuleConfig{
		MinQuantity: 1,
		Kind:        enums.DiscountKindPercentage,
		Value:       decimal.Zero,
	}

	if payload.MinQuantity != nil && int(*payload.MinQuantity) > 1 {
		cfg.MinQuantity = int(*payload.MinQuantity)
	}
	if payload.MaxDiscountedUnits != nil && int(*payload.MaxDiscountedUnits) > 0 {
		cfg.MaxDiscountedUnits = int(*payload.MaxDiscountedUnits)
	}
	if kind, err := enums.ParseDiscountKind(payload.DiscountType); err == nil {
		cfg.Kind = kind
	}
	if payload.DiscountValue != nil && payload.DiscountValue.Sign() >= 0 {
		// Percentage values above 100 are passed through verbatim; the
		// authoring UI is the place that constrains them.
		cfg.Value = *payload.DiscountValue
	}

	cfg.Required = resolveRequired(payload)
	cfg.Discounted = resolveDiscounted(payload, cfg.Required)

	return &cfg
}

func resolveRequired(payload configPayload) TargetSelector {
	if payload.Required != nil {
		return selectorFromPayload(*payload.Required)
	}
	if payload.LegacyTargetType != "" {
		return selectorFromPayload(selectorPayload{
			Type: payload.LegacyTargetType,
			IDs:  payload.LegacyTargetIDs,
		})
	}
	return NewSelector(enums.TargetTypeAll, nil)
}

func resolveDiscounted(payload configPayload, required TargetSelector) TargetSelector {
	if payload.Discounted == nil {
		// No explicit discounted selector: co-target whatever is required.
		return required
	}
	sel := selectorFromPayload(*payload.Discounted)
	if sel.Type != enums.TargetTypeAll && len(sel.idSet) == 0 && len(required.idSet) > 0 {
		// "buy N of X, discount X" without the author naming X twice.
		return required
	}
	return sel
}

func selectorFromPayload(payload selectorPayload) TargetSelector {
	targetType, err := enums.ParseTargetType(strings.TrimSpace(payload.Type))
	if err != nil {
		return NewSelector(enums.TargetTypeAll, nil)
	}
	return NewSelector(targetType, payload.IDs)
}
