package allocation

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/masumbillah21/conditional-discount/pkg/enums"
)

func TestParseConfigMissingOrInvalid(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "not-json", `{"min_quantity":`} {
		if cfg := ParseConfig(raw); cfg != nil {
			t.Fatalf("expected nil config for %q, got %+v", raw, cfg)
		}
	}
}

func TestParseConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg := ParseConfig(`{}`)
	if cfg == nil {
		t.Fatal("empty object is still a configuration")
	}
	if cfg.MinQuantity != 1 {
		t.Fatalf("expected default min quantity 1, got %d", cfg.MinQuantity)
	}
	if cfg.MaxDiscountedUnits != 0 {
		t.Fatalf("expected unlimited cap, got %d", cfg.MaxDiscountedUnits)
	}
	if cfg.Kind != enums.DiscountKindPercentage {
		t.Fatalf("expected percentage default, got %s", cfg.Kind)
	}
	if !cfg.Value.IsZero() {
		t.Fatalf("expected zero magnitude, got %s", cfg.Value)
	}
	if cfg.Required.Type != enums.TargetTypeAll || cfg.Discounted.Type != enums.TargetTypeAll {
		t.Fatalf("expected all-products selectors, got %+v / %+v", cfg.Required, cfg.Discounted)
	}
}

func TestParseConfigCoercesStringNumbers(t *testing.T) {
	t.Parallel()

	cfg := ParseConfig(`{"min_quantity":"3","max_discounted_units":"2","discount_value":"12.5"}`)
	if cfg == nil {
		t.Fatal("expected config")
	}
	if cfg.MinQuantity != 3 {
		t.Fatalf("expected min quantity 3, got %d", cfg.MinQuantity)
	}
	if cfg.MaxDiscountedUnits != 2 {
		t.Fatalf("expected cap 2, got %d", cfg.MaxDiscountedUnits)
	}
	if !cfg.Value.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("expected magnitude 12.5, got %s", cfg.Value)
	}
}

func TestParseConfigPercentageNotClamped(t *testing.T) {
	t.Parallel()

	cfg := ParseConfig(`{"discount_type":"percentage","discount_value":250}`)
	if cfg == nil {
		t.Fatal("expected config")
	}
	if !cfg.Value.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("out-of-range percentage must pass through, got %s", cfg.Value)
	}
}

func TestParseConfigMirrorsRequiredWhenDiscountedEmpty(t *testing.T) {
	t.Parallel()

	cfg := ParseConfig(`{"required":{"type":"product","ids":["x","y"]},"discounted":{"type":"product","ids":[]}}`)
	if cfg == nil {
		t.Fatal("expected config")
	}
	if !cfg.Discounted.Matches("x") || !cfg.Discounted.Matches("y") {
		t.Fatalf("discounted selector must mirror required, got %+v", cfg.Discounted)
	}
	if !cfg.Required.SameTargeting(cfg.Discounted) {
		t.Fatal("mirrored selectors must co-target")
	}
}

func TestParseConfigLegacyAppliesToBothSelectors(t *testing.T) {
	t.Parallel()

	cfg := ParseConfig(`{"target_type":"collection","target_ids":["c1"]}`)
	if cfg == nil {
		t.Fatal("expected config")
	}
	if cfg.Required.Type != enums.TargetTypeCollection {
		t.Fatalf("expected collection selector, got %s", cfg.Required.Type)
	}
	if !cfg.Required.SameTargeting(cfg.Discounted) {
		t.Fatal("legacy config must co-target required and discounted")
	}
	if cfg.Discounted.Matches("other") {
		t.Fatal("legacy selector must not match unlisted ids")
	}
}

func TestParseConfigUnknownTargetTypeFallsBackToAll(t *testing.T) {
	t.Parallel()

	cfg := ParseConfig(`{"required":{"type":"variant","ids":["v1"]}}`)
	if cfg == nil {
		t.Fatal("expected config")
	}
	if cfg.Required.Type != enums.TargetTypeAll {
		t.Fatalf("unknown target type must degrade to all, got %s", cfg.Required.Type)
	}
}

func TestParseConfigNegativeValuesNormalized(t *testing.T) {
	t.Parallel()

	cfg := ParseConfig(`{"min_quantity":-2,"max_discounted_units":0,"discount_value":-5}`)
	if cfg == nil {
		t.Fatal("expected config")
	}
	if cfg.MinQuantity != 1 {
		t.Fatalf("negative min quantity must normalize to 1, got %d", cfg.MinQuantity)
	}
	if cfg.MaxDiscountedUnits != 0 {
		t.Fatalf("non-positive cap must mean unlimited, got %d", cfg.MaxDiscountedUnits)
	}
	if !cfg.Value.IsZero() {
		t.Fatalf("negative magnitude must normalize to zero, got %s", cfg.Value)
	}
}
