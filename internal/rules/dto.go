package rules

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/masumbillah21/conditional-discount/pkg/db/models"
	"github.com/masumbillah21/conditional-discount/pkg/enums"
)

// SelectorInput names the products a selector applies to.
type SelectorInput struct {
	Type string   `json:"type"`
	IDs  []string `json:"ids"`
}

// RuleInput carries the merchant-authored fields for create and update.
type RuleInput struct {
	Title              string          `json:"title"`
	DiscountKind       string          `json:"discount_kind"`
	DiscountValue      decimal.Decimal `json:"discount_value"`
	MinQuantity        int             `json:"min_quantity"`
	MaxDiscountedUnits *int            `json:"max_discounted_units"`
	Required           SelectorInput   `json:"required"`
	Discounted         *SelectorInput  `json:"discounted"`
}

// ListParams holds cursor pagination inputs for rule listing.
type ListParams struct {
	ShopDomain string
	Limit      int
	Cursor     string
}

// ListResult is one page of rules plus the next cursor, empty when done.
type ListResult struct {
	Items  []RuleItem `json:"items"`
	Cursor string     `json:"cursor,omitempty"`
}

// RuleItem is the public shape of a rule row.
type RuleItem struct {
	ID                 string          `json:"id"`
	Title              string          `json:"title"`
	Status             string          `json:"status"`
	DiscountKind       string          `json:"discount_kind"`
	DiscountValue      decimal.Decimal `json:"discount_value"`
	MinQuantity        int             `json:"min_quantity"`
	MaxDiscountedUnits *int            `json:"max_discounted_units,omitempty"`
	Required           SelectorInput   `json:"required"`
	Discounted         SelectorInput   `json:"discounted"`
	PlatformDiscountID *string         `json:"platform_discount_id,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func toRuleItem(rule *models.DiscountRule) RuleItem {
	return RuleItem{
		ID:                 rule.ID.String(),
		Title:              rule.Title,
		Status:             rule.Status.String(),
		DiscountKind:       rule.DiscountKind.String(),
		DiscountValue:      rule.DiscountValue,
		MinQuantity:        rule.MinQuantity,
		MaxDiscountedUnits: rule.MaxDiscountedUnits,
		Required:           SelectorInput{Type: rule.RequiredType.String(), IDs: rule.RequiredIDs},
		Discounted:         SelectorInput{Type: rule.DiscountedType.String(), IDs: rule.DiscountedIDs},
		PlatformDiscountID: rule.PlatformDiscountID,
		CreatedAt:          rule.CreatedAt,
		UpdatedAt:          rule.UpdatedAt,
	}
}

type selectorBlob struct {
	Type string   `json:"type"`
	IDs  []string `json:"ids"`
}

type configBlob struct {
	MinQuantity        int             `json:"min_quantity"`
	MaxDiscountedUnits *int            `json:"max_discounted_units,omitempty"`
	DiscountType       string          `json:"discount_type"`
	DiscountValue      decimal.Decimal `json:"discount_value"`
	Required           selectorBlob    `json:"required"`
	Discounted         selectorBlob    `json:"discounted"`
}

// ConfigBlob serializes the rule into the canonical configuration JSON
// written to the platform metafield and later fed to the allocation
// engine verbatim.
func ConfigBlob(rule *models.DiscountRule) (string, error) {
	blob := configBlob{
		MinQuantity:        rule.MinQuantity,
		MaxDiscountedUnits: rule.MaxDiscountedUnits,
		DiscountType:       rule.DiscountKind.String(),
		DiscountValue:      rule.DiscountValue,
		Required:           selectorBlob{Type: rule.RequiredType.String(), IDs: rule.RequiredIDs},
		Discounted:         selectorBlob{Type: rule.DiscountedType.String(), IDs: rule.DiscountedIDs},
	}
	raw, err := json.Marshal(blob)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func selectorIDs(sel SelectorInput) []string {
	if enums.TargetType(sel.Type) == enums.TargetTypeAll {
		return nil
	}
	return sel.IDs
}
