package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/masumbillah21/conditional-discount/pkg/enums"
)

// DiscountRule is the merchant-authored rule record. The engine never
// reads this row directly: the rules service serializes it into the
// config blob stored on the platform discount's metafield.
type DiscountRule struct {
	ID                 uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShopDomain         string             `gorm:"column:shop_domain;not null;index"`
	Title              string             `gorm:"column:title;not null"`
	Status             enums.RuleStatus   `gorm:"column:status;not null;default:'draft'"`
	DiscountKind       enums.DiscountKind `gorm:"column:discount_kind;not null;default:'percentage'"`
	DiscountValue      decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,4);not null"`
	MinQuantity        int                `gorm:"column:min_quantity;not null;default:1"`
	MaxDiscountedUnits *int               `gorm:"column:max_discounted_units"`
	RequiredType       enums.TargetType   `gorm:"column:required_type;not null;default:'all'"`
	RequiredIDs        pq.StringArray     `gorm:"column:required_ids;type:text[]"`
	DiscountedType     enums.TargetType   `gorm:"column:discounted_type;not null;default:'all'"`
	DiscountedIDs      pq.StringArray     `gorm:"column:discounted_ids;type:text[]"`
	PlatformDiscountID *string            `gorm:"column:platform_discount_id"`
	CreatedAt          time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
