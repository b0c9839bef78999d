package rules

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/masumbillah21/conditional-discount/pkg/db/models"
	"github.com/masumbillah21/conditional-discount/pkg/pagination"
)

type listQuery struct {
	shopDomain string
	limit      int
	cursor     *pagination.Cursor
}

// Repository exposes discount rule persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a rule repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction handle.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts a new rule row.
func (r *Repository) Create(ctx context.Context, rule *models.DiscountRule) (*models.DiscountRule, error) {
	if err := r.db.WithContext(ctx).Create(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

// Update persists all mutable fields of the rule row.
func (r *Repository) Update(ctx context.Context, rule *models.DiscountRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

// FindByID loads a single rule row.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DiscountRule, error) {
	var rule models.DiscountRule
	if err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// FindActiveByShop returns the shop's active rule, if any.
func (r *Repository) FindActiveByShop(ctx context.Context, shopDomain string) (*models.DiscountRule, error) {
	var rule models.DiscountRule
	err := r.db.WithContext(ctx).
		Where("shop_domain = ? AND status = ?", shopDomain, "active").
		Order("updated_at DESC").
		First(&rule).Error
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// CountActive counts active rules for a shop, excluding one rule id.
func (r *Repository) CountActive(ctx context.Context, shopDomain string, excludeID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DiscountRule{}).
		Where("shop_domain = ? AND status = ? AND id <> ?", shopDomain, "active", excludeID).
		Count(&count).Error
	return count, err
}

// List returns shop-scoped rules using cursor pagination.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.DiscountRule, error) {
	query := r.db.WithContext(ctx).Model(&models.DiscountRule{}).Where("shop_domain = ?", opts.shopDomain)

	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}

	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.DiscountRule
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes the rule row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.DiscountRule{}, "id = ?", id).Error
}
