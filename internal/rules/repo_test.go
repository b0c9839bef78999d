package rules

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/masumbillah21/conditional-discount/pkg/db/models"
	"github.com/masumbillah21/conditional-discount/pkg/enums"
	"github.com/masumbillah21/conditional-discount/pkg/pagination"
)

func setupRulesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS discount_rules (
  id TEXT PRIMARY KEY,
  shop_domain TEXT NOT NULL,
  title TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  discount_kind TEXT NOT NULL DEFAULT 'percentage',
  discount_value TEXT NOT NULL DEFAULT '0',
  min_quantity INTEGER NOT NULL DEFAULT 1,
  max_discounted_units INTEGER,
  required_type TEXT NOT NULL DEFAULT 'all',
  required_ids TEXT,
  discounted_type TEXT NOT NULL DEFAULT 'all',
  discounted_ids TEXT,
  platform_discount_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedRule(t *testing.T, repo *Repository, shop string, createdAt time.Time, status enums.RuleStatus) *models.DiscountRule {
	t.Helper()

	rule := &models.DiscountRule{
		ID:             uuid.New(),
		ShopDomain:     shop,
		Title:          "Rule " + uuid.NewString()[:8],
		Status:         status,
		DiscountKind:   enums.DiscountKindPercentage,
		DiscountValue:  decimal.NewFromInt(10),
		MinQuantity:    2,
		RequiredType:   enums.TargetTypeProduct,
		RequiredIDs:    []string{"p1", "p2"},
		DiscountedType: enums.TargetTypeProduct,
		DiscountedIDs:  []string{"p1", "p2"},
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	created, err := repo.Create(context.Background(), rule)
	require.NoError(t, err)
	return created
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(setupRulesTestDB(t))

	created := seedRule(t, repo, "demo.myshopify.com", time.Now().UTC(), enums.RuleStatusDraft)

	found, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "demo.myshopify.com", found.ShopDomain)
	assert.Equal(t, enums.TargetTypeProduct, found.RequiredType)
	assert.Equal(t, []string{"p1", "p2"}, []string(found.RequiredIDs))
	assert.True(t, found.DiscountValue.Equal(decimal.NewFromInt(10)))
}

func TestRepositoryListPaginatesByCursor(t *testing.T) {
	repo := NewRepository(setupRulesTestDB(t))

	base := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		seedRule(t, repo, "demo.myshopify.com", base.Add(time.Duration(i)*time.Hour), enums.RuleStatusDraft)
	}
	seedRule(t, repo, "other.myshopify.com", base, enums.RuleStatusDraft)

	firstPage, err := repo.List(context.Background(), listQuery{
		shopDomain: "demo.myshopify.com",
		limit:      2,
	})
	require.NoError(t, err)
	require.Len(t, firstPage, 2)
	assert.True(t, firstPage[0].CreatedAt.After(firstPage[1].CreatedAt))

	secondPage, err := repo.List(context.Background(), listQuery{
		shopDomain: "demo.myshopify.com",
		limit:      2,
		cursor: &pagination.Cursor{
			CreatedAt: firstPage[1].CreatedAt,
			ID:        firstPage[1].ID,
		},
	})
	require.NoError(t, err)
	require.Len(t, secondPage, 1)
	assert.True(t, secondPage[0].CreatedAt.Before(firstPage[1].CreatedAt))
}

func TestRepositoryCountActiveExcludesGivenRule(t *testing.T) {
	repo := NewRepository(setupRulesTestDB(t))

	active := seedRule(t, repo, "demo.myshopify.com", time.Now().UTC(), enums.RuleStatusActive)
	seedRule(t, repo, "demo.myshopify.com", time.Now().UTC(), enums.RuleStatusDraft)
	seedRule(t, repo, "other.myshopify.com", time.Now().UTC(), enums.RuleStatusActive)

	count, err := repo.CountActive(context.Background(), "demo.myshopify.com", uuid.New())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = repo.CountActive(context.Background(), "demo.myshopify.com", active.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRepositoryFindActiveByShop(t *testing.T) {
	repo := NewRepository(setupRulesTestDB(t))

	seedRule(t, repo, "demo.myshopify.com", time.Now().UTC(), enums.RuleStatusDraft)
	active := seedRule(t, repo, "demo.myshopify.com", time.Now().UTC(), enums.RuleStatusActive)

	found, err := repo.FindActiveByShop(context.Background(), "demo.myshopify.com")
	require.NoError(t, err)
	assert.Equal(t, active.ID, found.ID)

	_, err = repo.FindActiveByShop(context.Background(), "empty.myshopify.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepositoryUpdateAndDelete(t *testing.T) {
	repo := NewRepository(setupRulesTestDB(t))

	rule := seedRule(t, repo, "demo.myshopify.com", time.Now().UTC(), enums.RuleStatusDraft)
	rule.Title = "Renamed"
	rule.Status = enums.RuleStatusActive
	require.NoError(t, repo.Update(context.Background(), rule))

	found, err := repo.FindByID(context.Background(), rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", found.Title)
	assert.Equal(t, enums.RuleStatusActive, found.Status)

	require.NoError(t, repo.Delete(context.Background(), rule.ID))
	_, err = repo.FindByID(context.Background(), rule.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
