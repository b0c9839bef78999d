package rules

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/masumbillah21/conditional-discount/pkg/db"
	"github.com/masumbillah21/conditional-discount/pkg/db/models"
	"github.com/masumbillah21/conditional-discount/pkg/enums"
	pkgerrors "github.com/masumbillah21/conditional-discount/pkg/errors"
	"github.com/masumbillah21/conditional-discount/pkg/metrics"
	pkgpagination "github.com/masumbillah21/conditional-discount/pkg/pagination"
)

type rulesRepository interface {
	Create(ctx context.Context, rule *models.DiscountRule) (*models.DiscountRule, error)
	Update(ctx context.Context, rule *models.DiscountRule) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.DiscountRule, error)
	List(ctx context.Context, opts listQuery) ([]models.DiscountRule, error)
	CountActive(ctx context.Context, shopDomain string, excludeID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// DiscountSyncer mirrors rule lifecycle into the commerce platform's
// automatic discount objects and their configuration metafield.
type DiscountSyncer interface {
	CreateDiscount(ctx context.Context, shopDomain string, rule *models.DiscountRule, configBlob string) (string, error)
	UpdateDiscount(ctx context.Context, shopDomain, platformID string, rule *models.DiscountRule, configBlob string) error
	ActivateDiscount(ctx context.Context, shopDomain, platformID string) error
	DeactivateDiscount(ctx context.Context, shopDomain, platformID string) error
	DeleteDiscount(ctx context.Context, shopDomain, platformID string) error
}

// Service exposes rule administration semantics.
type Service interface {
	CreateRule(ctx context.Context, shopDomain string, input RuleInput) (*RuleItem, error)
	UpdateRule(ctx context.Context, shopDomain string, ruleID uuid.UUID, input RuleInput) (*RuleItem, error)
	GetRule(ctx context.Context, shopDomain string, ruleID uuid.UUID) (*RuleItem, error)
	ListRules(ctx context.Context, params ListParams) (*ListResult, error)
	DeleteRule(ctx context.Context, shopDomain string, ruleID uuid.UUID) error
	ActivateRule(ctx context.Context, shopDomain string, ruleID uuid.UUID) (*RuleItem, error)
	DeactivateRule(ctx context.Context, shopDomain string, ruleID uuid.UUID) (*RuleItem, error)
}

type service struct {
	repo    rulesRepository
	syncer  DiscountSyncer
	metrics *metrics.EvaluationMetrics
}

// NewService builds a rule service backed by the repository and platform
// syncer. Metrics are optional.
func NewService(repo rulesRepository, syncer DiscountSyncer, m *metrics.EvaluationMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rules repository required")
	}
	if syncer == nil {
		return nil, fmt.Errorf("discount syncer required")
	}
	return &service{repo: repo, syncer: syncer, metrics: m}, nil
}

func (s *service) CreateRule(ctx context.Context, shopDomain string, input RuleInput) (*RuleItem, error) {
	if strings.TrimSpace(shopDomain) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop domain missing")
	}
	if err := validateRuleInput(input); err != nil {
		return nil, err
	}

	rule := ruleFromInput(shopDomain, input)
	rule.Status = enums.RuleStatusDraft

	created, err := s.repo.Create(ctx, rule)
	if err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a rule with this title already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create rule")
	}
	item := toRuleItem(created)
	return &item, nil
}

func (s *service) UpdateRule(ctx context.Context, shopDomain string, ruleID uuid.UUID, input RuleInput) (*RuleItem, error) {
	rule, err := s.loadOwned(ctx, shopDomain, ruleID)
	if err != nil {
		return nil, err
	}
	if err := validateRuleInput(input); err != nil {
		return nil, err
	}

	applyInput(rule, input)

	// The platform copy is refreshed first so a sync failure leaves the
	// stored rule and the live discount consistent.
	if rule.PlatformDiscountID != nil {
		blob, err := ConfigBlob(rule)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "serialize rule config")
		}
		if err := s.syncer.UpdateDiscount(ctx, shopDomain, *rule.PlatformDiscountID, rule, blob); err != nil {
			s.metrics.IncSyncFailure("update")
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync rule update")
		}
	}

	if err := s.repo.Update(ctx, rule); err != nil {
		if pkgdb.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "a rule with this title already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rule")
	}
	item := toRuleItem(rule)
	return &item, nil
}

func (s *service) GetRule(ctx context.Context, shopDomain string, ruleID uuid.UUID) (*RuleItem, error) {
	rule, err := s.loadOwned(ctx, shopDomain, ruleID)
	if err != nil {
		return nil, err
	}
	item := toRuleItem(rule)
	return &item, nil
}

func (s *service) ListRules(ctx context.Context, params ListParams) (*ListResult, error) {
	if strings.TrimSpace(params.ShopDomain) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop domain missing")
	}

	limit := pkgpagination.NormalizeLimit(params.Limit)
	query := listQuery{
		shopDomain: params.ShopDomain,
		limit:      pkgpagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pkgpagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rules")
	}

	nextCursor := ""
	if len(rows) > limit {
		nextCursor = pkgpagination.EncodeCursor(pkgpagination.Cursor{
			CreatedAt: rows[limit].CreatedAt,
			ID:        rows[limit].ID,
		})
		rows = rows[:limit]
	}

	items := make([]RuleItem, len(rows))
	for i := range rows {
		items[i] = toRuleItem(&rows[i])
	}
	return &ListResult{Items: items, Cursor: nextCursor}, nil
}

func (s *service) DeleteRule(ctx context.Context, shopDomain string, ruleID uuid.UUID) error {
	rule, err := s.loadOwned(ctx, shopDomain, ruleID)
	if err != nil {
		return err
	}
	if rule.Status == enums.RuleStatusActive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "deactivate the rule before deleting it")
	}

	if rule.PlatformDiscountID != nil {
		if err := s.syncer.DeleteDiscount(ctx, shopDomain, *rule.PlatformDiscountID); err != nil {
			s.metrics.IncSyncFailure("delete")
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync rule delete")
		}
	}

	if err := s.repo.Delete(ctx, ruleID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete rule")
	}
	return nil
}

func (s *service) ActivateRule(ctx context.Context, shopDomain string, ruleID uuid.UUID) (*RuleItem, error) {
	rule, err := s.loadOwned(ctx, shopDomain, ruleID)
	if err != nil {
		return nil, err
	}
	if rule.Status == enums.RuleStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "rule is already active")
	}

	active, err := s.repo.CountActive(ctx, shopDomain, ruleID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active rules")
	}
	if active > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "another rule is already active for this shop")
	}

	blob, err := ConfigBlob(rule)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "serialize rule config")
	}

	if rule.PlatformDiscountID == nil {
		platformID, err := s.syncer.CreateDiscount(ctx, shopDomain, rule, blob)
		if err != nil {
			s.metrics.IncSyncFailure("create")
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync discount create")
		}
		rule.PlatformDiscountID = &platformID
	} else {
		if err := s.syncer.ActivateDiscount(ctx, shopDomain, *rule.PlatformDiscountID); err != nil {
			s.metrics.IncSyncFailure("activate")
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync discount activate")
		}
	}

	rule.Status = enums.RuleStatusActive
	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rule status")
	}
	item := toRuleItem(rule)
	return &item, nil
}

func (s *service) DeactivateRule(ctx context.Context, shopDomain string, ruleID uuid.UUID) (*RuleItem, error) {
	rule, err := s.loadOwned(ctx, shopDomain, ruleID)
	if err != nil {
		return nil, err
	}
	if rule.Status != enums.RuleStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "rule is not active")
	}

	if rule.PlatformDiscountID != nil {
		if err := s.syncer.DeactivateDiscount(ctx, shopDomain, *rule.PlatformDiscountID); err != nil {
			s.metrics.IncSyncFailure("deactivate")
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sync discount deactivate")
		}
	}

	rule.Status = enums.RuleStatusArchived
	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update rule status")
	}
	item := toRuleItem(rule)
	return &item, nil
}

func (s *service) loadOwned(ctx context.Context, shopDomain string, ruleID uuid.UUID) (*models.DiscountRule, error) {
	if strings.TrimSpace(shopDomain) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop domain missing")
	}
	if ruleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rule id is required")
	}

	rule, err := s.repo.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rule not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup rule")
	}
	if rule.ShopDomain != shopDomain {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "rule not found")
	}
	return rule, nil
}

func validateRuleInput(input RuleInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if _, err := enums.ParseDiscountKind(input.DiscountKind); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid discount kind")
	}
	if input.DiscountValue.Sign() < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount_value must not be negative")
	}
	if input.MinQuantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_quantity must be at least 1")
	}
	if input.MaxDiscountedUnits != nil && *input.MaxDiscountedUnits < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "max_discounted_units must be at least 1")
	}
	if err := validateSelector("required", input.Required); err != nil {
		return err
	}
	if input.Discounted != nil {
		if err := validateSelector("discounted", *input.Discounted); err != nil {
			return err
		}
	}
	return nil
}

func validateSelector(name string, sel SelectorInput) error {
	targetType, err := enums.ParseTargetType(sel.Type)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, name+" selector type is invalid")
	}
	if targetType != enums.TargetTypeAll && len(sel.IDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, name+" selector requires at least one id")
	}
	return nil
}

func ruleFromInput(shopDomain string, input RuleInput) *models.DiscountRule {
	rule := &models.DiscountRule{ShopDomain: shopDomain}
	applyInput(rule, input)
	return rule
}

func applyInput(rule *models.DiscountRule, input RuleInput) {
	rule.Title = strings.TrimSpace(input.Title)
	rule.DiscountKind = enums.DiscountKind(input.DiscountKind)
	rule.DiscountValue = input.DiscountValue
	rule.MinQuantity = input.MinQuantity
	rule.MaxDiscountedUnits = input.MaxDiscountedUnits
	rule.RequiredType = enums.TargetType(input.Required.Type)
	rule.RequiredIDs = selectorIDs(input.Required)

	// A rule that names no discounted selector co-targets the required set.
	discounted := input.Required
	if input.Discounted != nil {
		discounted = *input.Discounted
	}
	rule.DiscountedType = enums.TargetType(discounted.Type)
	rule.DiscountedIDs = selectorIDs(discounted)
}
