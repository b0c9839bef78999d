package rules

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/masumbillah21/conditional-discount/pkg/db/models"
	"github.com/masumbillah21/conditional-discount/pkg/enums"
	pkgerrors "github.com/masumbillah21/conditional-discount/pkg/errors"
)

type stubRuleRepo struct {
	created     *models.DiscountRule
	createErr   error
	updated     *models.DiscountRule
	updateErr   error
	findResult  *models.DiscountRule
	findErr     error
	listRows    []models.DiscountRule
	listErr     error
	lastQuery   listQuery
	activeCount int64
	countErr    error
	deletedID   uuid.UUID
	deleteErr   error
}

func (s *stubRuleRepo) Create(ctx context.Context, rule *models.DiscountRule) (*models.DiscountRule, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = rule
	return rule, nil
}

func (s *stubRuleRepo) Update(ctx context.Context, rule *models.DiscountRule) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = rule
	return nil
}

func (s *stubRuleRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.DiscountRule, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.findResult == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.findResult, nil
}

func (s *stubRuleRepo) List(ctx context.Context, opts listQuery) ([]models.DiscountRule, error) {
	s.lastQuery = opts
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listRows, nil
}

func (s *stubRuleRepo) CountActive(ctx context.Context, shopDomain string, excludeID uuid.UUID) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}
	return s.activeCount, nil
}

func (s *stubRuleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedID = id
	return nil
}

type stubSyncer struct {
	createdBlob    string
	createErr      error
	platformID     string
	updatedBlob    string
	updateErr      error
	activated      string
	activateErr    error
	deactivated    string
	deactivateErr  error
	deletedID      string
	deleteErr      error
	createCalls    int
	updateCalls    int
	deleteCalls    int
}

func (s *stubSyncer) CreateDiscount(ctx context.Context, shopDomain string, rule *models.DiscountRule, configBlob string) (string, error) {
	s.createCalls++
	if s.createErr != nil {
		return "", s.createErr
	}
	s.createdBlob = configBlob
	if s.platformID == "" {
		s.platformID = "gid://shopify/DiscountAutomaticNode/1"
	}
	return s.platformID, nil
}

func (s *stubSyncer) UpdateDiscount(ctx context.Context, shopDomain, platformID string, rule *models.DiscountRule, configBlob string) error {
	s.updateCalls++
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updatedBlob = configBlob
	return nil
}

func (s *stubSyncer) ActivateDiscount(ctx context.Context, shopDomain, platformID string) error {
	if s.activateErr != nil {
		return s.activateErr
	}
	s.activated = platformID
	return nil
}

func (s *stubSyncer) DeactivateDiscount(ctx context.Context, shopDomain, platformID string) error {
	if s.deactivateErr != nil {
		return s.deactivateErr
	}
	s.deactivated = platformID
	return nil
}

func (s *stubSyncer) DeleteDiscount(ctx context.Context, shopDomain, platformID string) error {
	s.deleteCalls++
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deletedID = platformID
	return nil
}

func newTestService(t *testing.T, repo rulesRepository, syncer DiscountSyncer) Service {
	t.Helper()
	svc, err := NewService(repo, syncer, nil)
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc
}

func validInput() RuleInput {
	return RuleInput{
		Title:         "Buy 2 get the rest 10% off",
		DiscountKind:  "percentage",
		DiscountValue: decimal.NewFromInt(10),
		MinQuantity:   2,
		Required:      SelectorInput{Type: "product", IDs: []string{"p1", "p2"}},
	}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected coded error, got %v", err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s", code, typed.Code())
	}
}

func TestCreateRuleDefaultsToDraftWithoutSync(t *testing.T) {
	repo := &stubRuleRepo{}
	syncer := &stubSyncer{}
	svc := newTestService(t, repo, syncer)

	item, err := svc.CreateRule(context.Background(), "demo.myshopify.com", validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Status != "draft" {
		t.Fatalf("expected draft status, got %s", item.Status)
	}
	if repo.created == nil {
		t.Fatal("expected rule to be persisted")
	}
	if syncer.createCalls != 0 {
		t.Fatal("create must not touch the platform")
	}
	if repo.created.DiscountedType != enums.TargetTypeProduct {
		t.Fatalf("expected discounted selector to mirror required, got %s", repo.created.DiscountedType)
	}
}

func TestCreateRuleRejectsInvalidInput(t *testing.T) {
	svc := newTestService(t, &stubRuleRepo{}, &stubSyncer{})

	cases := map[string]func(*RuleInput){
		"empty title":         func(in *RuleInput) { in.Title = " " },
		"bad kind":            func(in *RuleInput) { in.DiscountKind = "bogo" },
		"negative value":      func(in *RuleInput) { in.DiscountValue = decimal.NewFromInt(-5) },
		"zero min quantity":   func(in *RuleInput) { in.MinQuantity = 0 },
		"selector without id": func(in *RuleInput) { in.Required.IDs = nil },
	}

	for name, mutate := range cases {
		input := validInput()
		mutate(&input)
		_, err := svc.CreateRule(context.Background(), "demo.myshopify.com", input)
		if err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
		assertCode(t, err, pkgerrors.CodeValidation)
	}
}

func TestActivateRuleCreatesPlatformDiscount(t *testing.T) {
	ruleID := uuid.New()
	repo := &stubRuleRepo{
		findResult: &models.DiscountRule{
			ID:            ruleID,
			ShopDomain:    "demo.myshopify.com",
			Title:         "Bundle deal",
			Status:        enums.RuleStatusDraft,
			DiscountKind:  enums.DiscountKindPercentage,
			DiscountValue: decimal.NewFromInt(15),
			MinQuantity:   3,
			RequiredType:  enums.TargetTypeProduct,
			RequiredIDs:   []string{"p1"},
			DiscountedType: enums.TargetTypeProduct,
			DiscountedIDs:  []string{"p1"},
		},
	}
	syncer := &stubSyncer{}
	svc := newTestService(t, repo, syncer)

	item, err := svc.ActivateRule(context.Background(), "demo.myshopify.com", ruleID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Status != "active" {
		t.Fatalf("expected active status, got %s", item.Status)
	}
	if item.PlatformDiscountID == nil {
		t.Fatal("expected platform discount id to be recorded")
	}
	if syncer.createCalls != 1 {
		t.Fatalf("expected one platform create, got %d", syncer.createCalls)
	}

	var blob map[string]any
	if err := json.Unmarshal([]byte(syncer.createdBlob), &blob); err != nil {
		t.Fatalf("config blob is not valid JSON: %v", err)
	}
	if blob["min_quantity"] != float64(3) {
		t.Fatalf("unexpected min_quantity in blob: %v", blob["min_quantity"])
	}
	if blob["discount_type"] != "percentage" {
		t.Fatalf("unexpected discount_type in blob: %v", blob["discount_type"])
	}
}

func TestActivateRuleRejectsSecondActiveRule(t *testing.T) {
	ruleID := uuid.New()
	repo := &stubRuleRepo{
		findResult: &models.DiscountRule{
			ID:         ruleID,
			ShopDomain: "demo.myshopify.com",
			Status:     enums.RuleStatusDraft,
		},
		activeCount: 1,
	}
	svc := newTestService(t, repo, &stubSyncer{})

	_, err := svc.ActivateRule(context.Background(), "demo.myshopify.com", ruleID)
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestActivateRuleSyncFailureLeavesRuleUntouched(t *testing.T) {
	ruleID := uuid.New()
	repo := &stubRuleRepo{
		findResult: &models.DiscountRule{
			ID:         ruleID,
			ShopDomain: "demo.myshopify.com",
			Status:     enums.RuleStatusDraft,
		},
	}
	syncer := &stubSyncer{createErr: errors.New("platform down")}
	svc := newTestService(t, repo, syncer)

	_, err := svc.ActivateRule(context.Background(), "demo.myshopify.com", ruleID)
	assertCode(t, err, pkgerrors.CodeDependency)
	if repo.updated != nil {
		t.Fatal("rule must not be persisted when the platform sync fails")
	}
}

func TestDeactivateRuleArchivesAndSyncs(t *testing.T) {
	ruleID := uuid.New()
	platformID := "gid://shopify/DiscountAutomaticNode/7"
	repo := &stubRuleRepo{
		findResult: &models.DiscountRule{
			ID:                 ruleID,
			ShopDomain:         "demo.myshopify.com",
			Status:             enums.RuleStatusActive,
			PlatformDiscountID: &platformID,
		},
	}
	syncer := &stubSyncer{}
	svc := newTestService(t, repo, syncer)

	item, err := svc.DeactivateRule(context.Background(), "demo.myshopify.com", ruleID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Status != "archived" {
		t.Fatalf("expected archived status, got %s", item.Status)
	}
	if syncer.deactivated != platformID {
		t.Fatalf("expected platform deactivate for %s, got %s", platformID, syncer.deactivated)
	}
}

func TestDeactivateRuleRequiresActiveStatus(t *testing.T) {
	ruleID := uuid.New()
	repo := &stubRuleRepo{
		findResult: &models.DiscountRule{
			ID:         ruleID,
			ShopDomain: "demo.myshopify.com",
			Status:     enums.RuleStatusDraft,
		},
	}
	svc := newTestService(t, repo, &stubSyncer{})

	_, err := svc.DeactivateRule(context.Background(), "demo.myshopify.com", ruleID)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestDeleteRuleRefusesActiveRule(t *testing.T) {
	ruleID := uuid.New()
	repo := &stubRuleRepo{
		findResult: &models.DiscountRule{
			ID:         ruleID,
			ShopDomain: "demo.myshopify.com",
			Status:     enums.RuleStatusActive,
		},
	}
	svc := newTestService(t, repo, &stubSyncer{})

	err := svc.DeleteRule(context.Background(), "demo.myshopify.com", ruleID)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestDeleteRuleRemovesPlatformDiscount(t *testing.T) {
	ruleID := uuid.New()
	platformID := "gid://shopify/DiscountAutomaticNode/9"
	repo := &stubRuleRepo{
		findResult: &models.DiscountRule{
			ID:                 ruleID,
			ShopDomain:         "demo.myshopify.com",
			Status:             enums.RuleStatusArchived,
			PlatformDiscountID: &platformID,
		},
	}
	syncer := &stubSyncer{}
	svc := newTestService(t, repo, syncer)

	if err := svc.DeleteRule(context.Background(), "demo.myshopify.com", ruleID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if syncer.deletedID != platformID {
		t.Fatalf("expected platform delete for %s, got %s", platformID, syncer.deletedID)
	}
	if repo.deletedID != ruleID {
		t.Fatalf("expected row delete for %s, got %s", ruleID, repo.deletedID)
	}
}

func TestGetRuleScopesByShop(t *testing.T) {
	ruleID := uuid.New()
	repo := &stubRuleRepo{
		findResult: &models.DiscountRule{
			ID:         ruleID,
			ShopDomain: "owner.myshopify.com",
			Status:     enums.RuleStatusDraft,
		},
	}
	svc := newTestService(t, repo, &stubSyncer{})

	_, err := svc.GetRule(context.Background(), "intruder.myshopify.com", ruleID)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestUpdateRuleSyncsWhenPlatformDiscountExists(t *testing.T) {
	ruleID := uuid.New()
	platformID := "gid://shopify/DiscountAutomaticNode/3"
	repo := &stubRuleRepo{
		findResult: &models.DiscountRule{
			ID:                 ruleID,
			ShopDomain:         "demo.myshopify.com",
			Status:             enums.RuleStatusActive,
			PlatformDiscountID: &platformID,
		},
	}
	syncer := &stubSyncer{}
	svc := newTestService(t, repo, syncer)

	input := validInput()
	input.MinQuantity = 4
	item, err := svc.UpdateRule(context.Background(), "demo.myshopify.com", ruleID, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.MinQuantity != 4 {
		t.Fatalf("expected min quantity 4, got %d", item.MinQuantity)
	}
	if syncer.updateCalls != 1 {
		t.Fatalf("expected one platform update, got %d", syncer.updateCalls)
	}
	if syncer.updatedBlob == "" {
		t.Fatal("expected refreshed config blob")
	}
}
