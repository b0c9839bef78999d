package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/masumbillah21/conditional-discount/internal/evaluate"
	"github.com/masumbillah21/conditional-discount/internal/rules"
	"github.com/masumbillah21/conditional-discount/pkg/config"
	"github.com/masumbillah21/conditional-discount/pkg/types"
)

type stubRulesService struct {
	listResult *rules.ListResult
	created    *rules.RuleItem
}

func (s *stubRulesService) CreateRule(ctx context.Context, shopDomain string, input rules.RuleInput) (*rules.RuleItem, error) {
	item := &rules.RuleItem{ID: uuid.NewString(), Title: input.Title, Status: "draft"}
	s.created = item
	return item, nil
}

func (s *stubRulesService) UpdateRule(ctx context.Context, shopDomain string, ruleID uuid.UUID, input rules.RuleInput) (*rules.RuleItem, error) {
	return &rules.RuleItem{ID: ruleID.String(), Title: input.Title}, nil
}

func (s *stubRulesService) GetRule(ctx context.Context, shopDomain string, ruleID uuid.UUID) (*rules.RuleItem, error) {
	return &rules.RuleItem{ID: ruleID.String()}, nil
}

func (s *stubRulesService) ListRules(ctx context.Context, params rules.ListParams) (*rules.ListResult, error) {
	if s.listResult != nil {
		return s.listResult, nil
	}
	return &rules.ListResult{Items: []rules.RuleItem{}}, nil
}

func (s *stubRulesService) DeleteRule(ctx context.Context, shopDomain string, ruleID uuid.UUID) error {
	return nil
}

func (s *stubRulesService) ActivateRule(ctx context.Context, shopDomain string, ruleID uuid.UUID) (*rules.RuleItem, error) {
	return &rules.RuleItem{ID: ruleID.String(), Status: "active"}, nil
}

func (s *stubRulesService) DeactivateRule(ctx context.Context, shopDomain string, ruleID uuid.UUID) (*rules.RuleItem, error) {
	return &rules.RuleItem{ID: ruleID.String(), Status: "archived"}, nil
}

type stubEvaluateService struct {
	lastInput evaluate.CartInput
}

func (s *stubEvaluateService) EvaluateCart(ctx context.Context, input evaluate.CartInput) (*evaluate.Evaluation, error) {
	s.lastInput = input
	return &evaluate.Evaluation{Applied: false, Strategy: "FIRST"}, nil
}

func newTestRouter(rulesSvc rules.Service, evalSvc evaluate.Service) http.Handler {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	return NewRouter(cfg, nil, nil, nil, nil, rulesSvc, evalSvc)
}

func TestRouterHealthLive(t *testing.T) {
	router := newTestRouter(&stubRulesService{}, &stubEvaluateService{})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got := w.Header().Get("X-App-Env"); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
}

func TestRouterEvaluateRoute(t *testing.T) {
	evalSvc := &stubEvaluateService{}
	router := newTestRouter(&stubRulesService{}, evalSvc)

	body := `{"shop_domain":"demo.myshopify.com","lines":[{"id":"l1","product_id":"p1","quantity":2,"unit_price":"9.99"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if evalSvc.lastInput.ShopDomain != "demo.myshopify.com" {
		t.Fatalf("expected shop domain to reach the service, got %q", evalSvc.lastInput.ShopDomain)
	}
	if len(evalSvc.lastInput.Lines) != 1 || evalSvc.lastInput.Lines[0].Quantity != 2 {
		t.Fatalf("unexpected lines %+v", evalSvc.lastInput.Lines)
	}
}

func TestRouterEvaluateRejectsMalformedBody(t *testing.T) {
	router := newTestRouter(&stubRulesService{}, &stubEvaluateService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluate", strings.NewReader(`{"lines":[]}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if envelope.Error.Code == "" {
		t.Fatal("expected error code in envelope")
	}
}

func TestRouterRuleCreateRoute(t *testing.T) {
	rulesSvc := &stubRulesService{}
	router := newTestRouter(rulesSvc, &stubEvaluateService{})

	body := `{
		"title":"Bundle deal",
		"discount_kind":"percentage",
		"discount_value":"10",
		"min_quantity":2,
		"required":{"type":"product","ids":["p1"]}
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rules", strings.NewReader(body))
	req.Header.Set("X-Shop-Domain", "demo.myshopify.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if rulesSvc.created == nil || rulesSvc.created.Title != "Bundle deal" {
		t.Fatalf("expected rule to reach the service, got %+v", rulesSvc.created)
	}
}

func TestRouterRuleActivateRoute(t *testing.T) {
	router := newTestRouter(&stubRulesService{}, &stubEvaluateService{})

	ruleID := uuid.NewString()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/rules/"+ruleID+"/activate", nil)
	req.Header.Set("X-Shop-Domain", "demo.myshopify.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	item := envelope.Data.(map[string]any)
	if item["status"] != "active" {
		t.Fatalf("expected activated rule, got %v", item)
	}
}
