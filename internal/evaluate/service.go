package evaluate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/masumbillah21/conditional-discount/internal/allocation"
	"github.com/masumbillah21/conditional-discount/internal/rules"
	"github.com/masumbillah21/conditional-discount/pkg/db/models"
	"github.com/masumbillah21/conditional-discount/pkg/enums"
	pkgerrors "github.com/masumbillah21/conditional-discount/pkg/errors"
	"github.com/masumbillah21/conditional-discount/pkg/logger"
	"github.com/masumbillah21/conditional-discount/pkg/metrics"
)

// Evaluation outcomes reported to metrics.
const (
	outcomeApplied    = "applied"
	outcomeNoDiscount = "no_discount"
	outcomeNoRule     = "no_rule"
	outcomeDegraded   = "degraded"
)

type activeRuleFinder interface {
	FindActiveByShop(ctx context.Context, shopDomain string) (*models.DiscountRule, error)
}

type collectionResolver interface {
	ResolveProducts(ctx context.Context, shopDomain string, collectionIDs []string) []string
}

// CartLineInput is one line of the cart snapshot under evaluation.
type CartLineInput struct {
	ID        string          `json:"id"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// CartInput is the evaluation request.
type CartInput struct {
	ShopDomain string          `json:"shop_domain"`
	Lines      []CartLineInput `json:"lines"`
}

// TargetItem is one discounted (line, quantity) pair.
type TargetItem struct {
	LineID   string `json:"line_id"`
	Quantity int    `json:"quantity"`
}

// ValueItem is the resolved adjustment shared by every target.
type ValueItem struct {
	Kind   string          `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
}

// Evaluation is the discount-application descriptor returned to the
// caller. An unapplied evaluation is a normal response, not an error.
type Evaluation struct {
	Applied  bool         `json:"applied"`
	Targets  []TargetItem `json:"targets"`
	Value    *ValueItem   `json:"value,omitempty"`
	Strategy string       `json:"strategy"`
}

// Service evaluates cart snapshots against the shop's active rule.
type Service interface {
	EvaluateCart(ctx context.Context, input CartInput) (*Evaluation, error)
}

type service struct {
	repo     activeRuleFinder
	resolver collectionResolver
	metrics  *metrics.EvaluationMetrics
	logg     *logger.Logger
}

// NewService builds the evaluation service. Metrics and logger are
// optional; the rule source and collection resolver are not.
func NewService(repo activeRuleFinder, resolver collectionResolver, m *metrics.EvaluationMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rule source required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("collection resolver required")
	}
	return &service{repo: repo, resolver: resolver, metrics: m, logg: logg}, nil
}

// EvaluateCart loads the shop's active rule, resolves collection
// selectors into product ids, and runs the allocation. Missing rules
// and dependency failures degrade to the empty descriptor.
func (s *service) EvaluateCart(ctx context.Context, input CartInput) (*Evaluation, error) {
	if strings.TrimSpace(input.ShopDomain) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop_domain is required")
	}

	start := time.Now()

	rule, err := s.repo.FindActiveByShop(ctx, input.ShopDomain)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.observe(outcomeNoRule, start)
			return emptyEvaluation(), nil
		}
		if s.logg != nil {
			s.logg.Error(ctx, "active rule lookup failed, returning empty evaluation", err)
		}
		s.observe(outcomeDegraded, start)
		return emptyEvaluation(), nil
	}

	blob, err := rules.ConfigBlob(rule)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "rule config serialization failed, returning empty evaluation", err)
		}
		s.observe(outcomeDegraded, start)
		return emptyEvaluation(), nil
	}

	cfg := allocation.ParseConfig(blob)
	if cfg == nil {
		s.observe(outcomeNoDiscount, start)
		return emptyEvaluation(), nil
	}

	cfg.Required = s.resolveSelector(ctx, input.ShopDomain, cfg.Required)
	cfg.Discounted = s.resolveSelector(ctx, input.ShopDomain, cfg.Discounted)

	result := allocation.EvaluateConfig(cfg, toCartLines(input.Lines))

	outcome := outcomeNoDiscount
	if result.Applied() {
		outcome = outcomeApplied
	}
	s.observe(outcome, start)

	return toEvaluation(result), nil
}

// resolveSelector maps collection selectors into the product-id space
// the engine matches against. Other selector types pass through.
func (s *service) resolveSelector(ctx context.Context, shopDomain string, sel allocation.TargetSelector) allocation.TargetSelector {
	if sel.Type != enums.TargetTypeCollection {
		return sel
	}
	productIDs := s.resolver.ResolveProducts(ctx, shopDomain, sel.IDs)
	return allocation.NewSelector(enums.TargetTypeProduct, productIDs)
}

func (s *service) observe(outcome string, start time.Time) {
	s.metrics.ObserveEvaluation(outcome, time.Since(start))
}

func toCartLines(lines []CartLineInput) []allocation.CartLine {
	out := make([]allocation.CartLine, len(lines))
	for i, line := range lines {
		out[i] = allocation.CartLine{
			ID:        line.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
	}
	return out
}

func emptyEvaluation() *Evaluation {
	return &Evaluation{Strategy: allocation.SelectionStrategyFirst}
}

func toEvaluation(result allocation.Result) *Evaluation {
	eval := &Evaluation{
		Applied:  result.Applied(),
		Strategy: result.Strategy,
	}
	if !eval.Applied {
		return eval
	}
	eval.Targets = make([]TargetItem, len(result.Targets))
	for i, target := range result.Targets {
		eval.Targets[i] = TargetItem{LineID: target.LineID, Quantity: target.Quantity}
	}
	eval.Value = &ValueItem{
		Kind:   result.Value.Kind.String(),
		Amount: result.Value.Amount,
	}
	return eval
}
