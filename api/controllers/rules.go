package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/masumbillah21/conditional-discount/api/responses"
	"github.com/masumbillah21/conditional-discount/api/validators"
	"github.com/masumbillah21/conditional-discount/internal/rules"
	pkgerrors "github.com/masumbillah21/conditional-discount/pkg/errors"
	"github.com/masumbillah21/conditional-discount/pkg/logger"
)

const shopDomainHeader = "X-Shop-Domain"

// shopFromRequest reads the merchant shop domain from the request. The
// embedded-app frontend sends it on every call; a query parameter is
// accepted for manual testing.
func shopFromRequest(r *http.Request) string {
	if shop := strings.TrimSpace(r.Header.Get(shopDomainHeader)); shop != "" {
		return shop
	}
	return strings.TrimSpace(r.URL.Query().Get("shop"))
}

func ruleIDFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "ruleId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid rule id")
	}
	return id, nil
}

type ruleBody struct {
	Title              string               `json:"title" validate:"required"`
	DiscountKind       string               `json:"discount_kind" validate:"required,oneof=percentage fixed_amount"`
	DiscountValue      string               `json:"discount_value" validate:"required"`
	MinQuantity        int                  `json:"min_quantity" validate:"required,min=1"`
	MaxDiscountedUnits *int                 `json:"max_discounted_units" validate:"omitempty,min=1"`
	Required           ruleSelectorBody     `json:"required" validate:"required"`
	Discounted         *ruleSelectorBody    `json:"discounted"`
}

type ruleSelectorBody struct {
	Type string   `json:"type" validate:"required,oneof=all product collection"`
	IDs  []string `json:"ids"`
}

func parseDecimalField(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(raw))
}

func (b ruleBody) toInput() (rules.RuleInput, error) {
	value, err := parseDecimalField(b.DiscountValue)
	if err != nil {
		return rules.RuleInput{}, pkgerrors.New(pkgerrors.CodeValidation, "discount_value must be a decimal string")
	}
	input := rules.RuleInput{
		Title:              b.Title,
		DiscountKind:       b.DiscountKind,
		DiscountValue:      value,
		MinQuantity:        b.MinQuantity,
		MaxDiscountedUnits: b.MaxDiscountedUnits,
		Required:           rules.SelectorInput{Type: b.Required.Type, IDs: b.Required.IDs},
	}
	if b.Discounted != nil {
		input.Discounted = &rules.SelectorInput{Type: b.Discounted.Type, IDs: b.Discounted.IDs}
	}
	return input, nil
}

func RuleCreate(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := shopFromRequest(r)

		var body ruleBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateRule(r.Context(), shop, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func RuleUpdate(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := shopFromRequest(r)
		ruleID, err := ruleIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body ruleBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateRule(r.Context(), shop, ruleID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func RuleGet(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := shopFromRequest(r)
		ruleID, err := ruleIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.GetRule(r.Context(), shop, ruleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func RuleList(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := rules.ListParams{
			ShopDomain: shopFromRequest(r),
			Cursor:     r.URL.Query().Get("cursor"),
		}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "limit must be an integer"))
				return
			}
			params.Limit = limit
		}

		result, err := svc.ListRules(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func RuleDelete(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := shopFromRequest(r)
		ruleID, err := ruleIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteRule(r.Context(), shop, ruleID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func RuleActivate(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := shopFromRequest(r)
		ruleID, err := ruleIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.ActivateRule(r.Context(), shop, ruleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func RuleDeactivate(svc rules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := shopFromRequest(r)
		ruleID, err := ruleIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.DeactivateRule(r.Context(), shop, ruleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}
