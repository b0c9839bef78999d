package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/masumbillah21/conditional-discount/api/responses"
	"github.com/masumbillah21/conditional-discount/api/validators"
	"github.com/masumbillah21/conditional-discount/internal/evaluate"
	"github.com/masumbillah21/conditional-discount/pkg/logger"
)

type evaluateBody struct {
	ShopDomain string             `json:"shop_domain" validate:"required"`
	Lines      []evaluateLineBody `json:"lines" validate:"required,dive"`
}

type evaluateLineBody struct {
	ID        string          `json:"id" validate:"required"`
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func CartEvaluate(svc evaluate.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body evaluateBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := evaluate.CartInput{
			ShopDomain: body.ShopDomain,
			Lines:      make([]evaluate.CartLineInput, len(body.Lines)),
		}
		for i, line := range body.Lines {
			input.Lines[i] = evaluate.CartLineInput{
				ID:        line.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
			}
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithShop(ctx, body.ShopDomain)
		}

		eval, err := svc.EvaluateCart(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, eval)
	}
}
