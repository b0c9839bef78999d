package allocation

import "github.com/shopspring/decimal"

// CartLine is one line of the checkout cart snapshot.
type CartLine struct {
	ID        string
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// CartUnit is a single purchasable unit after line expansion. A line of
// quantity N becomes N units sharing the line and product ids, which is
// what gives "cheapest individual unit" semantics instead of whole-line
// semantics.
type CartUnit struct {
	LineID    string
	ProductID string
	UnitPrice decimal.Decimal

	ord int // encounter order, the tie-break for equal prices
}

// expandLines turns cart lines into individual units. Malformed lines
// (missing ids, non-positive quantity, negative price) are skipped
// rather than aborting the evaluation.
func expandLines(lines []CartLine) []CartUnit {
	var units []CartUnit
	ord := 0
	for _, line := range lines {
		if line.ID == "" || line.ProductID == "" {
			continue
		}
		if line.Quantity <= 0 || line.UnitPrice.Sign() < 0 {
			continue
		}
		for i := 0; i < line.Quantity; i++ {
			units = append(units, CartUnit{
				LineID:    line.ID,
				ProductID: line.ProductID,
				UnitPrice: line.UnitPrice,
				ord:       ord,
			})
			ord++
		}
	}
	return units
}
