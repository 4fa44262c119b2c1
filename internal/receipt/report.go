package receipt

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/zombor/fiscal-receipts/internal/fiscal"
)

// summarize totals the receipts of a report.
// Sums are kept in decimal and rounded to cents once at the end.
func summarize(receipts []*Receipt) (float64, []VATTotal) {
	total := decimal.Zero
	byRate := make(map[fiscal.VATRate]decimal.Decimal)

	for _, r := range receipts {
		if r.Bill == nil {
			continue
		}
		total = total.Add(decimal.NewFromFloat(r.Bill.Price))

		for _, item := range r.Bill.Items {
			if item.Price == nil {
				continue
			}
			byRate[item.VATType] = byRate[item.VATType].Add(decimal.NewFromFloat(*item.Price))
		}
	}

	rates := make([]fiscal.VATRate, 0, len(byRate))
	for rate := range byRate {
		rates = append(rates, rate)
	}
	slices.Sort(rates)

	vatTotals := make([]VATTotal, 0, len(rates))
	for _, rate := range rates {
		amount := byRate[rate]
		r := decimal.NewFromFloat(float64(rate))
		// Gross prices: tax = amount * rate / (1 + rate)
		tax := amount.Mul(r).Div(decimal.NewFromInt(1).Add(r))

		vatTotals = append(vatTotals, VATTotal{
			Rate:   rate,
			Amount: amount.Round(2).InexactFloat64(),
			Tax:    tax.Round(2).InexactFloat64(),
		})
	}

	return total.Round(2).InexactFloat64(), vatTotals
}
