package types

import "github.com/shopspring/decimal"

// Line is one priced basket line. Unit prices include tax, which is how
// most British/Australian merchants quote them.
type Line struct {
	Title            string
	SKU              string
	Description      string
	UnitPriceInclTax decimal.Decimal
	Quantity         int
	RequiresShipping bool
}

func (l Line) Total() decimal.Decimal {
	return l.UnitPriceInclTax.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Discount is an offer applied to the basket. Amount is positive; it is
// turned into a negative payment line on the wire.
type Discount struct {
	Name        string
	VoucherCode string
	Amount      decimal.Decimal
}

// Basket is the frozen snapshot of what the buyer is paying for. The
// surrounding order system freezes the basket before checkout begins, so a
// Basket is immutable for the lifetime of one checkout session.
type Basket struct {
	ID       int64
	Currency string

	Lines []Line

	OfferDiscounts    []Discount
	VoucherDiscounts  []Discount
	ShippingDiscounts []Discount
}

// TotalInclTax is the amount the buyer owes before shipping: line totals
// less every discount.
func (b Basket) TotalInclTax() decimal.Decimal {
	total := decimal.Zero
	for _, line := range b.Lines {
		total = total.Add(line.Total())
	}
	for _, d := range b.allDiscounts() {
		total = total.Sub(d.Amount)
	}
	return total
}

// RequiresShipping reports whether any line needs physical delivery.
func (b Basket) RequiresShipping() bool {
	for _, line := range b.Lines {
		if line.RequiresShipping {
			return true
		}
	}
	return false
}

func (b Basket) allDiscounts() []Discount {
	out := make([]Discount, 0, len(b.OfferDiscounts)+len(b.VoucherDiscounts)+len(b.ShippingDiscounts))
	out = append(out, b.OfferDiscounts...)
	out = append(out, b.VoucherDiscounts...)
	out = append(out, b.ShippingDiscounts...)
	return out
}
