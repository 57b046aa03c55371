package checkout

import "github.com/shopspring/decimal"

// Pricing holds the delivery fee rule: orders strictly above the threshold
// ship free.
type Pricing struct {
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		FreeShippingThreshold: decimal.NewFromInt(50000),
		ShippingFee:           decimal.NewFromInt(1500),
	}
}

type Totals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	Shipping   decimal.Decimal `json:"shipping"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

func (p Pricing) Totals(subtotal decimal.Decimal) Totals {
	shipping := p.ShippingFee
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	return Totals{
		Subtotal:   subtotal,
		Shipping:   shipping,
		GrandTotal: subtotal.Add(shipping),
	}
}
