// Package checkout derives order totals for display and submits orders.
package checkout

import "storefront/internal/domain"

// Display pricing rules. They are not verified by the server; the order the
// server creates carries its own amounts.
const (
	FreeShippingOver domain.Money = 5000
	FlatShipping     domain.Money = 1000
	TaxPercent                    = 8
)

// Totals is the order summary shown before submitting.
type Totals struct {
	Subtotal domain.Money `json:"subtotal"`
	Shipping domain.Money `json:"shipping"`
	Tax      domain.Money `json:"tax"`
	Total    domain.Money `json:"total"`
}

// Summarize computes shipping, tax and total for a subtotal. Shipping is
// free strictly above FreeShippingOver.
func Summarize(subtotal domain.Money) Totals {
	shipping := FlatShipping
	if subtotal > FreeShippingOver {
		shipping = 0
	}
	tax := subtotal.Percent(TaxPercent)
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal + shipping + tax,
	}
}

// SummarizeCart uses the server-computed cart total as subtotal. A nil cart
// counts as zero.
func SummarizeCart(c *domain.Cart) Totals {
	if c == nil {
		return Summarize(0)
	}
	return Summarize(c.TotalPrice)
}
