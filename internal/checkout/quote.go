package checkout

import (
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
)

type ShippingPolicy struct {
	StandardRate  decimal.Decimal
	ExpressRate   decimal.Decimal
	FreeThreshold decimal.Decimal
}

func DefaultShippingPolicy() ShippingPolicy {
	return ShippingPolicy{
		StandardRate:  decimal.RequireFromString("9.99"),
		ExpressRate:   decimal.RequireFromString("19.99"),
		FreeThreshold: decimal.RequireFromString("50.00"),
	}
}

// Cost prices shipping for subtotal. Standard shipping is free once the
// subtotal exceeds the threshold; express is always charged.
func (p ShippingPolicy) Cost(tier domain.ShippingTier, subtotal decimal.Decimal) decimal.Decimal {
	if tier == domain.ShippingExpress {
		return p.ExpressRate
	}
	if subtotal.GreaterThan(p.FreeThreshold) {
		return decimal.Zero
	}
	return p.StandardRate
}

type Quote struct {
	Tier                  domain.ShippingTier `json:"shipping_tier"`
	TotalItems            int                 `json:"total_items"`
	Subtotal              decimal.Decimal     `json:"subtotal"`
	Shipping              decimal.Decimal     `json:"shipping"`
	Total                 decimal.Decimal     `json:"total"`
	FreeShippingRemaining decimal.Decimal     `json:"free_shipping_remaining"`
}

func (p ShippingPolicy) Quote(tier domain.ShippingTier, subtotal decimal.Decimal, items int) Quote {
	shipping := p.Cost(tier, subtotal)

	remaining := p.FreeThreshold.Sub(subtotal)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	return Quote{
		Tier:                  tier,
		TotalItems:            items,
		Subtotal:              subtotal,
		Shipping:              shipping,
		Total:                 subtotal.Add(shipping),
		FreeShippingRemaining: remaining,
	}
}
