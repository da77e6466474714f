// Package catalog holds the storefront's pure rules: variant pricing,
// catalog filtering, pagination and product card assembly.
package catalog

import (
	"github.com/shopspring/decimal"

	"kiprej-bot/models"
)

var hundred = decimal.NewFromInt(100)

// Price is a computed variant price. Reference is the pre-discount price and
// is nil unless a discount applies.
type Price struct {
	Final     decimal.Decimal
	Reference *decimal.Decimal
}

// ComputePrice applies an additive markup and then a percentage discount to a
// base price, rounding both results to two decimal places.
func ComputePrice(base, markup, discountPercent decimal.Decimal) Price {
	gross := base.Add(markup)
	if !discountPercent.IsPositive() {
		return Price{Final: gross.Round(2)}
	}
	ref := gross.Round(2)
	final := gross.Mul(hundred.Sub(discountPercent)).Div(hundred).Round(2)
	return Price{Final: final, Reference: &ref}
}

// VariantPrice prices a variant of p. A nil variant prices the bare product.
func VariantPrice(p *models.Product, v *models.ProductVariant) Price {
	if v == nil {
		return ComputePrice(p.Price, decimal.Zero, decimal.Zero)
	}
	return ComputePrice(p.Price, v.Markup, v.DiscountPercent)
}
