package catalog

import (
	"sort"

	"kiprej-bot/models"
)

// Filter narrows products by category and by in-stock size. A nil category or
// an empty size leaves that dimension unfiltered. Input order is preserved.
func Filter(products []models.Product, categoryID *uint, size string) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if categoryID != nil && p.CategoryID != *categoryID {
			continue
		}
		if size != "" && InStockVariant(&p, size) == nil {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FindVariant returns the first variant of p with exactly the given size.
func FindVariant(p *models.Product, size string) *models.ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].Size == size {
			return &p.Variants[i]
		}
	}
	return nil
}

// InStockVariant is FindVariant restricted to variants with stock left.
func InStockVariant(p *models.Product, size string) *models.ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].Size == size && p.Variants[i].Stock > 0 {
			return &p.Variants[i]
		}
	}
	return nil
}

// ProductSizes lists the distinct sizes of p in variant order.
func ProductSizes(p *models.Product) []string {
	seen := make(map[string]bool, len(p.Variants))
	var sizes []string
	for _, v := range p.Variants {
		if seen[v.Size] {
			continue
		}
		seen[v.Size] = true
		sizes = append(sizes, v.Size)
	}
	return sizes
}

// AvailableSizes lists the distinct in-stock sizes across products, sorted.
func AvailableSizes(products []models.Product) []string {
	seen := map[string]bool{}
	var sizes []string
	for _, p := range products {
		for _, v := range p.Variants {
			if v.Stock <= 0 || seen[v.Size] {
				continue
			}
			seen[v.Size] = true
			sizes = append(sizes, v.Size)
		}
	}
	sort.Strings(sizes)
	return sizes
}
