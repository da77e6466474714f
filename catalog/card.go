package catalog

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"

	"kiprej-bot/models"
)

const (
	NoDescription = "no description"
	Placeholder   = "—"
)

// Card is the display record of one product with an optional chosen variant.
type Card struct {
	ProductID      uint             `json:"product_id"`
	PhotoPosition  string           `json:"photo_position"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Brand          string           `json:"brand"`
	Size           string           `json:"size"`
	Color          string           `json:"color"`
	Price          decimal.Decimal  `json:"price"`
	ReferencePrice *decimal.Decimal `json:"reference_price,omitempty"`
	Stock          int              `json:"stock"`
}

// FormatCard assembles a Card. imageIndex is zero-based; the position reads
// "i/N" with i one-based, or "0/0" when the product has no images.
func FormatCard(p *models.Product, v *models.ProductVariant, imageIndex, totalImages int) Card {
	price := VariantPrice(p, v)
	c := Card{
		ProductID:      p.ID,
		PhotoPosition:  photoPosition(imageIndex, totalImages),
		Name:           p.Name,
		Description:    orDefault(p.Description, NoDescription),
		Brand:          orDefault(p.Brand, Placeholder),
		Size:           Placeholder,
		Color:          Placeholder,
		Price:          price.Final,
		ReferencePrice: price.Reference,
	}
	if v != nil {
		c.Size = orDefault(v.Size, Placeholder)
		c.Color = orDefault(v.Color, Placeholder)
		c.Stock = v.Stock
	}
	return c
}

func photoPosition(index, total int) string {
	if total <= 0 {
		return "0/0"
	}
	return fmt.Sprintf("%d/%d", index+1, total)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Caption renders the card as Telegram HTML.
func (c Card) Caption() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n", html.EscapeString(c.Name))
	fmt.Fprintf(&b, "%s\n\n", html.EscapeString(c.Description))
	fmt.Fprintf(&b, "Brand: %s\n", html.EscapeString(c.Brand))
	fmt.Fprintf(&b, "Size: %s\n", html.EscapeString(c.Size))
	fmt.Fprintf(&b, "Color: %s\n", html.EscapeString(c.Color))
	if c.ReferencePrice != nil {
		fmt.Fprintf(&b, "Price: %s <s>%s</s>\n", c.Price.StringFixed(2), c.ReferencePrice.StringFixed(2))
	} else {
		fmt.Fprintf(&b, "Price: %s\n", c.Price.StringFixed(2))
	}
	fmt.Fprintf(&b, "In stock: %d\n", c.Stock)
	fmt.Fprintf(&b, "Photo %s", c.PhotoPosition)
	return b.String()
}
