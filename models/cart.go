package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is created lazily, at most one per user.
type Cart struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem is unique per (cart, product, variant); repeated adds bump Quantity.
type CartItem struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	CartID      uint            `gorm:"not null;uniqueIndex:idx_cart_line" json:"cart_id"`
	ProductID   uint            `gorm:"not null;uniqueIndex:idx_cart_line" json:"product_id"`
	Product     Product         `gorm:"foreignKey:ProductID" json:"product"`
	VariantID   *uint           `gorm:"uniqueIndex:idx_cart_line" json:"variant_id"`
	Variant     *ProductVariant `gorm:"foreignKey:VariantID" json:"variant,omitempty"`
	Quantity    int             `gorm:"not null;default:1" json:"quantity"`
	PriceAtTime decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_at_time"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// LineTotal is the snapshot price times quantity.
func (c CartItem) LineTotal() decimal.Decimal {
	return c.PriceAtTime.Mul(decimal.NewFromInt(int64(c.Quantity)))
}
