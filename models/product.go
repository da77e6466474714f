package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Name        string           `gorm:"not null" json:"name"`
	Description string           `json:"description"`
	Price       decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"price"`
	Brand       string           `json:"brand"`
	CategoryID  uint             `gorm:"not null;index" json:"category_id"`
	Category    *Category        `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Variants    []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"variants"`
	Images      []ProductImage   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"images"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ProductVariant is one purchasable size/color configuration of a product.
// DiscountPercent is kept within [0,100] and Stock is never negative.
type ProductVariant struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ProductID       uint            `gorm:"not null;index" json:"product_id"`
	Size            string          `gorm:"not null" json:"size"`
	Color           string          `json:"color"`
	Markup          decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"markup"`
	DiscountPercent decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"discount_percent"`
	Stock           int             `gorm:"not null;default:0" json:"stock"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
