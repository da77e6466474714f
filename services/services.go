// Package services implements the storefront's operations over gorm. Every
// operation takes a context and runs on a session derived from the injected
// *gorm.DB; multi-step writes run inside a single transaction.
package services

import (
	"gorm.io/gorm"

	"kiprej-bot/storage"
)

// Services bundles the domain services sharing one database handle.
type Services struct {
	Users      *UserService
	Categories *CategoryService
	Catalog    *CatalogService
	Products   *ProductService
	Cart       *CartService
	Orders     *OrderService
	Addresses  *AddressService
	Reviews    *ReviewService
	Analytics  *AnalyticsService
	Promotions *PromotionService
	Export     *ExportService
}

func New(db *gorm.DB, store storage.Client) *Services {
	return &Services{
		Users:      &UserService{DB: db},
		Categories: &CategoryService{DB: db},
		Catalog:    &CatalogService{DB: db},
		Products:   &ProductService{DB: db, Storage: store},
		Cart:       &CartService{DB: db},
		Orders:     &OrderService{DB: db},
		Addresses:  &AddressService{DB: db},
		Reviews:    &ReviewService{DB: db},
		Analytics:  &AnalyticsService{DB: db},
		Promotions: &PromotionService{DB: db},
		Export:     &ExportService{DB: db},
	}
}
