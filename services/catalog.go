package services

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"kiprej-bot/catalog"
	"kiprej-bot/models"
)

type CatalogService struct {
	DB *gorm.DB
}

// Query selects products for browsing. Zero values mean "no filter".
type Query struct {
	CategoryID *uint
	Size       string
}

// Page is one page of a filtered product listing.
type Page struct {
	Products []models.Product
	Number   int
	Pages    int
	Total    int
}

func (p Page) HasPrev() bool { return p.Number > 1 }
func (p Page) HasNext() bool { return p.Number < p.Pages }

func withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") })
}

// Products returns the filtered catalog in ascending id order.
func (s *CatalogService) Products(ctx context.Context, q Query) ([]models.Product, error) {
	var products []models.Product
	db := withChildren(s.DB.WithContext(ctx)).Order("id")
	if q.CategoryID != nil {
		db = db.Where("category_id = ?", *q.CategoryID)
	}
	if err := db.Find(&products).Error; err != nil {
		return nil, errors.Wrap(err, "load products")
	}
	return catalog.Filter(products, q.CategoryID, q.Size), nil
}

// Page returns one page of the filtered catalog.
func (s *CatalogService) Page(ctx context.Context, q Query, page, size int) (Page, error) {
	if size <= 0 {
		return Page{}, invalid("page size %d", size)
	}
	products, err := s.Products(ctx, q)
	if err != nil {
		return Page{}, err
	}
	items, err := catalog.Paginate(products, page, size)
	if err != nil {
		return Page{}, invalid("%v", err)
	}
	return Page{
		Products: items,
		Number:   page,
		Pages:    catalog.PageCount(len(products), size),
		Total:    len(products),
	}, nil
}

func (s *CatalogService) Product(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := withChildren(s.DB.WithContext(ctx)).Preload("Category").First(&product, id).Error; err != nil {
		return nil, notFound(err, "product %d", id)
	}
	return &product, nil
}

// AvailableSizes lists the distinct in-stock sizes, optionally within a category.
func (s *CatalogService) AvailableSizes(ctx context.Context, categoryID *uint) ([]string, error) {
	products, err := s.Products(ctx, Query{CategoryID: categoryID})
	if err != nil {
		return nil, err
	}
	return catalog.AvailableSizes(products), nil
}
