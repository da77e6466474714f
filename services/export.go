package services

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/tealeg/xlsx"
	"gorm.io/gorm"

	"kiprej-bot/catalog"
	"kiprej-bot/models"
)

type ExportService struct {
	DB *gorm.DB
}

var exportHeader = []string{
	"ID", "Category", "Name", "Description", "Brand", "Base price",
	"Size", "Color", "Markup", "Discount %", "Final price", "Stock",
}

// WriteProducts writes every product as a spreadsheet, one row per variant.
// Products without variants get a single row priced at the base price.
func (s *ExportService) WriteProducts(ctx context.Context, w io.Writer) error {
	var products []models.Product
	err := withChildren(s.DB.WithContext(ctx)).Preload("Category").Order("id").Find(&products).Error
	if err != nil {
		return errors.Wrap(err, "load products")
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return errors.Wrap(err, "add sheet")
	}
	header := sheet.AddRow()
	for _, h := range exportHeader {
		header.AddCell().SetString(h)
	}

	for i := range products {
		p := &products[i]
		if len(p.Variants) == 0 {
			addProductRow(sheet, p, nil)
			continue
		}
		for j := range p.Variants {
			addProductRow(sheet, p, &p.Variants[j])
		}
	}
	return errors.Wrap(file.Write(w), "write spreadsheet")
}

func addProductRow(sheet *xlsx.Sheet, p *models.Product, v *models.ProductVariant) {
	row := sheet.AddRow()
	row.AddCell().SetInt(int(p.ID))
	categoryName := ""
	if p.Category != nil {
		categoryName = p.Category.Name
	}
	row.AddCell().SetString(categoryName)
	row.AddCell().SetString(p.Name)
	row.AddCell().SetString(p.Description)
	row.AddCell().SetString(p.Brand)
	row.AddCell().SetFloat(p.Price.InexactFloat64())
	price := catalog.VariantPrice(p, v)
	if v == nil {
		for i := 0; i < 4; i++ {
			row.AddCell().SetString("")
		}
		row.AddCell().SetFloat(price.Final.InexactFloat64())
		row.AddCell().SetInt(0)
		return
	}
	row.AddCell().SetString(v.Size)
	row.AddCell().SetString(v.Color)
	row.AddCell().SetFloat(v.Markup.InexactFloat64())
	row.AddCell().SetFloat(v.DiscountPercent.InexactFloat64())
	row.AddCell().SetFloat(price.Final.InexactFloat64())
	row.AddCell().SetInt(v.Stock)
}
