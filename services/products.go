package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"kiprej-bot/models"
	"kiprej-bot/storage"
	"kiprej-bot/utils"
)

// MaxProductImages caps how many images one product may carry.
const MaxProductImages = 10

// MaxSizeLength is in bytes. Sizes travel in callback payloads, which
// Telegram caps at 64 bytes.
const MaxSizeLength = 16

type ProductService struct {
	DB      *gorm.DB
	Storage storage.Client
}

type NewVariant struct {
	Size            string
	Color           string
	Markup          decimal.Decimal
	DiscountPercent decimal.Decimal
	Stock           int
}

// ImageSource opens one image to be stored for a new product. An empty Ext is
// derived from the content type Open reports.
type ImageSource struct {
	Ext  string
	Open func(ctx context.Context) (io.ReadCloser, string, error)
}

type NewProduct struct {
	CategoryID  uint
	Name        string
	Description string
	Price       decimal.Decimal
	Brand       string
	Variants    []NewVariant
	Images      []ImageSource
}

type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Brand       *string
}

// ValidateVariant checks the invariants every stored variant keeps.
func ValidateVariant(v NewVariant) error {
	if strings.TrimSpace(v.Size) == "" {
		return invalid("size is required")
	}
	if len(v.Size) > MaxSizeLength {
		return invalid("size %q is longer than %d bytes", v.Size, MaxSizeLength)
	}
	if strings.Contains(v.Size, ":") {
		return invalid("size %q must not contain ':'", v.Size)
	}
	if v.DiscountPercent.IsNegative() || v.DiscountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return invalid("discount %s outside 0..100", v.DiscountPercent)
	}
	if v.Stock < 0 {
		return invalid("stock %d is negative", v.Stock)
	}
	return nil
}

func validatePrice(p decimal.Decimal) error {
	if p.IsNegative() {
		return invalid("price %s is negative", p)
	}
	return nil
}

// Create writes the product and its variants in one transaction, then stores
// the images. An image that fails to store is logged and skipped.
func (s *ProductService) Create(ctx context.Context, in NewProduct) (*models.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, invalid("product name is required")
	}
	if err := validatePrice(in.Price); err != nil {
		return nil, err
	}
	if len(in.Images) > MaxProductImages {
		return nil, invalid("at most %d images", MaxProductImages)
	}
	product := models.Product{
		Name:        in.Name,
		Description: strings.TrimSpace(in.Description),
		Price:       in.Price,
		Brand:       strings.TrimSpace(in.Brand),
		CategoryID:  in.CategoryID,
	}
	for _, v := range in.Variants {
		if err := ValidateVariant(v); err != nil {
			return nil, err
		}
		product.Variants = append(product.Variants, models.ProductVariant{
			Size:            strings.TrimSpace(v.Size),
			Color:           strings.TrimSpace(v.Color),
			Markup:          v.Markup,
			DiscountPercent: v.DiscountPercent,
			Stock:           v.Stock,
		})
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, in.CategoryID).Error; err != nil {
			return notFound(err, "category %d", in.CategoryID)
		}
		return tx.Create(&product).Error
	})
	if err != nil {
		return nil, err
	}

	for i, src := range in.Images {
		ref, err := s.storeImage(ctx, product.ID, src)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"product_id": product.ID, "image": i}).Warn("Failed to store product image")
			continue
		}
		img := models.ProductImage{ProductID: product.ID, ImageURL: ref, Position: i}
		if err := s.DB.WithContext(ctx).Create(&img).Error; err != nil {
			log.WithError(err).WithField("product_id", product.ID).Warn("Failed to record product image")
			s.deleteFile(ctx, product.ID, ref)
			continue
		}
		product.Images = append(product.Images, img)
	}
	return &product, nil
}

func (s *ProductService) storeImage(ctx context.Context, productID uint, src ImageSource) (string, error) {
	if s.Storage == nil {
		return "", errors.New("no storage configured")
	}
	r, contentType, err := src.Open(ctx)
	if err != nil {
		return "", errors.Wrap(err, "open image")
	}
	defer r.Close()
	ext := src.Ext
	if ext == "" {
		ext = utils.ImageExtensions[contentType]
	}
	if ext == "" {
		ext = ".jpg"
	}
	name := fmt.Sprintf("%d_%s%s", productID, strings.ReplaceAll(uuid.New().String(), "-", ""), ext)
	return s.Storage.Save(ctx, name, r, contentType)
}

func (s *ProductService) Update(ctx context.Context, id uint, patch ProductPatch) (*models.Product, error) {
	updates := map[string]interface{}{}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, invalid("product name is required")
		}
		updates["name"] = name
	}
	if patch.Description != nil {
		updates["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.Price != nil {
		if err := validatePrice(*patch.Price); err != nil {
			return nil, err
		}
		updates["price"] = *patch.Price
	}
	if patch.Brand != nil {
		updates["brand"] = strings.TrimSpace(*patch.Brand)
	}
	var product models.Product
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, id).Error; err != nil {
			return notFound(err, "product %d", id)
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&product).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// DeleteResult reports the file side of a product deletion.
type DeleteResult struct {
	Product      models.Product
	FilesDeleted int
	FilesFailed  int
}

// Delete removes the product rows in one transaction, then deletes the stored
// image files best-effort. File failures are logged and counted only.
func (s *ProductService) Delete(ctx context.Context, id uint) (*DeleteResult, error) {
	var product models.Product
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Images").First(&product, id).Error; err != nil {
			return notFound(err, "product %d", id)
		}
		steps := []struct {
			model interface{}
			query string
		}{
			{&models.CartItem{}, "product_id = ?"},
			{&models.Review{}, "product_id = ?"},
			{&models.ProductView{}, "product_id = ?"},
			{&models.ProductImage{}, "product_id = ?"},
			{&models.ProductVariant{}, "product_id = ?"},
		}
		for _, step := range steps {
			if err := tx.Where(step.query, id).Delete(step.model).Error; err != nil {
				return errors.Wrapf(err, "delete %T", step.model)
			}
		}
		if err := tx.Model(&models.OrderItem{}).Where("product_id = ?", id).
			Updates(map[string]interface{}{"product_id": nil, "variant_id": nil}).Error; err != nil {
			return errors.Wrap(err, "detach order items")
		}
		return tx.Delete(&models.Product{}, id).Error
	})
	if err != nil {
		return nil, err
	}

	res := &DeleteResult{Product: product}
	for _, img := range product.Images {
		if s.deleteFile(ctx, id, img.ImageURL) {
			res.FilesDeleted++
		} else {
			res.FilesFailed++
		}
	}
	return res, nil
}

func (s *ProductService) deleteFile(ctx context.Context, productID uint, ref string) bool {
	if s.Storage == nil {
		return false
	}
	if err := s.Storage.Delete(ctx, ref); err != nil {
		log.WithError(err).WithFields(log.Fields{"product_id": productID, "ref": ref}).Warn("Failed to delete product image file")
		return false
	}
	return true
}
