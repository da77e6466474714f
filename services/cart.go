package services

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kiprej-bot/catalog"
	"kiprej-bot/models"
)

type CartService struct {
	DB *gorm.DB
}

type AddToCart struct {
	TelegramID int64
	ProductID  uint
	Size       string
	Quantity   int
}

// Add resolves (user, product, size) into a cart line inside one transaction.
// An existing line for the same variant gains the quantity and keeps its
// original price snapshot.
func (s *CartService) Add(ctx context.Context, in AddToCart) (*models.CartItem, error) {
	if in.Quantity < 1 {
		return nil, invalid("quantity must be at least 1, got %d", in.Quantity)
	}
	if strings.TrimSpace(in.Size) == "" {
		return nil, invalid("size is required")
	}
	var line models.CartItem
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("telegram_id = ?", in.TelegramID).First(&user).Error; err != nil {
			return notFound(err, "user %d", in.TelegramID)
		}
		cart, err := ensureCart(tx, user.ID)
		if err != nil {
			return err
		}
		var product models.Product
		if err := tx.First(&product, in.ProductID).Error; err != nil {
			return notFound(err, "product %d", in.ProductID)
		}
		var variant models.ProductVariant
		if err := tx.Where("product_id = ? AND size = ?", product.ID, in.Size).Order("id").First(&variant).Error; err != nil {
			return notFound(err, "product %d size %q", product.ID, in.Size)
		}
		price := catalog.ComputePrice(product.Price, variant.Markup, variant.DiscountPercent).Final

		candidate := models.CartItem{
			CartID:      cart.ID,
			ProductID:   product.ID,
			VariantID:   &variant.ID,
			Quantity:    in.Quantity,
			PriceAtTime: price,
		}
		err = tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "product_id"}, {Name: "variant_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_items.quantity + ?", in.Quantity),
				"updated_at": time.Now(),
			}),
		}).Create(&candidate).Error
		if err != nil {
			return errors.Wrap(err, "upsert cart line")
		}
		return tx.Where("cart_id = ? AND product_id = ? AND variant_id = ?", cart.ID, product.ID, variant.ID).
			First(&line).Error
	})
	if err != nil {
		return nil, err
	}
	return &line, nil
}

// ensureCart returns the user's cart, creating it on first use. The unique
// index on carts.user_id keeps concurrent first uses from creating two.
func ensureCart(tx *gorm.DB, userID uint) (*models.Cart, error) {
	cart := models.Cart{UserID: userID}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&cart).Error
	if err != nil {
		return nil, errors.Wrap(err, "create cart")
	}
	var stored models.Cart
	if err := tx.Where("user_id = ?", userID).First(&stored).Error; err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	return &stored, nil
}

// Get returns the user's cart with lines, products and variants. A user
// without a cart gets an empty, unsaved one.
func (s *CartService) Get(ctx context.Context, telegramID int64) (*models.Cart, error) {
	var user models.User
	db := s.DB.WithContext(ctx)
	if err := db.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, notFound(err, "user %d", telegramID)
	}
	var cart models.Cart
	err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Items.Product").
		Preload("Items.Variant").
		Where("user_id = ?", user.ID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Cart{UserID: user.ID}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "load cart")
	}
	return &cart, nil
}

// RemoveLine deletes one line from the user's own cart.
func (s *CartService) RemoveLine(ctx context.Context, telegramID int64, lineID uint) error {
	cart, err := s.Get(ctx, telegramID)
	if err != nil {
		return err
	}
	res := s.DB.WithContext(ctx).Where("id = ? AND cart_id = ?", lineID, cart.ID).Delete(&models.CartItem{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "remove cart line")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "cart line %d", lineID)
	}
	return nil
}

func (s *CartService) Clear(ctx context.Context, telegramID int64) error {
	cart, err := s.Get(ctx, telegramID)
	if err != nil {
		return err
	}
	if cart.ID == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error
}

// Total sums the snapshot line totals of a cart.
func Total(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}
