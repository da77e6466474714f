package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"kiprej-bot/models"
)

type OrderService struct {
	DB *gorm.DB
}

var PaymentMethods = []string{"card", "cash"}

type Checkout struct {
	TelegramID      int64
	ShippingAddress string
	PaymentMethod   string
}

func validPaymentMethod(m string) bool {
	for _, pm := range PaymentMethods {
		if pm == m {
			return true
		}
	}
	return false
}

// Checkout snapshots the user's cart into a new order and clears the cart in
// one transaction. Variant stock is checked and decremented on the way.
func (s *OrderService) Checkout(ctx context.Context, in Checkout) (*models.Order, error) {
	in.ShippingAddress = strings.TrimSpace(in.ShippingAddress)
	in.PaymentMethod = strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if in.ShippingAddress == "" {
		return nil, invalid("shipping address is required")
	}
	if !validPaymentMethod(in.PaymentMethod) {
		return nil, invalid("unknown payment method %q", in.PaymentMethod)
	}

	var order models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("telegram_id = ?", in.TelegramID).First(&user).Error; err != nil {
			return notFound(err, "user %d", in.TelegramID)
		}
		var cart models.Cart
		if err := tx.Where("user_id = ?", user.ID).First(&cart).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("cart is empty")
			}
			return err
		}
		var lines []models.CartItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Product").Preload("Variant").
			Where("cart_id = ?", cart.ID).Order("id").Find(&lines).Error; err != nil {
			return errors.Wrap(err, "load cart lines")
		}
		if len(lines) == 0 {
			return invalid("cart is empty")
		}

		items := make([]models.OrderItem, 0, len(lines))
		total := decimal.Zero
		for _, line := range lines {
			item := models.OrderItem{
				ProductID:   &line.ProductID,
				VariantID:   line.VariantID,
				ProductName: line.Product.Name,
				Quantity:    line.Quantity,
				Price:       line.PriceAtTime,
			}
			if line.Variant != nil {
				res := tx.Model(&models.ProductVariant{}).
					Where("id = ? AND stock >= ?", line.Variant.ID, line.Quantity).
					UpdateColumn("stock", gorm.Expr("stock - ?", line.Quantity))
				if res.Error != nil {
					return errors.Wrap(res.Error, "reserve stock")
				}
				if res.RowsAffected == 0 {
					return conflict("not enough stock for %s (%s)", line.Product.Name, line.Variant.Size)
				}
				item.Size = line.Variant.Size
				item.Color = line.Variant.Color
			}
			items = append(items, item)
			total = total.Add(line.LineTotal())
		}

		order = models.Order{
			UserID:          &user.ID,
			Status:          models.OrderStatusPending,
			Total:           total,
			ShippingAddress: in.ShippingAddress,
			PaymentMethod:   in.PaymentMethod,
			StatusNotified:  true,
		}
		if err := tx.Omit("Items", "User").Create(&order).Error; err != nil {
			return errors.Wrap(err, "create order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.CreateInBatches(&items, 100).Error; err != nil {
			return errors.Wrap(err, "create order items")
		}
		order.Items = items

		return tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *OrderService) Get(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).Preload("Items").Preload("User").First(&order, id).Error
	if err != nil {
		return nil, notFound(err, "order %d", id)
	}
	return &order, nil
}

// ListForUser returns the user's orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, telegramID int64) ([]models.Order, error) {
	var user models.User
	db := s.DB.WithContext(ctx)
	if err := db.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, notFound(err, "user %d", telegramID)
	}
	var orders []models.Order
	err := db.Preload("Items").Where("user_id = ?", user.ID).Order("created_at DESC, id DESC").Find(&orders).Error
	return orders, errors.Wrap(err, "list orders")
}

func (s *OrderService) ListAll(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.WithContext(ctx).Preload("User").Order("created_at DESC, id DESC").Find(&orders).Error
	return orders, errors.Wrap(err, "list orders")
}

// UpdateStatus moves an order along the status table and optionally sets the
// paid flag. A real status change queues a notice for the owner.
func (s *OrderService) UpdateStatus(ctx context.Context, id uint, status models.OrderStatus, paid *bool) (*models.Order, error) {
	if _, known := models.AllowedTransitions[status]; !known {
		return nil, invalid("unknown order status %q", status)
	}
	var order models.Order
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, id).Error; err != nil {
			return notFound(err, "order %d", id)
		}
		updates := map[string]interface{}{}
		if status != order.Status {
			if !models.IsValidTransition(order.Status, status) {
				return conflict("cannot move order %d from %s to %s", id, order.Status, status)
			}
			updates["status"] = status
			updates["status_notified"] = false
		}
		if paid != nil {
			updates["is_paid"] = *paid
		}
		if len(updates) == 0 {
			return nil
		}
		return tx.Model(&order).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// PendingNotices returns orders whose status changed since the last notice.
func (s *OrderService) PendingNotices(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.DB.WithContext(ctx).Preload("User").
		Where("status_notified = ? AND user_id IS NOT NULL", false).Order("id").Find(&orders).Error
	return orders, errors.Wrap(err, "list pending notices")
}

func (s *OrderService) MarkNotified(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status_notified", true).Error
}

// CountForUser reports how many orders a user has placed.
func (s *OrderService) CountForUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
