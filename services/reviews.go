package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"kiprej-bot/models"
)

type ReviewService struct {
	DB *gorm.DB
}

// Create stores an unapproved review; it shows up once an admin approves it.
func (s *ReviewService) Create(ctx context.Context, telegramID int64, productID uint, rating int, comment string) (*models.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, invalid("rating must be between 1 and 5, got %d", rating)
	}
	review := models.Review{ProductID: productID, Rating: rating, Comment: strings.TrimSpace(comment)}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
			return notFound(err, "user %d", telegramID)
		}
		var product models.Product
		if err := tx.Select("id").First(&product, productID).Error; err != nil {
			return notFound(err, "product %d", productID)
		}
		review.UserID = user.ID
		return tx.Create(&review).Error
	})
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (s *ReviewService) Approved(ctx context.Context, productID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := s.DB.WithContext(ctx).Preload("User").
		Where("product_id = ? AND is_approved = ?", productID, true).
		Order("created_at DESC, id DESC").Find(&reviews).Error
	return reviews, errors.Wrap(err, "list reviews")
}

func (s *ReviewService) Pending(ctx context.Context) ([]models.Review, error) {
	var reviews []models.Review
	err := s.DB.WithContext(ctx).Preload("User").Where("is_approved = ?", false).Order("id").Find(&reviews).Error
	return reviews, errors.Wrap(err, "list pending reviews")
}

func (s *ReviewService) Approve(ctx context.Context, id uint) (*models.Review, error) {
	var review models.Review
	db := s.DB.WithContext(ctx)
	if err := db.First(&review, id).Error; err != nil {
		return nil, notFound(err, "review %d", id)
	}
	if err := db.Model(&review).Update("is_approved", true).Error; err != nil {
		return nil, errors.Wrap(err, "approve review")
	}
	review.IsApproved = true
	return &review, nil
}
