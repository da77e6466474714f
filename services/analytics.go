package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"kiprej-bot/models"
)

type AnalyticsService struct {
	DB *gorm.DB
}

type PopularProduct struct {
	Product models.Product
	Views   int64
}

// RecordView logs that a product card was shown. Unknown viewers are stored
// without a user reference.
func (s *AnalyticsService) RecordView(ctx context.Context, productID uint, telegramID int64) error {
	db := s.DB.WithContext(ctx)
	view := models.ProductView{ProductID: productID, ViewedAt: time.Now()}
	var user models.User
	err := db.Select("id").Where("telegram_id = ?", telegramID).First(&user).Error
	switch {
	case err == nil:
		view.UserID = &user.ID
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Wrap(err, "resolve viewer")
	}
	return errors.Wrap(db.Create(&view).Error, "record view")
}

// Popular returns the most viewed products, most views first.
func (s *AnalyticsService) Popular(ctx context.Context, limit int) ([]PopularProduct, error) {
	if limit <= 0 {
		return nil, invalid("limit %d", limit)
	}
	var rows []struct {
		ProductID uint
		Views     int64
	}
	db := s.DB.WithContext(ctx)
	err := db.Model(&models.ProductView{}).
		Select("product_id, COUNT(*) AS views").
		Group("product_id").
		Order("views DESC, product_id").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "count views")
	}
	out := make([]PopularProduct, 0, len(rows))
	for _, row := range rows {
		var p models.Product
		if err := db.First(&p, row.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, PopularProduct{Product: p, Views: row.Views})
	}
	return out, nil
}
