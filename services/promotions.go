package services

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"kiprej-bot/models"
)

type PromotionService struct {
	DB *gorm.DB
}

func (s *PromotionService) List(ctx context.Context) ([]models.Promotion, error) {
	var promotions []models.Promotion
	err := s.DB.WithContext(ctx).Order("created_at DESC, id DESC").Find(&promotions).Error
	return promotions, errors.Wrap(err, "list promotions")
}

// Active returns the promotions that should run at now.
func (s *PromotionService) Active(ctx context.Context, now time.Time) ([]models.Promotion, error) {
	var promotions []models.Promotion
	err := s.DB.WithContext(ctx).
		Where("is_active = ?", true).
		Where("(start_date IS NULL OR start_date <= ?) AND (end_date IS NULL OR end_date >= ?)", now, now).
		Order("id").Find(&promotions).Error
	return promotions, errors.Wrap(err, "list active promotions")
}

func (s *PromotionService) Create(ctx context.Context, p models.Promotion) (*models.Promotion, error) {
	p.Title = strings.TrimSpace(p.Title)
	if p.Title == "" {
		return nil, invalid("promotion title is required")
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return nil, invalid("promotion ends before it starts")
	}
	active := p.IsActive
	db := s.DB.WithContext(ctx)
	if err := db.Create(&p).Error; err != nil {
		return nil, errors.Wrap(err, "create promotion")
	}
	// gorm skips a false bool on create and the column default wins.
	if !active {
		if err := db.Model(&p).Update("is_active", false).Error; err != nil {
			return nil, errors.Wrap(err, "deactivate promotion")
		}
		p.IsActive = false
	}
	return &p, nil
}

func (s *PromotionService) Delete(ctx context.Context, id uint) error {
	res := s.DB.WithContext(ctx).Delete(&models.Promotion{}, id)
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete promotion")
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(ErrNotFound, "promotion %d", id)
	}
	return nil
}
