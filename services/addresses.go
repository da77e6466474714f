package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"kiprej-bot/models"
)

type AddressService struct {
	DB *gorm.DB
}

type NewAddress struct {
	AddressLine string
	City        string
	PostalCode  string
	Country     string
}

func (s *AddressService) List(ctx context.Context, telegramID int64) ([]models.Address, error) {
	var user models.User
	db := s.DB.WithContext(ctx)
	if err := db.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, notFound(err, "user %d", telegramID)
	}
	var addresses []models.Address
	err := db.Where("user_id = ?", user.ID).Order("id").Find(&addresses).Error
	return addresses, errors.Wrap(err, "list addresses")
}

func (s *AddressService) Add(ctx context.Context, telegramID int64, in NewAddress) (*models.Address, error) {
	addr := models.Address{
		AddressLine: strings.TrimSpace(in.AddressLine),
		City:        strings.TrimSpace(in.City),
		PostalCode:  strings.TrimSpace(in.PostalCode),
		Country:     strings.TrimSpace(in.Country),
	}
	if addr.AddressLine == "" || addr.City == "" || addr.Country == "" {
		return nil, invalid("address line, city and country are required")
	}
	var user models.User
	db := s.DB.WithContext(ctx)
	if err := db.Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, notFound(err, "user %d", telegramID)
	}
	addr.UserID = user.ID
	if err := db.Create(&addr).Error; err != nil {
		return nil, errors.Wrap(err, "create address")
	}
	return &addr, nil
}

func (s *AddressService) Delete(ctx context.Context, telegramID int64, id uint) error {
	addresses, err := s.List(ctx, telegramID)
	if err != nil {
		return err
	}
	for _, a := range addresses {
		if a.ID == id {
			return s.DB.WithContext(ctx).Delete(&models.Address{}, id).Error
		}
	}
	return errors.Wrapf(ErrNotFound, "address %d", id)
}
