package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"kiprej-bot/models"
	"kiprej-bot/utils"
)

type UserService struct {
	DB *gorm.DB
	// SuperuserID is registered with the superuser role.
	SuperuserID int64
}

type Registration struct {
	TelegramID int64
	FullName   string
	Email      *string
	Phone      string
}

// ProfileUpdate carries the new profile values. Email nil clears it.
type ProfileUpdate struct {
	FullName string
	Email    *string
	Phone    string
}

func validateProfile(fullName string, email *string, phone string) error {
	if !utils.ValidFullName(fullName) {
		return invalid("full name must contain at least two words")
	}
	if email != nil && !utils.ValidEmail(*email) {
		return invalid("malformed email %q", *email)
	}
	if !utils.ValidPhone(phone) {
		return invalid("malformed phone %q", phone)
	}
	return nil
}

// Get resolves a registered user by Telegram id.
func (s *UserService) Get(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		return nil, notFound(err, "user %d", telegramID)
	}
	return &user, nil
}

// Find is Get that reports an unregistered user as nil without error.
func (s *UserService) Find(ctx context.Context, telegramID int64) (*models.User, error) {
	user, err := s.Get(ctx, telegramID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return user, err
}

func (s *UserService) Register(ctx context.Context, r Registration) (*models.User, error) {
	r.FullName = strings.TrimSpace(r.FullName)
	if err := validateProfile(r.FullName, r.Email, r.Phone); err != nil {
		return nil, err
	}
	user := models.User{
		TelegramID:   r.TelegramID,
		FullName:     r.FullName,
		Email:        r.Email,
		Phone:        r.Phone,
		IsSubscribed: true,
		Role:         models.RoleUser,
	}
	if s.SuperuserID != 0 && r.TelegramID == s.SuperuserID {
		user.Role = models.RoleSuperuser
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("telegram_id = ?", r.TelegramID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return conflict("user %d already registered", r.TelegramID)
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, telegramID int64, u ProfileUpdate) (*models.User, error) {
	u.FullName = strings.TrimSpace(u.FullName)
	if err := validateProfile(u.FullName, u.Email, u.Phone); err != nil {
		return nil, err
	}
	user, err := s.Get(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	err = s.DB.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"full_name": u.FullName,
		"email":     u.Email,
		"phone":     u.Phone,
	}).Error
	if err != nil {
		return nil, errors.Wrap(err, "update profile")
	}
	user.FullName, user.Email, user.Phone = u.FullName, u.Email, u.Phone
	return user, nil
}

// Delete removes the user and everything personal hanging off it. Orders stay
// with their snapshots and lose the owner reference.
func (s *UserService) Delete(ctx context.Context, telegramID int64) error {
	user, err := s.Get(ctx, telegramID)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cartIDs []uint
		if err := tx.Model(&models.Cart{}).Where("user_id = ?", user.ID).Pluck("id", &cartIDs).Error; err != nil {
			return err
		}
		if len(cartIDs) > 0 {
			if err := tx.Where("cart_id IN ?", cartIDs).Delete(&models.CartItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", cartIDs).Delete(&models.Cart{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Address{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.ProductView{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Order{}).Where("user_id = ?", user.ID).Update("user_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
}

func (s *UserService) SetSubscribed(ctx context.Context, telegramID int64, subscribed bool) error {
	user, err := s.Get(ctx, telegramID)
	if err != nil {
		return err
	}
	return s.DB.WithContext(ctx).Model(user).Update("is_subscribed", subscribed).Error
}

// SetRole changes the role of target. Only a superuser may do it.
func (s *UserService) SetRole(ctx context.Context, actor *models.User, targetTelegramID int64, role models.Role) (*models.User, error) {
	if err := Require(actor, models.RoleSuperuser); err != nil {
		return nil, err
	}
	if _, ok := models.ParseRole(string(role)); !ok {
		return nil, invalid("unknown role %q", role)
	}
	target, err := s.Get(ctx, targetTelegramID)
	if err != nil {
		return nil, err
	}
	if err := s.DB.WithContext(ctx).Model(target).Update("role", role).Error; err != nil {
		return nil, errors.Wrap(err, "set role")
	}
	target.Role = role
	return target, nil
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.DB.WithContext(ctx).Order("id").Find(&users).Error
	return users, errors.Wrap(err, "list users")
}

func (s *UserService) ListSubscribed(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.DB.WithContext(ctx).Where("is_subscribed = ?", true).Order("id").Find(&users).Error
	return users, errors.Wrap(err, "list subscribed users")
}

// Details loads a user with addresses and an order count.
func (s *UserService) Details(ctx context.Context, telegramID int64) (*models.User, int64, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Preload("Addresses").Where("telegram_id = ?", telegramID).First(&user).Error
	if err != nil {
		return nil, 0, notFound(err, "user %d", telegramID)
	}
	var orders int64
	if err := s.DB.WithContext(ctx).Model(&models.Order{}).Where("user_id = ?", user.ID).Count(&orders).Error; err != nil {
		return nil, 0, err
	}
	return &user, orders, nil
}
