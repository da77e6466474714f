package services

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"kiprej-bot/models"
)

type CategoryService struct {
	DB *gorm.DB
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.DB.WithContext(ctx).Order("id").Find(&categories).Error
	return categories, errors.Wrap(err, "list categories")
}

func (s *CategoryService) Get(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := s.DB.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, notFound(err, "category %d", id)
	}
	return &category, nil
}

// FindByName matches a category name case-insensitively.
func (s *CategoryService) FindByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	err := s.DB.WithContext(ctx).Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).First(&category).Error
	if err != nil {
		return nil, notFound(err, "category %q", name)
	}
	return &category, nil
}

func (s *CategoryService) Create(ctx context.Context, name, description string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("category name is required")
	}
	category := models.Category{Name: name, Description: strings.TrimSpace(description)}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureUniqueCategory(tx, name, 0); err != nil {
			return err
		}
		return tx.Create(&category).Error
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

func (s *CategoryService) Update(ctx context.Context, id uint, name, description string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("category name is required")
	}
	var category models.Category
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&category, id).Error; err != nil {
			return notFound(err, "category %d", id)
		}
		if err := ensureUniqueCategory(tx, name, id); err != nil {
			return err
		}
		category.Name = name
		category.Description = strings.TrimSpace(description)
		return tx.Save(&category).Error
	})
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// Delete refuses to remove a category that still owns products.
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, id).Error; err != nil {
			return notFound(err, "category %d", id)
		}
		var count int64
		if err := tx.Model(&models.Product{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return conflict("category %q still has %d products", category.Name, count)
		}
		return tx.Delete(&category).Error
	})
}

func ensureUniqueCategory(tx *gorm.DB, name string, exceptID uint) error {
	var count int64
	q := tx.Model(&models.Category{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return conflict("category %q already exists", name)
	}
	return nil
}
