package database

import (
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kiprej-bot/models"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=kiprej port=5432 sslmode=disable"

func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = defaultDSN
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	return db, nil
}

// Migrate creates or updates every table the bot uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Address{},
		&models.Category{},
		&models.Product{},
		&models.ProductVariant{},
		&models.ProductImage{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Review{},
		&models.ProductView{},
		&models.Promotion{},
	); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	return nil
}

// EnsureSuperuser promotes an already registered account to superuser.
// Accounts registering later get the role at registration.
func EnsureSuperuser(db *gorm.DB, telegramID int64) error {
	if telegramID == 0 {
		return nil
	}

	var user models.User
	result := db.Where("telegram_id = ?", telegramID).Limit(1).Find(&user)
	if result.Error != nil {
		return errors.Wrap(result.Error, "look up superuser")
	}
	if result.RowsAffected == 0 || user.Role == models.RoleSuperuser {
		return nil
	}

	if err := db.Model(&user).Update("role", models.RoleSuperuser).Error; err != nil {
		return errors.Wrap(err, "promote superuser")
	}

	log.WithField("telegram_id", telegramID).Info("Promoted configured account to superuser")
	return nil
}
