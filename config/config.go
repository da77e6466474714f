package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	log "github.com/sirupsen/logrus"
)

const (
	StorageLocal    = "local"
	StorageFirebase = "firebase"
)

type Config struct {
	BotToken    string `envconfig:"BOT_TOKEN" required:"true"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	RedisURL    string `envconfig:"REDIS_URL"`

	StorageBackend      string `envconfig:"STORAGE_BACKEND" default:"local"`
	UploadDir           string `envconfig:"UPLOAD_DIR" default:"uploads"`
	FirebaseBucket      string `envconfig:"FIREBASE_STORAGE_BUCKET"`
	FirebaseCredentials string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`

	Port          string   `envconfig:"PORT" default:"8080"`
	WebhookURL    string   `envconfig:"WEBHOOK_URL"`
	WebhookSecret string   `envconfig:"WEBHOOK_SECRET"`
	JWTSecret     string   `envconfig:"JWT_SECRET"`
	CORSOrigins   []string `envconfig:"CORS_ORIGINS"`

	SuperuserTelegramID int64 `envconfig:"SUPERUSER_TELEGRAM_ID"`

	BroadcastSchedule string  `envconfig:"BROADCAST_SCHEDULE" default:"0 18 * * *"`
	BroadcastTimezone string  `envconfig:"BROADCAST_TIMEZONE" default:"Europe/Moscow"`
	BroadcastRate     float64 `envconfig:"BROADCAST_RATE" default:"25"`

	CatalogPageSize int           `envconfig:"CATALOG_PAGE_SIZE" default:"10"`
	Workers         int           `envconfig:"WORKERS" default:"8"`
	DialogTTL       time.Duration `envconfig:"DIALOG_TTL" default:"24h"`
	ContactsText    string        `envconfig:"CONTACTS_TEXT" default:"Write to us in this chat, we answer every day from 10:00 to 20:00."`
	DeliveryText    string        `envconfig:"DELIVERY_TEXT" default:"Delivery by courier or post. Pay by card online or in cash on delivery."`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

func LoadEnv() error {
	// A missing .env is fine: production sets the environment directly.
	_ = godotenv.Load()
	return nil
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateEnv checks that the settings the chosen modes depend on are present.
// Returns an error if any critical value is missing and logs warnings for the rest.
func ValidateEnv(cfg *Config) error {
	var missing []string

	switch cfg.StorageBackend {
	case StorageLocal:
	case StorageFirebase:
		if cfg.FirebaseBucket == "" {
			missing = append(missing, "FIREBASE_STORAGE_BUCKET")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.StorageBackend)
	}
	if cfg.WebhookURL != "" && cfg.WebhookSecret == "" {
		missing = append(missing, "WEBHOOK_SECRET")
	}
	if cfg.CatalogPageSize <= 0 {
		return fmt.Errorf("CATALOG_PAGE_SIZE must be positive, got %d", cfg.CatalogPageSize)
	}
	if _, err := time.LoadLocation(cfg.BroadcastTimezone); err != nil {
		return fmt.Errorf("invalid BROADCAST_TIMEZONE: %w", err)
	}

	if len(missing) > 0 {
		return fmt.Errorf("critical environment variables not set: %v", missing)
	}

	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set - using local default")
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET not set - admin API is disabled")
	}
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not set - dialogues are kept in memory and lost on restart")
	}
	if cfg.SuperuserTelegramID == 0 {
		log.Warn("SUPERUSER_TELEGRAM_ID not set - nobody can assign roles")
	}

	return nil
}

// SetupLogging applies the configured level and format to logrus.
func SetupLogging(cfg *Config) {
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Unknown LOG_LEVEL, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
