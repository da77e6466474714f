package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gorm.io/gorm"

	"kiprej-bot/bot"
	"kiprej-bot/config"
	"kiprej-bot/database"
	"kiprej-bot/fsm"
	"kiprej-bot/notifications"
	"kiprej-bot/routes"
	"kiprej-bot/services"
	"kiprej-bot/storage"
	"kiprej-bot/utils"
)

func main() {
	app := &cli.App{
		Name:   "kiprej-bot",
		Usage:  "Telegram clothing store bot and its admin API",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the bot, the scheduled broadcast and the HTTP server",
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "create or update the database schema and exit",
				Action: migrate,
			},
			{
				Name:   "broadcast",
				Usage:  "send pending order notices and active promotions once",
				Action: broadcastOnce,
			},
			{
				Name:  "export",
				Usage: "write every product to a spreadsheet",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "products.xlsx", Usage: "output file"},
				},
				Action: export,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("kiprej-bot failed")
	}
}

// setup loads the configuration, opens the database and brings the schema
// up to date. Every command starts here.
func setup() (*config.Config, *gorm.DB, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, nil, errors.Wrap(err, "load .env")
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, errors.Wrap(err, "load config")
	}
	config.SetupLogging(cfg)
	if err := config.ValidateEnv(cfg); err != nil {
		return nil, nil, errors.Wrap(err, "environment validation failed")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, nil, err
	}
	if err := database.EnsureSuperuser(db, cfg.SuperuserTelegramID); err != nil {
		log.WithError(err).Warn("Could not promote the superuser")
	}
	return cfg, db, nil
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.WithError(err).Error("Error closing database connection")
		return
	}
	log.Info("Database connection closed")
}

func newStorage(ctx context.Context, cfg *config.Config) (storage.Client, error) {
	if cfg.StorageBackend == config.StorageFirebase {
		return storage.NewFirebase(ctx, cfg.FirebaseBucket, cfg.FirebaseCredentials)
	}
	return storage.NewLocal(cfg.UploadDir)
}

func newServices(ctx context.Context, cfg *config.Config, db *gorm.DB) (*services.Services, error) {
	store, err := newStorage(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init storage")
	}
	svc := services.New(db, store)
	svc.Users.SuperuserID = cfg.SuperuserTelegramID
	return svc, nil
}

func newDialogStore(ctx context.Context, cfg *config.Config) (fsm.Store, func(), error) {
	if cfg.RedisURL == "" {
		return fsm.NewMemoryStore(), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parse REDIS_URL")
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, nil, errors.Wrap(err, "connect to redis")
	}
	log.Info("Dialogues are stored in redis")
	return fsm.NewRedisStore(rdb, cfg.DialogTTL), func() { rdb.Close() }, nil
}

func newBot(cfg *config.Config, svc *services.Services, dialogs fsm.Store) (*bot.Bot, *tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect to Telegram")
	}
	log.WithField("username", api.Self.UserName).Info("Authorized on Telegram")

	b := bot.New(api, svc, dialogs, bot.Options{
		PageSize:     cfg.CatalogPageSize,
		Workers:      cfg.Workers,
		ContactsText: cfg.ContactsText,
		DeliveryText: cfg.DeliveryText,
	})
	return b, api, nil
}

// setWebhook registers the webhook together with its secret token, which
// WebhookConfig cannot carry.
func setWebhook(api *tgbotapi.BotAPI, url, secret string) error {
	params := tgbotapi.Params{}
	params["url"] = url
	params.AddNonEmpty("secret_token", secret)
	if _, err := api.MakeRequest("setWebhook", params); err != nil {
		return errors.Wrap(err, "set webhook")
	}
	return nil
}

func serve(c *cli.Context) error {
	cfg, db, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := newServices(ctx, cfg, db)
	if err != nil {
		return err
	}
	dialogs, closeDialogs, err := newDialogStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDialogs()

	b, api, err := newBot(cfg, svc, dialogs)
	if err != nil {
		return err
	}
	broadcaster := notifications.NewBroadcaster(svc, b, cfg.BroadcastRate)
	b.SetBroadcaster(broadcaster)

	scheduler, err := notifications.NewScheduler(cfg.BroadcastSchedule, cfg.BroadcastTimezone, broadcaster)
	if err != nil {
		return err
	}
	scheduler.Start()
	log.WithField("next_run", scheduler.Next()).Info("Broadcast scheduled")

	jobs := utils.NewJobStore()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				jobs.CleanupOldJobs()
			}
		}
	}()

	gin.SetMode(config.GetEnv("GIN_MODE", gin.ReleaseMode))
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Limit multipart form memory to 10MB
	r.MaxMultipartMemory = 10 << 20

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
		log.Warn("No CORS origins configured, defaulting to http://localhost:3000")
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
	}))

	deps := routes.Deps{
		DB:          db,
		Services:    svc,
		Jobs:        jobs,
		Broadcaster: broadcaster,
	}
	webhook := cfg.WebhookURL != ""
	if webhook {
		deps.Bot = b
		deps.WebhookSecret = cfg.WebhookSecret
		if err := setWebhook(api, cfg.WebhookURL, cfg.WebhookSecret); err != nil {
			return err
		}
		log.WithField("url", cfg.WebhookURL).Info("Receiving updates by webhook")
	} else if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.WithError(err).Warn("Could not remove a previous webhook")
	}
	routes.SetupRoutes(r, deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}
	serverErr := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	pollDone := make(chan error, 1)
	if !webhook {
		go func() { pollDone <- b.Run(ctx) }()
	}

	select {
	case <-ctx.Done():
		log.Info("Shutting down...")
	case err := <-serverErr:
		stop()
		log.WithError(err).Error("HTTP server failed")
	}

	// Give outstanding work 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server forced to shutdown")
	}
	scheduler.Stop(shutdownCtx)
	if !webhook {
		select {
		case <-pollDone:
		case <-shutdownCtx.Done():
			log.Warn("Timed out waiting for in-flight updates")
		}
	}

	log.Info("Server exited gracefully")
	return nil
}

func migrate(*cli.Context) error {
	_, db, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)
	log.Info("Database schema is up to date")
	return nil
}

func broadcastOnce(c *cli.Context) error {
	cfg, db, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)

	svc, err := newServices(c.Context, cfg, db)
	if err != nil {
		return err
	}
	b, _, err := newBot(cfg, svc, fsm.NewMemoryStore())
	if err != nil {
		return err
	}
	report, err := notifications.NewBroadcaster(svc, b, cfg.BroadcastRate).Run(c.Context)
	if err != nil {
		return err
	}
	fmt.Println(report)
	return nil
}

func export(c *cli.Context) error {
	cfg, db, err := setup()
	if err != nil {
		return err
	}
	defer closeDB(db)

	svc, err := newServices(c.Context, cfg, db)
	if err != nil {
		return err
	}
	out := c.String("out")
	f, err := os.Create(out)
	if err != nil {
		return errors.Wrap(err, "create export file")
	}
	if err := svc.Export.WriteProducts(c.Context, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(err, "close export file")
	}
	log.WithField("file", out).Info("Products exported")
	return nil
}
