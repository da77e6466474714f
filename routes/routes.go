package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"kiprej-bot/handlers"
	"kiprej-bot/middleware"
	"kiprej-bot/services"
	"kiprej-bot/utils"
)

// Deps is everything the HTTP surface is built from. A nil Bot leaves the
// webhook route out (the bot is polling).
type Deps struct {
	DB            *gorm.DB
	Services      *services.Services
	Jobs          *utils.JobStore
	Broadcaster   handlers.BroadcastRunner
	Bot           handlers.UpdateHandler
	WebhookSecret string
}

// WebhookPath is where Telegram posts updates in webhook mode.
const WebhookPath = "/telegram/webhook"

func SetupRoutes(r *gin.Engine, d Deps) {
	svc := d.Services

	healthHandler := &handlers.HealthHandler{DB: d.DB}
	productHandler := &handlers.ProductHandler{
		Catalog:  svc.Catalog,
		Products: svc.Products,
		Reviews:  svc.Reviews,
		Export:   svc.Export,
	}
	categoryHandler := &handlers.CategoryHandler{Categories: svc.Categories}
	orderHandler := &handlers.OrderHandler{Orders: svc.Orders}
	promotionHandler := &handlers.PromotionHandler{Promotions: svc.Promotions}
	broadcastHandler := &handlers.BroadcastHandler{Runner: d.Broadcaster, Jobs: d.Jobs}
	analyticsHandler := &handlers.AnalyticsHandler{Analytics: svc.Analytics, Reviews: svc.Reviews}

	r.GET("/health", healthHandler.Health)

	if d.Bot != nil {
		webhookHandler := &handlers.WebhookHandler{Bot: d.Bot, Secret: d.WebhookSecret}
		r.POST(WebhookPath, webhookHandler.Receive)
	}

	// Public catalog routes
	api := r.Group("/api")
	api.Use(middleware.NewRateLimiter(120, time.Minute).Middleware())
	{
		api.GET("/categories", categoryHandler.GetCategories)
		api.GET("/products", productHandler.GetProducts)
		api.GET("/products/:id", productHandler.GetProduct)
		api.GET("/products/:id/reviews", productHandler.GetReviews)
		api.GET("/promotions", promotionHandler.GetPromotions)
	}

	// Admin routes (require a token and a current admin role)
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.AdminMiddleware(svc.Users))
	{
		// Category management
		admin.POST("/categories", categoryHandler.CreateCategory)
		admin.PUT("/categories/:id", categoryHandler.UpdateCategory)
		admin.DELETE("/categories/:id", categoryHandler.DeleteCategory)

		// Product management
		admin.POST("/products", productHandler.CreateProduct)
		admin.DELETE("/products/:id", productHandler.DeleteProduct)
		admin.GET("/products/export", productHandler.GetProductsExport)

		// Order management
		admin.GET("/orders", orderHandler.GetOrders)
		admin.GET("/orders/transitions", orderHandler.GetOrderTransitions)
		admin.GET("/orders/:id", orderHandler.GetOrder)
		admin.PUT("/orders/:id/status", orderHandler.UpdateOrderStatus)

		// Promotion management
		admin.GET("/promotions", promotionHandler.GetAllPromotions)
		admin.POST("/promotions", promotionHandler.CreatePromotion)
		admin.DELETE("/promotions/:id", promotionHandler.DeletePromotion)

		// Broadcasts
		admin.POST("/broadcasts", broadcastHandler.StartBroadcast)
		admin.GET("/broadcasts/:id", broadcastHandler.GetBroadcast)

		// Analytics and moderation
		admin.GET("/analytics/popular", analyticsHandler.GetPopular)
		admin.GET("/reviews/pending", analyticsHandler.GetPendingReviews)
		admin.PUT("/reviews/:id/approve", analyticsHandler.ApproveReview)
	}
}
