package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"caovalente_app_echo/internal/gateway"
	"caovalente_app_echo/internal/handlers"
	appMiddleware "caovalente_app_echo/internal/middleware"
	"caovalente_app_echo/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	ctx := context.Background()

	// Initialize Firestore (campaign ledger)
	credPath := os.Getenv("FIREBASE_CREDENTIALS_PATH")
	if credPath == "" {
		credPath = "./firebase-service-account.json"
	}

	firestoreClient, err := services.InitFirestore(ctx, credPath)
	if err != nil {
		log.Fatalf("Failed to initialize Firestore: %v", err)
	}
	defer firestoreClient.Close()

	ledger := services.NewCampaignLedger(firestoreClient)

	// Initialize Database (donation audit trail, optional)
	var db *gorm.DB
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL != "" {
		db, err = services.InitDB(databaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}

		if err := services.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run database migrations: %v", err)
		}
	} else {
		log.Println("Warning: DATABASE_URL not set, donation audit trail disabled")
	}

	// Initialize Redis (reconciliation dedup + campaign cache, optional)
	var cache *services.RedisCache
	var guard services.DedupGuard
	redisURL := os.Getenv("REDIS_URL")
	if redisURL != "" {
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer cache.Close()
		guard = services.NewReconciliationGuard(cache)
	} else {
		log.Println("Warning: REDIS_URL not set, using in-memory dedup guard")
		guard = services.NewMemoryGuard()
	}

	// Core services
	registry := gateway.NewRegistry()
	tracker := services.NewConversionTracker()
	reconciler := services.NewReconciler(db, ledger, guard, tracker)
	chargeService := services.NewChargeService(registry, reconciler, tracker)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = appMiddleware.JSONErrorHandler

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Initialize handlers
	paymentHandler := handlers.NewPaymentHandler(chargeService, ledger)
	webhookHandler := handlers.NewWebhookHandler(registry, reconciler)
	campaignHandler := handlers.NewCampaignHandler(ledger, cache)

	// Routes
	api := e.Group("/api")
	api.POST("/create-payment", paymentHandler.CreatePayment)
	api.POST("/check-payment", paymentHandler.CheckPayment)
	api.POST("/abandon-payment", paymentHandler.AbandonPayment)
	api.GET("/campaigns/:id", campaignHandler.GetCampaign)
	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	webhooks := api.Group("/webhooks")
	webhooks.Use(appMiddleware.RequireWebhookToken())
	webhooks.POST("/:provider", webhookHandler.Handle)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	// Handle graceful shutdown: stop accepting requests, then stop the
	// confirmation watchers so no poll fires against a closed reconciler.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	chargeService.Shutdown()
	log.Println("Server stopped")
}
