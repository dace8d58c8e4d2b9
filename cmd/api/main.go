package main

import (
	"context"
	"net/http"
	"os"

	_ "taxengine/api/swagger" // swagger docs
	"taxengine/internal/config"
	"taxengine/internal/database"
	"taxengine/internal/handler"
	"taxengine/internal/logger"
	"taxengine/internal/repository"
	"taxengine/internal/seed"
	"taxengine/internal/service"
	"taxengine/internal/tax"
	"taxengine/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Tax Computation API
// @version         1.0
// @description     Computes PAYE, small business, CIT and VAT liabilities from versioned rate schedules, and tracks filing reminders.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	db, err := database.NewConnection(cfg.DatabaseDSN)
	if err != nil {
		logger.L.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	logger.L.Info("connected to PostgreSQL")

	secret := []byte(cfg.JWTSecret)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	store := tax.NewCachedStore(scheduleRepo, tax.CachedStoreConfig{
		Timeout:     cfg.ScheduleLookupTimeout,
		MaxRetries:  cfg.ScheduleLookupRetries,
		BaseBackoff: tax.DefaultCachedStoreConfig().BaseBackoff,
		ActiveTTL:   cfg.ActiveVersionCacheTTL,
	})
	engine := tax.NewEngine(store)

	taxService := service.NewTaxService(engine, scheduleRepo, store, txManager, auditRepo)
	reminderService := service.NewReminderService(reminderRepo, auditRepo, wsHub)
	auditService := service.NewAuditService(auditRepo)

	if cfg.SeedPolicies {
		if err := seed.Run(context.Background(), txManager, scheduleRepo, taxService); err != nil {
			logger.L.Error("seeding tax policies failed", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Handlers
	taxHandler := handler.NewTaxHandler(taxService, secret)
	reminderHandler := handler.NewReminderHandler(reminderService, secret)
	auditHandler := handler.NewAuditHandler(auditService, secret)

	// Set up Gin Router
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	// WebSocket endpoint, pushes unread reminder counts
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, secret)
	})

	// API Routing
	taxHandler.RegisterRoutes(router.Group(""))
	reminderHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))

	logger.L.Info("server listening", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.L.Error("server failed", "error", err)
		os.Exit(1)
	}
}
