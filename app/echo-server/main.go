package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flexiprice/app/echo-server/router"
	"flexiprice/business/experiment"
	"flexiprice/business/inventory"
	"flexiprice/business/pricing"
	"flexiprice/business/product"
	"flexiprice/business/recommend"
	"flexiprice/business/scheduler"
	"flexiprice/internal/middleware"
	psqlRepo "flexiprice/internal/repository/postgres"
	redisRepo "flexiprice/internal/repository/redis"
	"flexiprice/internal/rest"
	"flexiprice/pkg/config"
	"flexiprice/pkg/database"
	redisdb "flexiprice/pkg/database/redis"
	"flexiprice/pkg/logger"
	"flexiprice/pkg/metrics"
	"flexiprice/pkg/utils"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	logger.Info("Starting FlexiPrice", "version", cfg.App.Version)

	utils.InitJWT(cfg.JWT.SecretKey)
	metrics.Init()

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	logger.Info("Database connected successfully")

	// Discount rules are mandatory; a malformed file must stop the boot.
	rules := pricing.NewProvider(cfg.Pricing.RulesPath)
	if err := rules.Load(); err != nil {
		logger.Fatal("Failed to load discount rules", "error", err)
	}

	// The model is optional; without it the ML path falls back to rules.
	var scorer recommend.Scorer
	if model, err := recommend.LoadModel(cfg.ML.ModelPath); err != nil {
		logger.Warn("Purchase model unavailable, ML recommendations disabled", "error", err)
	} else {
		scorer = model
	}

	// Init repo
	productRepo := psqlRepo.NewProductRepository(db)
	batchRepo := psqlRepo.NewBatchRepository(db)
	discountRepo := psqlRepo.NewDiscountRepository(db)
	experimentRepo := psqlRepo.NewExperimentRepository(db)
	historyRepo := psqlRepo.NewPriceHistoryRepository(db)

	// Optional Redis lease keeps recompute a singleton across replicas.
	var lease scheduler.Lease
	if cfg.Redis.Enabled {
		redisClient, err := redisdb.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, recompute lease disabled", "error", err)
		} else {
			defer redisdb.CloseRedisClient(redisClient)
			lease = redisRepo.NewRecomputeLease(redisClient)
		}
	}

	// Init service
	recommender := recommend.NewEngine(scorer, rules, recommend.Options{
		MinDiscount: int(cfg.ML.DiscountMin),
		MaxDiscount: int(cfg.ML.DiscountMax),
		Step:        int(cfg.ML.DiscountStep),
		TopK:        cfg.ML.TopK,
		UnitQty:     1,
	})
	pricingService := pricing.NewService(batchRepo, discountRepo, experimentRepo, pricing.NewEvaluator(rules), recommender)
	productService := product.NewProductService(productRepo)
	batchService := inventory.NewBatchService(batchRepo, productRepo)
	experimentService := experiment.NewService(experimentRepo, experimentRepo, productRepo)

	recompute := scheduler.New(
		batchRepo,
		pricingService,
		discountRepo,
		historyRepo,
		lease,
		cfg.Scheduler.Interval,
		cfg.Scheduler.CycleBudget,
		cfg.Scheduler.DaysThreshold,
	)

	// Init handler
	productHandler := rest.NewProductHandler(productService, historyRepo)
	batchHandler := rest.NewBatchHandler(batchService)
	pricingHandler := rest.NewPricingHandler(pricingService, discountRepo, recompute)
	experimentHandler := rest.NewExperimentHandler(experimentService)
	adminHandler := rest.NewAdminHandler(rules, recommender)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Auth middleware
	authRequired := middleware.AuthMiddleware()
	adminOnly := middleware.AdminOnly()

	// Setup routes
	api := e.Group("/api/v1")
	router.SetupProductRoutes(api, productHandler, authRequired, adminOnly)
	router.SetupBatchRoutes(api, batchHandler, authRequired, adminOnly)
	router.SetupDiscountRoutes(api, pricingHandler, authRequired, adminOnly)
	router.SetupExperimentRoutes(api, experimentHandler, authRequired, adminOnly)
	router.SetupAdminRoutes(api, adminHandler, authRequired, adminOnly)

	// Background recompute
	schedCtx, schedCancel := context.WithCancel(context.Background())
	defer schedCancel()
	go recompute.Run(schedCtx)

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	schedCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}
