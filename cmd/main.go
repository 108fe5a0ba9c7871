package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"marketplace-service/internal/handler"
	mid "marketplace-service/internal/middleware"
	"marketplace-service/internal/notify"
	"marketplace-service/pkg/config"
	"marketplace-service/pkg/database"
	"marketplace-service/pkg/logger"
	"marketplace-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(appConfig); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting marketplace-service",
		zap.String("environment", appConfig.Server.Env),
		zap.String("port", appConfig.Server.Port))

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Initialize database
	if err := database.InitDB(appConfig); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Handler-level collaborators (feed fetcher)
	handler.Init(appConfig)

	// Notification pipeline
	sender, err := notify.NewSender(appConfig, log)
	if err != nil {
		log.Fatal("Failed to initialize notification sender", zap.Error(err))
	}
	dispatcher := notify.NewDispatcher(
		database.GetDB(), sender, log,
		appConfig.Notify.PollInterval,
		appConfig.Notify.BatchSize,
		appConfig.Notify.MaxAttempts,
		appConfig.Auth.AdminEmail,
	)

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(mid.RequestIDMiddleware)
	e.Use(mid.MetricsMiddleware)
	throttler := mid.NewThrottler(appConfig.Throttle)
	e.Use(throttler.Middleware)

	// Metrics and health endpoints
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/health", handler.Health)

	// Public catalog routes
	e.GET("/api/shops", handler.ListShops)
	e.GET("/api/shops/:id", handler.GetShop)
	e.GET("/api/categories", handler.ListCategories)
	e.GET("/api/categories/:id", handler.GetCategory)
	e.GET("/api/products", handler.ListProducts)
	e.GET("/api/products/:id", handler.GetProduct)

	// User routes
	users := e.Group("/api/users")
	users.POST("/register", handler.Register)
	users.POST("/register/confirm", handler.ConfirmAccount)
	users.POST("/login", handler.Login)
	users.POST("/reset-password", handler.ResetPassword)
	users.POST("/reset-password/confirm", handler.ResetPasswordConfirm)

	authed := e.Group("/api/users", mid.AuthMiddleware)
	authed.POST("/logout", handler.Logout)
	authed.GET("/profile", handler.GetProfile)
	authed.PATCH("/profile", handler.UpdateProfile)
	authed.POST("/contacts", handler.CreateContact)
	authed.GET("/contacts/:id", handler.GetContact)
	authed.PUT("/contacts/:id", handler.UpdateContact)
	authed.PATCH("/contacts/:id", handler.UpdateContact)
	authed.DELETE("/contacts/:id", handler.DeleteContact)

	// Basket routes
	basket := e.Group("/api/basket", mid.AuthMiddleware)
	basket.GET("", handler.GetBasket)
	basket.POST("", handler.PostBasket)
	basket.PUT("", handler.PutBasket)
	basket.DELETE("", handler.DeleteBasket)

	// Order routes
	orders := e.Group("/api/orders", mid.AuthMiddleware)
	orders.POST("/confirm", handler.ConfirmOrder)
	orders.GET("", handler.ListOrders)
	orders.GET("/:id", handler.GetOrder)
	orders.PATCH("/:id/status", handler.SetOrderStatus, mid.StaffMiddleware)

	// Partner routes
	partner := e.Group("/api/partner", mid.AuthMiddleware, mid.ShopMiddleware)
	partner.POST("/update", handler.ImportCatalog)
	partner.PATCH("/state", handler.SetShopState)
	partner.GET("/orders", handler.PartnerOrders)

	// Run server and dispatcher until a shutdown signal arrives
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := e.Start(":" + appConfig.Server.Port)
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		err := dispatcher.Run(ctx)
		if err != nil && err != context.Canceled {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Fatal("Server error", zap.Error(err))
	}
	log.Info("Server stopped")
}
