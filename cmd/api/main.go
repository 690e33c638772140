// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/notification"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-backend/internal/interfaces/http"
	"github.com/your-org/storefront-backend/internal/interfaces/http/routes"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"github.com/your-org/storefront-backend/internal/pkg/email"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/pdf"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	log := logger.New(cfg)
	log.WithFields(logrus.Fields{
		"app":         cfg.App.Name,
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	}).Info("Starting service")

	db, err := postgres.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	redisClient, err := redis.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	migration := postgres.NewMigration(db.GetDB(), log)
	if err := migration.RunAutoMigrations(); err != nil {
		log.WithError(err).Fatal("Database migration failed")
	}
	if err := migration.CreateIndexes(); err != nil {
		log.WithError(err).Warn("Index creation failed")
	}

	products := product.NewService(db.GetDB(), cfg)
	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(context.Background(), products); err != nil {
			log.WithError(err).Warn("Data seeding failed")
		}
	}

	mailer, err := email.NewEmailService(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialise email service")
	}

	rdb := redisClient.GetClient()
	carts := cart.NewService(db.GetDB(), rdb, cfg)
	dispatcher := notification.NewDispatcher(rdb, mailer, cfg, log)
	orders := order.NewService(db.GetDB(), cfg, carts, dispatcher, log)

	razorpay := payment.NewRazorpayGateway(cfg, log)
	payu := payment.NewPayUGateway(cfg)
	checkout := payment.NewCheckoutService(orders, payment.NewSessionStore(rdb, cfg.Payment.CheckoutTTL), cfg, log, razorpay, payu)

	server, err := http.NewServer(cfg, log, rdb, routes.Dependencies{
		Products:  products,
		Inventory: inventory.NewService(db.GetDB(), products),
		Carts:     carts,
		Orders:    orders,
		Checkout:  checkout,
		PayU:      payu,
		Invoices:  pdf.NewService(cfg),
		JWT:       auth.NewJWTManager(cfg),
	}, map[string]http.HealthChecker{
		"database": db,
		"redis":    redisClient,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to build HTTP server")
	}

	workerCtx, stopWorker := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	workers.Add(1)
	go func() {
		defer workers.Done()
		if err := dispatcher.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("Notification worker stopped")
		}
	}()

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	stopWorker()
	workers.Wait()

	log.Info("Server shutdown completed")
}
