package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	admin_app "storefront/internal/app/admin"
	checkout_app "storefront/internal/app/checkout"
	"storefront/internal/app/fulfillment"
	"storefront/internal/config"
	"storefront/internal/domain"
	"storefront/internal/gateway"
	"storefront/internal/gateway/paypal"
	"storefront/internal/gateway/stripe"
	http_admin "storefront/internal/handler/http/admin"
	http_checkout "storefront/internal/handler/http/checkout"
	kafka_handler "storefront/internal/handler/kafka"
	"storefront/internal/infrastructure/database"
	"storefront/internal/infrastructure/kafka"
	"storefront/internal/infrastructure/mail"
	"storefront/internal/outbox"
	"storefront/internal/repository/gateway_repo"
	postgres_gateway_repo "storefront/internal/repository/gateway_repo/postgres"
	postgres_order_repo "storefront/internal/repository/order_repo/postgres"
	postgres_outbox_repo "storefront/internal/repository/outbox_repo/postgres"
	postgres_product_repo "storefront/internal/repository/product_repo/postgres"
	postgres_seller_payment_repo "storefront/internal/repository/seller_payment_repo/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"

	appLogger, err := zapConfig.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create zap logger: %v\n", err)
		os.Exit(1)
	}
	appLogger.Info("Storefront Service starting...")

	platformRate, err := decimal.NewFromString(cfg.PlatformFeeRate)
	if err != nil {
		appLogger.Fatal("Invalid PLATFORM_FEE_RATE", zap.String("value", cfg.PlatformFeeRate), zap.Error(err))
	}

	appLogger.Info("Waiting for database to be available...")

	var db *sql.DB
	maxRetries := 10
	retryDelay := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		db, err = database.NewPostgresDB(cfg.GetDBConnectionString())
		if err == nil {
			appLogger.Info("Successfully connected to PostgreSQL database!")
			break
		}
		appLogger.Warn(fmt.Sprintf("Failed to connect to database (attempt %d/%d): %v. Retrying in %s...", i+1, maxRetries, err, retryDelay))
		time.Sleep(retryDelay)
	}

	if db == nil {
		appLogger.Fatal("Could not connect to database after multiple retries. Exiting.", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("Error closing database connection", zap.Error(err))
		} else {
			appLogger.Info("Database connection closed.")
		}
	}()

	appLogger.Info("Running database migrations...")
	migrateDSN := "postgres://" + cfg.GetDBMigrationConnectionString()
	m, err := migrate.New(
		"file:///app/migrations",
		migrateDSN,
	)
	if err != nil {
		appLogger.Fatal("Failed to create migrate instance", zap.Error(err))
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		appLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}
	appLogger.Info("Database migrations completed successfully (or no new migrations).")

	kafkaProducer, err := kafka.NewProducer(cfg.GetKafkaBrokers(), appLogger)
	if err != nil {
		appLogger.Fatal("Failed to create Kafka producer", zap.Error(err))
	}
	defer func() {
		if err := kafkaProducer.Close(); err != nil {
			appLogger.Error("Error closing Kafka producer", zap.Error(err))
		} else {
			appLogger.Info("Kafka producer closed.")
		}
	}()
	appLogger.Info("Kafka producer created successfully.")

	orderRepository := postgres_order_repo.NewOrderRepository(db, appLogger)
	productRepository := postgres_product_repo.NewProductRepository(db, appLogger)
	gatewayRepository := postgres_gateway_repo.NewGatewayRepository(db, appLogger)
	sellerPaymentRepository := postgres_seller_payment_repo.NewSellerPaymentRepository(db, appLogger)
	outboxRepository := postgres_outbox_repo.NewOutboxRepository(db, appLogger)

	adapters, err := buildAdapters(cfg, gatewayRepository, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to build payment provider adapters", zap.Error(err))
	}

	checkoutService := checkout_app.NewCheckoutService(
		orderRepository,
		productRepository,
		gatewayRepository,
		adapters,
		platformRate,
		cfg.Currency,
		appLogger.With(zap.String("component", "CheckoutService")),
	)
	adminService := admin_app.NewAdminService(
		orderRepository,
		sellerPaymentRepository,
		appLogger.With(zap.String("component", "AdminService")),
	)

	mailer := mail.NewSMTPMailer(
		cfg.SMTPConfig.Host,
		cfg.SMTPConfig.Port,
		cfg.SMTPConfig.User,
		cfg.SMTPConfig.Password,
		cfg.SMTPConfig.From,
		appLogger.With(zap.String("component", "SMTPMailer")),
	)
	notifier := fulfillment.NewNotifier(
		orderRepository,
		productRepository,
		mailer,
		appLogger.With(zap.String("component", "FulfillmentNotifier")),
	)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	outboxProcessor := outbox.NewProcessor(outboxRepository, kafkaProducer, appLogger.With(zap.String("component", "OutboxProcessor")))
	go func() {
		ticker := time.NewTicker(cfg.OutboxPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(rootCtx, cfg.OutboxPollTimeout)
				if err := outboxProcessor.Process(ctx); err != nil {
					appLogger.Error("Error processing outbox", zap.Error(err))
				}
				cancel()
			}
		}
	}()
	appLogger.Info("Transactional Outbox sender started.")

	fulfillmentConsumer := kafka_handler.NewFulfillmentConsumer(notifier, appLogger.With(zap.String("component", "FulfillmentConsumer")))
	kafka.StartConsumer(
		rootCtx,
		cfg.GetKafkaBrokers(),
		cfg.KafkaFulfillmentTopic,
		cfg.KafkaConsumerGroup,
		fulfillmentConsumer.HandleMessage,
		appLogger,
	)
	appLogger.Info("Kafka fulfillment consumer started!")

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	http_checkout.RegisterRoutes(r, checkoutService, appLogger)
	http_admin.RegisterRoutes(r, adminService, appLogger)

	serverAddr := ":" + cfg.HTTPPort
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	appLogger.Info("Storefront Service started", zap.String("address", serverAddr))

	<-sigChan

	appLogger.Info("Shutting down Storefront Service...")
	rootCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Fatal("Storefront Service graceful shutdown failed", zap.Error(err))
	}
	appLogger.Info("Storefront Service stopped.")
}

// buildAdapters loads the active online gateways and wires one provider
// adapter per gateway name. OTC gateways carry no provider and are skipped.
func buildAdapters(cfg *config.Config, gatewayRepository gateway_repo.GatewayRepository, l *zap.Logger) (map[string]gateway.Adapter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	gateways, err := gatewayRepository.ListActiveGateways(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active gateways: %w", err)
	}

	returnURL := cfg.PublicBaseURL + "/checkout/return"
	cancelURL := cfg.PublicBaseURL + "/checkout/cancel"

	adapters := make(map[string]gateway.Adapter)
	for _, gw := range gateways {
		switch gw.Provider {
		case domain.ProviderRedirect:
			adapters[gw.Name] = paypal.NewAdapter(gw.Name, gw.Redirect, cfg.ProviderTimeout, returnURL, cancelURL,
				l.With(zap.String("component", "PayPalAdapter"), zap.String("gateway", gw.Name)))
			l.Info("Registered redirect provider adapter", zap.String("gateway", gw.Name))
		case domain.ProviderSession:
			adapters[gw.Name] = stripe.NewAdapter(gw.Name, gw.Session, cfg.ProviderTimeout, returnURL, cancelURL,
				l.With(zap.String("component", "StripeAdapter"), zap.String("gateway", gw.Name)))
			l.Info("Registered session provider adapter", zap.String("gateway", gw.Name))
		}
	}
	return adapters, nil
}
