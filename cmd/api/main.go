package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"housetally-backend/internal/client"
	"housetally-backend/internal/config"
	"housetally-backend/internal/logging"
	"housetally-backend/internal/repository"
	"housetally-backend/internal/server"
	"housetally-backend/internal/service"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Printf("Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is not configured")
	}

	db := client.InitMysqlClient(cfg.DatabaseURL)

	paypalClient, err := client.NewPaypalClient(&cfg.Paypal)
	if err != nil {
		log.Fatal("paypal client: ", err)
	}

	// The provider redirects the buyer to this base after approval; it can
	// differ from the API's own base URL behind proxies.
	redirectBase := cfg.Paypal.RedirectURL
	if redirectBase == "" {
		redirectBase = cfg.BaseURL
	}

	catalogRepo := repository.NewCatalogRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	entitlementRepo := repository.NewEntitlementRepository(db)

	if err := catalogRepo.Seed(context.Background()); err != nil {
		log.Fatal("seed catalog: ", err)
	}

	checkoutService := service.NewCheckoutService(
		paypalClient,
		catalogRepo,
		purchaseRepo,
		entitlementRepo,
		logger,
		redirectBase,
		cfg.Checkout.TriggerWait,
	)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	srv := server.NewServer(checkoutService, cfg.Auth.JWTSecret, logger)

	logger.Info("starting HTTP server", zap.String("addr", serverAddr))
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	logger.Info("signal received, starting graceful shutdown")

	if err := srv.Shutdown(); err != nil {
		logger.Fatal("HTTP server shutdown error", zap.Error(err))
	}
}
