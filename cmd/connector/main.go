package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/velstore/giftcard-connector/internal/application"
	"github.com/velstore/giftcard-connector/internal/application/services"
	"github.com/velstore/giftcard-connector/internal/config"
	"github.com/velstore/giftcard-connector/internal/crypto"
	"github.com/velstore/giftcard-connector/internal/infrastructure/commerce"
	"github.com/velstore/giftcard-connector/internal/infrastructure/upstream"
	"github.com/velstore/giftcard-connector/internal/interfaces/rest"
	"github.com/velstore/giftcard-connector/internal/interfaces/rest/middleware"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting giftcard connector",
		"port", cfg.Server.Port,
		"env", cfg.Primary.Env,
		"upstream_provider", cfg.Upstream.Provider,
	)

	if _, err := rest.LoadOpenAPIDoc(context.Background()); err != nil {
		logger.Error("invalid api document", "error", err)
		os.Exit(1)
	}

	// A bad key must stop the boot; a connector that cannot decrypt
	// stored PINs can authorize but never capture.
	encryptor, err := crypto.NewEncryptor(cfg.Security.EncryptionKey)
	if err != nil {
		logger.Error("failed to initialize encryption", "error", err)
		os.Exit(1)
	}

	commerceClient := commerce.NewClient(cfg.Commerce, logger)

	var upstreamClient application.UpstreamClient
	if cfg.Upstream.Provider == "mock" {
		logger.Warn("using mock issuer, no real gift cards will be charged")
		upstreamClient = upstream.NewMockClient(cfg.Upstream.CardCurrency)
	} else {
		upstreamClient = upstream.NewRetryClient(
			upstream.NewClient(cfg.Upstream, logger),
			cfg.Retry,
		)
	}

	service := services.NewRedemptionService(commerceClient, upstreamClient, encryptor, cfg, logger)

	h := rest.NewHandler(service, commerceClient, cfg.Security, logger)

	handler := middleware.Recovery(logger)(h.Router())
	handler = middleware.Logging(logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Timeout(cfg.Server.ReadTimeout)(handler)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
