package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/segyhp/repayment-engine/internal/app"
	"github.com/segyhp/repayment-engine/internal/config"
	"github.com/segyhp/repayment-engine/internal/handler"
	"github.com/segyhp/repayment-engine/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logg, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logg.Sync() }()
	zap.ReplaceGlobals(logg)

	startCtx, cancel := context.WithTimeout(context.Background(), cfg.GetHealthTimeout())
	a, err := app.New(startCtx, cfg, logg)
	cancel()
	if err != nil {
		logg.Fatal("failed to initialize", zap.Error(err))
	}
	defer a.Close()

	var auth *handler.Authenticator
	if cfg.Auth.Enabled {
		auth, err = handler.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
		if err != nil {
			logg.Fatal("failed to build authenticator", zap.Error(err))
		}
	}

	router := handler.NewRouter(handler.RouterConfig{
		Billing: handler.NewBillingHandler(a.Service, logg),
		Health:  handler.NewHealthHandler(a.DB, a.Redis, cfg.GetHealthTimeout(), logg),
		Auth:    auth,
		Metrics: a.Metrics,
		Logger:  logg,
	})

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logg.Info("server starting", zap.String("addr", server.Addr), zap.String("env", cfg.Server.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logg.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logg.Error("server forced to shutdown", zap.Error(err))
	}

	logg.Info("server exited")
}
