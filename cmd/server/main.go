// Command patientvault-server starts the patient record access-layer server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/clinisafe/patientvault/internal/config"
	"github.com/clinisafe/patientvault/internal/crypto"
	"github.com/clinisafe/patientvault/internal/limiter"
	"github.com/clinisafe/patientvault/internal/migrate"
	"github.com/clinisafe/patientvault/internal/repository/postgres"
	httpserver "github.com/clinisafe/patientvault/internal/server/http"
	"github.com/clinisafe/patientvault/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and starts the HTTP server.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("postgres.New", zap.Error(err))
	}
	defer db.Close()

	// One key, one cipher, for the process lifetime.
	key, err := crypto.LoadOrCreateKey(cfg.KeyFile)
	if err != nil {
		logger.Fatal("load obscuring key", zap.Error(err))
	}
	cipher, err := crypto.NewCipher(key)
	if err != nil {
		logger.Fatal("build cipher", zap.Error(err))
	}

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	patientRepo := postgres.NewPatientRepo(db)
	auditRepo := postgres.NewAuditRepo(db)
	consentRepo := postgres.NewConsentRepo(db)

	lim := limiter.NewPGWithQuerier(db.Pool, cfg.LoginWindow, cfg.LoginMaxFails, cfg.LoginBlockFor)

	// Services
	authSvc := service.NewAuthService(userRepo, auditRepo, lim, []byte(cfg.JWTKey), cfg.AccessTTL)
	patientSvc := service.NewPatientService(patientRepo, cipher, cfg.Retention())
	auditSvc := service.NewAuditService(auditRepo)
	consentSvc := service.NewConsentService(consentRepo)

	srv := httpserver.New(authSvc, patientSvc, auditSvc, consentSvc)
	e := srv.Echo(logger)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- e.Start(cfg.Addr)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}
