package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"table-cache-api/internal/auth"
	"table-cache-api/internal/config"
	"table-cache-api/internal/database"
	"table-cache-api/internal/handlers"
	"table-cache-api/internal/logging"
	"table-cache-api/internal/realtime"
	"table-cache-api/internal/registry"
	"table-cache-api/internal/routes"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", logging.Err(err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)
	gin.SetMode(gin.ReleaseMode)

	creds, err := auth.NewCredentials(cfg.AuthUsername, cfg.AuthPasswordHash, cfg.AuthPassword)
	if err != nil {
		return err
	}
	signer := auth.NewSigner(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTTTL)

	hub := realtime.NewHub(log)
	reg, err := registry.New(registry.Options{
		Dir:                 cfg.DataDir,
		MaxEntries:          cfg.CacheMaxEntries,
		MaintenanceInterval: cfg.CacheMaintenanceInterval,
		StalenessThreshold:  cfg.CacheStalenessThreshold,
		GormLogLevel:        database.ParseLogLevel(cfg.GormLogLevel),
		Logger:              log,
		Publisher:           hub,
	})
	if err != nil {
		return err
	}
	defer func() {
		// Close is idempotent; every open table is closed exactly once.
		if err := reg.Close(); err != nil {
			log.Error("registry close", logging.Err(err))
		}
	}()

	h := handlers.New(reg, hub, signer, creds, log)
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: routes.SetupRoutes(h, signer, log),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting",
			slog.String("addr", cfg.HTTPAddr),
			slog.String("dataDir", cfg.DataDir),
			slog.Int("maxOpenTables", cfg.CacheMaxEntries))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
