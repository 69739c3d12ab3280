package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"booktracker/internal/auth"
	"booktracker/internal/books"
	"booktracker/internal/config"
	"booktracker/internal/db"
	"booktracker/internal/httpserver"
	"booktracker/internal/logging"
	"booktracker/internal/throttle"
)

// driverMemory keeps all state in process. Meant for local demos.
const driverMemory = "memory"

func main() {
	if err := run(); err != nil {
		slog.Error("booktracker exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	if cfg.UsingDevSecret {
		logger.Warn("no JWT secret configured, using the development secret")
	}

	accounts, bookStore, dbConn, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if dbConn != nil {
		defer dbConn.Close()
	}

	roles, err := auth.LoadRoleRegistry(ctx, accounts)
	if err != nil {
		return err
	}
	if err := roles.Validate(); err != nil {
		return err
	}

	authSvc := auth.NewService(accounts, roles,
		auth.NewBcryptHasher(cfg.BcryptCost),
		auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL),
		logger,
	)

	if cfg.SignIn.RedisURL != "" {
		rdb, err := throttle.Dial(ctx, cfg.SignIn.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		authSvc.WithLimiter(throttle.NewRedisLimiter(rdb, cfg.SignIn.MaxAttempts, cfg.SignIn.Window))
		logger.Info("sign-in throttling enabled", "max_attempts", cfg.SignIn.MaxAttempts, "window", cfg.SignIn.Window)
	}

	if cfg.SeedPath != "" {
		seed, err := auth.LoadSeedFile(cfg.SeedPath)
		if err != nil {
			return err
		}
		n, err := authSvc.Seed(ctx, seed)
		if err != nil {
			return err
		}
		logger.Info("bootstrap accounts applied", "created", n)
	}

	deps := httpserver.Deps{
		Logger:      logger,
		Auth:        authSvc,
		Books:       books.NewGuard(bookStore),
		CORSOrigins: cfg.CORSOrigins,
	}
	if dbConn != nil {
		deps.DB = dbConn
	}
	server := httpserver.New(cfg.HTTPAddr, httpserver.NewRouter(deps), logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return errors.New("http server stopped unexpectedly")
	case <-sigCh:
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctxShutdown)
}

type accountStore interface {
	auth.AccountStore
	auth.RoleSource
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (accountStore, books.Store, *sql.DB, error) {
	if cfg.DBDriver == driverMemory {
		logger.Warn("using in-memory storage, data is lost on exit")
		return auth.NewMemoryStore(), books.NewMemoryStore(), nil, nil
	}

	dbConn, err := db.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.RunMigrations(ctx, dbConn); err != nil {
		_ = dbConn.Close()
		return nil, nil, nil, err
	}
	logger.Info("database ready", "driver", cfg.DBDriver)
	return auth.NewStore(dbConn), books.NewPostgresStore(dbConn), dbConn, nil
}
