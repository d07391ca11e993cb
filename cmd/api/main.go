package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"roombooking/internal/claims"
	"roombooking/internal/httpapi"
	"roombooking/internal/room"
	"roombooking/internal/scheduling"
	"roombooking/internal/store/memstore"
	"roombooking/internal/store/pgstore"
	"roombooking/pkg/config"
	"roombooking/pkg/db"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if cfg.IsProduction() && cfg.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	policy, err := scheduling.ParsePurgePolicy(cfg.AuditPurgePolicy)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, rooms, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := scheduling.NewService(store, rooms, scheduling.Options{
		PurgePolicy: policy,
		Logger:      logger,
	})
	if err := svc.Warm(ctx); err != nil {
		return err
	}

	router := httpapi.NewRouter(httpapi.Dependencies{
		Cfg:       cfg,
		Scheduler: svc,
		Verifier: claims.Verifier{
			Secret:   cfg.Auth.JWTSecret,
			Issuer:   cfg.Auth.JWTIssuer,
			Audience: cfg.Auth.JWTAudience,
		},
		Logger: logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver, "audit_purge_policy", policy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (scheduling.Store, room.Catalog, func(), error) {
	switch strings.ToLower(cfg.StoreDriver) {
	case "memory":
		var seed []room.Room
		if cfg.RoomsSeedFile != "" {
			var err error
			if seed, err = room.LoadSeedFile(cfg.RoomsSeedFile); err != nil {
				return nil, nil, nil, fmt.Errorf("load rooms: %w", err)
			}
		}
		logger.Warn("using in-memory store; bookings are lost on restart", "rooms", len(seed))
		return memstore.New(), room.NewMemoryCatalog(seed...), func() {}, nil

	case "", "postgres":
		pool, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("db open: %w", err)
		}
		if cfg.MigrationsPath != "" {
			if err := db.Migrate(cfg.MigrationsPath, cfg); err != nil {
				pool.Close()
				return nil, nil, nil, fmt.Errorf("migrate: %w", err)
			}
		}
		store := pgstore.New(pool, pgstore.Options{
			RetryAttempts: cfg.LockRetryAttempts,
			LockTimeout:   cfg.LockTimeout,
		})
		return store, room.NewRepository(pool), pool.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}
