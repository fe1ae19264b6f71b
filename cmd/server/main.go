package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/chopbox/api/internal/cart"
	"github.com/chopbox/api/internal/config"
	"github.com/chopbox/api/internal/database"
	"github.com/chopbox/api/internal/logger"
	"github.com/chopbox/api/internal/menu"
	"github.com/chopbox/api/internal/payment"
	"github.com/chopbox/api/internal/realtime"
	"github.com/chopbox/api/internal/router"
	"github.com/chopbox/api/internal/service"
	"github.com/chopbox/api/internal/ws"
)

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.UsesDevSecret() {
		zl.Warn("JWT_SECRET not set, signing device tokens with the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	queries := database.New(pool)

	var cache menu.Cache = menu.NewMemoryCache()
	if cfg.RedisURL != "" {
		client, err := menu.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer client.Close()
		cache = menu.NewRedisCache(client)
		zl.Info("menu cache: redis")
	}
	menus := menu.NewService(queries, cache, cfg.MenuCacheTTL, zl.Named("menu"))

	board := service.NewBoard()
	orders := service.NewOrderService(queries, cfg.TaxRate, zl.Named("orders"))
	lifecycle := service.NewLifecycle(queries, board, zl.Named("lifecycle"))

	notifier := realtime.NewNotifier(realtime.NewPGFeed(cfg.DatabaseURL, zl.Named("feed")), zl.Named("notifier"))
	alerts := realtime.NewPaidAlerts(lifecycle, cfg.NotificationTTL, zl.Named("alerts"))
	defer alerts.Close()
	alerts.Attach(notifier)
	notifier.Subscribe(realtime.SyncBoard(board))

	hub := ws.NewHub(zl.Named("ws"))
	go hub.Run(ctx)
	ws.Bridge(hub, notifier, alerts)

	if err := notifier.Start(ctx); err != nil {
		return err
	}
	defer notifier.Stop()

	if !cfg.Moolre.Configured() {
		zl.Warn("payment gateway credentials missing, /payment will fail")
	}
	payments := payment.NewClient(payment.Config{
		BaseURL:       cfg.Moolre.BaseURL,
		Username:      cfg.Moolre.Username,
		PublicKey:     cfg.Moolre.PublicKey,
		AccountNumber: cfg.Moolre.AccountNumber,
	}, nil, zl.Named("payment"))

	carts := cart.NewRegistry(cfg.MaxCarts)
	go sweepCarts(ctx, carts, cfg.CartIdleTTL, zl)

	r, err := router.New(router.Deps{
		Config:    cfg,
		Queries:   queries,
		Menus:     menus,
		Orders:    orders,
		Lifecycle: lifecycle,
		Notifier:  notifier,
		Alerts:    alerts,
		Payments:  payments,
		Carts:     carts,
		Hub:       hub,
		Log:       zl,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zl.Info("starting server", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func sweepCarts(ctx context.Context, carts *cart.Registry, maxIdle time.Duration, zl *zap.Logger) {
	if maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(maxIdle / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := carts.Sweep(maxIdle); n > 0 {
				zl.Info("swept idle carts", zap.Int("count", n))
			}
		}
	}
}
