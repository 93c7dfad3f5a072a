package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/harvestcrest/gatehouse/internal/captcha"
	"github.com/harvestcrest/gatehouse/internal/chat"
	"github.com/harvestcrest/gatehouse/internal/guard"
	"github.com/harvestcrest/gatehouse/internal/platform/config"
	"github.com/harvestcrest/gatehouse/internal/platform/server"
	"github.com/harvestcrest/gatehouse/internal/platform/telemetry"
	"github.com/harvestcrest/gatehouse/internal/quote"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := telemetry.NewLogger(cfg.Log.Level, cfg.Log.Format)
	telemetry.SetDefault(logger)

	slog.Info("gatehouse starting",
		"version", "0.1.0",
		"port", cfg.Server.Port,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Database is optional: the defense pipeline is in-memory, only quote
	// persistence needs it.
	var pool *pgxpool.Pool
	if cfg.Database.URL != "" {
		poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("parsing database url: %w", err)
		}
		poolCfg.MaxConns = int32(cfg.Database.MaxConns)

		p, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			slog.Warn("database connection failed, starting without quote persistence", "error", err)
		} else {
			pool = p
			defer pool.Close()
			slog.Info("database connected")
		}
	}

	// Defense pipeline
	reputation := guard.NewReputationStore(
		cfg.Guard.IPBlockThreshold,
		time.Duration(cfg.Guard.IPBlockDurationMs)*time.Millisecond,
	)
	limiter := guard.NewRateLimiter(
		time.Duration(cfg.Guard.RateLimitWindowMs)*time.Millisecond,
		cfg.Guard.RateLimitMax,
		reputation,
	)
	defender := guard.NewDefender(guard.NewClassifier(cfg.Guard.MaxMessageLength), limiter, reputation)

	captchaStore := captcha.NewStore(
		time.Duration(cfg.Captcha.ExpiryMs)*time.Millisecond,
		cfg.Captcha.MaxAttempts,
	)

	// Quote intake
	var quoteStore quote.Store
	if pool != nil {
		quoteStore = quote.NewPostgresStore(pool)
	}
	quoteHandler := quote.NewHandler(quoteStore, quote.NewLogNotifier(logger), defender, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := server.New(addr, server.Dependencies{
		Pool: pool,
		Handlers: []server.RouteRegistrar{
			chat.NewHandler(defender, captchaStore),
			quoteHandler,
		},
		Logger:             logger,
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		TrustedProxies:     cfg.Server.TrustedProxies,
	})

	sweeper := guard.NewSweeper(
		time.Duration(cfg.Sweep.IntervalMs)*time.Millisecond,
		func(now time.Time) {
			defender.Sweep(now)
			if n := captchaStore.Sweep(now); n > 0 {
				slog.Debug("expired captcha sessions swept", "count", n)
			}
		},
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(ctx) })
	g.Go(func() error { return sweeper.Run(ctx) })

	slog.Info("server ready", "addr", addr, "quotes_enabled", quoteStore != nil)
	return g.Wait()
}
