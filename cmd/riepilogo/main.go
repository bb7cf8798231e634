package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"riepilogo/internal/amqp"
	"riepilogo/internal/backend"
	"riepilogo/internal/bus"
	"riepilogo/internal/cache"
	"riepilogo/internal/calendar"
	"riepilogo/internal/cli"
	"riepilogo/internal/clock"
	"riepilogo/internal/core"
	apphttp "riepilogo/internal/http"
	"riepilogo/internal/log"
	"riepilogo/internal/services"
	"riepilogo/internal/summary"
)

// readinessOwner is never written to; querying it only proves the store answers.
const readinessOwner core.OwnerID = "__readyz"

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig()

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("Invalid timezone", log.FieldError, err)
		os.Exit(1)
	}
	clk := clock.NewReal()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	st := res.Store

	b := bus.New(logger)

	cacheManager := cache.NewManager(logger)
	loaderOpts := []summary.LoaderOption{
		summary.WithDefaults(cfg.DailyWindowDays, cfg.TopN),
		summary.WithClock(clk),
	}
	if cfg.LookupCacheTTL > 0 {
		lookups := cache.NewLRUCache[core.Lookups](cfg.LookupCacheSize, cfg.LookupCacheTTL)
		cacheManager.Register(lookups)
		loaderOpts = append(loaderOpts, summary.WithLookupCache(lookups))
	}

	loader := summary.NewLoader(st, calendar.New(loc), logger, loaderOpts...)
	// Subscribed before any view so lookups are purged ahead of recomputes.
	loader.Attach(b)
	registry := summary.NewRegistry(loader, b, clk, logger,
		summary.WithMaxViews(cfg.SummaryMaxViews),
		summary.WithViewIdleTTL(cfg.SummaryViewIdleTTL))
	cacheManager.Register(registry)
	cacheManager.StartCleanup(time.Minute)

	var (
		relay   *amqp.Client
		svcOpts []services.Option
	)
	if cfg.AMQPURL != "" {
		relay = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, logger)
		svcOpts = append(svcOpts, services.WithNotifier(relay))
	}
	svc := services.NewTransactionService(st, b, logger, svcOpts...)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Service:  svc,
		Reader:   st,
		Registry: registry,
		Clock:    clk,
		Location: loc,
		Logger:   logger,
		Ready: func(ctx context.Context) error {
			_, err := st.Lookups(ctx, readinessOwner)
			return err
		},
	}, apphttp.Options{
		DefaultOwner:       cfg.DefaultOwner,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		registry.Close()
		cacheManager.Stop()
		if relay != nil {
			if err := relay.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		b.Close()
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting riepilogo server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"timezone", loc.String(),
			"amqp_enabled", relay != nil,
			log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if relay != nil {
		g.Go(func() error {
			if err := relay.Relay(gctx, b); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
