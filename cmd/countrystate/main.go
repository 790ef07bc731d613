// Command countrystate serves the geographic reference-data API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nchanko/countrystate/internal/api"
	"github.com/nchanko/countrystate/internal/cache"
	"github.com/nchanko/countrystate/internal/config"
	"github.com/nchanko/countrystate/internal/dataset"
	"github.com/nchanko/countrystate/internal/health"
	"github.com/nchanko/countrystate/internal/lookup"
	"github.com/nchanko/countrystate/internal/mirror"
	"github.com/nchanko/countrystate/internal/ratelimit"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The dataset is the one thing the process cannot serve without.
	data, err := dataset.Load()
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}
	logger.Info("dataset loaded",
		"countries", len(data.Countries()),
		"regions", len(data.Regions()),
		"version", data.Version())

	var shared cache.Store
	if cfg.RedisAddr != "" {
		redis := cache.NewRedis(cache.RedisConfig{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  cfg.StoreTimeout,
			ReadTimeout:  cfg.StoreTimeout,
			WriteTimeout: cfg.StoreTimeout,
		})
		defer redis.Close()
		shared = redis
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mirrorCfg := mirror.Config{TTL: cfg.MirrorTTL}
	mode := mirror.Sync(ctx, shared, data, logger, mirrorCfg)
	monitor := health.NewMonitor(mode, logger)
	logger.Info("serving mode decided", "mode", mode.String())

	if shared != nil {
		sup := mirror.NewSupervisor(shared, data, monitor, logger, mirrorCfg, cfg.ProbeInterval)
		go sup.Run(ctx)
	}

	facade := lookup.New(data, shared, monitor, lookup.Config{
		Timeout:      cfg.StoreTimeout,
		TTL:          cfg.CacheTTL,
		WriteThrough: cfg.WriteThrough,
	})

	local := cache.NewMemory()
	defer local.Close()

	lookupLimiter := ratelimit.New(shared, local, monitor, ratelimit.Config{
		Limit:             cfg.RateLimit,
		Window:            cfg.RateWindow,
		Timeout:           cfg.StoreTimeout,
		Name:              "lookup",
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})
	searchLimiter := ratelimit.New(shared, local, monitor, ratelimit.Config{
		Limit:             cfg.SearchRateLimit,
		Window:            cfg.RateWindow,
		Timeout:           cfg.StoreTimeout,
		Name:              "search",
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})

	router := api.Router(api.NewServer(facade, monitor), lookupLimiter.Handler, searchLimiter.Handler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
