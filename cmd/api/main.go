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

	"github.com/geocoder89/farmhub/internal/auth"
	"github.com/geocoder89/farmhub/internal/config"
	"github.com/geocoder89/farmhub/internal/db"
	httpx "github.com/geocoder89/farmhub/internal/http"
	"github.com/geocoder89/farmhub/internal/http/handlers"
	"github.com/geocoder89/farmhub/internal/http/middlewares"
	"github.com/geocoder89/farmhub/internal/observability"
	"github.com/geocoder89/farmhub/internal/redisclient"
	"github.com/geocoder89/farmhub/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "err", err)
		os.Exit(1)
	}

	shutdownTracer, err := observability.InitTracer(context.Background(), observability.TracerOptions{
		ServiceName: "farmhub",
		Env:         cfg.Env,
		Endpoint:    cfg.OTelEndpoint,
		Enabled:     cfg.OTelEnabled,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	pool, err := db.NewPool(cfg.DBURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	migrateCtx, cancelMigrate := config.WithTimeout(30 * time.Second)
	err = db.Migrate(migrateCtx, pool)
	cancelMigrate()
	if err != nil {
		log.Error("schema migration failed", "err", err)
		os.Exit(1)
	}

	seedCtx, cancelSeed := config.WithTimeout(10 * time.Second)
	created, err := db.EnsureAdminUser(seedCtx, pool, cfg)
	cancelSeed()
	switch {
	case errors.Is(err, db.ErrAdminPasswordMissing):
		log.Warn("no admin account exists and ADMIN_PASSWORD is unset")
	case err != nil:
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	case created:
		log.Info("admin account created", "email", cfg.AdminEmail)
	}

	ready := map[string]handlers.Pinger{
		"postgres": pool.Ping,
	}

	var rateStore middlewares.WindowStore = middlewares.NewMemoryWindowStore()
	if cfg.RedisAddr != "" {
		rdb := redisclient.New(redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		rateStore = rdb
		ready["redis"] = rdb.Ping
	}

	prom := observability.NewProm(prometheus.DefaultRegisterer)

	deps := httpx.Deps{
		Users:      postgres.NewUsersRepo(pool, prom),
		Categories: postgres.NewCategoriesRepo(pool, prom),
		Posts:      postgres.NewPostsRepo(pool, prom),
		Products:   postgres.NewProductsRepo(pool, prom),
		Orders:     postgres.NewOrdersRepo(pool, prom),
		BirdNests:  postgres.NewBirdNestsRepo(pool, prom),
		Tokens:     auth.NewManager(cfg.JWTSecret),
		Prom:       prom,
		Gatherer:   prometheus.DefaultGatherer,
		RateStore:  rateStore,
		Ready:      ready,
	}

	router := httpx.NewRouter(log, deps, cfg)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env, "basePath", cfg.APIBasePath)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
