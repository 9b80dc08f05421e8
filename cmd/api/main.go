package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dollmart/dollmart-backend/api/routes"
	authsvc "github.com/dollmart/dollmart-backend/internal/auth"
	"github.com/dollmart/dollmart-backend/internal/availability"
	cartsvc "github.com/dollmart/dollmart-backend/internal/cart"
	"github.com/dollmart/dollmart-backend/internal/catalog"
	deliverysvc "github.com/dollmart/dollmart-backend/internal/delivery"
	ordersvc "github.com/dollmart/dollmart-backend/internal/orders"
	"github.com/dollmart/dollmart-backend/internal/pricing"
	"github.com/dollmart/dollmart-backend/internal/users"
	"github.com/dollmart/dollmart-backend/pkg/config"
	"github.com/dollmart/dollmart-backend/pkg/db"
	"github.com/dollmart/dollmart-backend/pkg/logger"
	"github.com/dollmart/dollmart-backend/pkg/metrics"
	"github.com/dollmart/dollmart-backend/pkg/migrate"
	"github.com/dollmart/dollmart-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: cfg.Service.Kind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	conn := dbClient.DB()
	usersRepo := users.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)
	cartRepo := cartsvc.NewRepository(conn)
	ordersRepo := ordersvc.NewRepository(conn)
	calc := availability.NewCalculator(conn)

	catalogService := catalog.NewService(dbClient, catalogRepo, logg)
	cartService := cartsvc.NewService(dbClient, cartRepo, catalogRepo, calc, logg)
	ordersService := ordersvc.NewService(dbClient, ordersRepo, cartRepo, catalogRepo, usersRepo, pricing.NewEngine(), checkoutMetrics, logg)
	deliveryService := deliverysvc.NewService(dbClient, ordersRepo, checkoutMetrics, logg)
	authService := authsvc.NewService(usersRepo, cfg.JWT, cfg.Password, logg)

	if err := users.EnsureManager(context.Background(), usersRepo, cfg.Bootstrap, cfg.Password, logg); err != nil {
		logg.Error(context.Background(), "failed to bootstrap manager account", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Redis:        redisClient,
			HTTPMetrics:  httpMetrics,
			MetricsHTTP:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			AuthService:  authService,
			Catalog:      catalogService,
			Availability: calc,
			Cart:         cartService,
			Orders:       ordersService,
			Delivery:     deliveryService,
			UsersRepo:    usersRepo,
		}),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "error during shutdown", err)
		}
	}
}
