package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todo-api/internal/cache"
	"todo-api/internal/config"
	"todo-api/internal/controller"
	"todo-api/internal/database"
	"todo-api/internal/queue"
	"todo-api/internal/repository"
	"todo-api/internal/routes"
	"todo-api/internal/service"
	"todo-api/internal/worker"
	"todo-api/pkg/logger"
	"todo-api/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	config.LoadDotEnv(".env")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	cfg := config.Get()
	logger.Init(cfg.LogLevel)
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)

	checks := map[string]controller.Check{}
	store, err := openStore(ctx, cfg, checks)
	if err != nil {
		logger.Error(ctx, "Store initialization failed", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}

	opts := []service.Option{}
	if rdb := cache.Client(ctx); rdb != nil {
		c := cache.New(rdb, cfg.CacheTTL, cache.NamespaceFor(cfg.StoreBackend))
		opts = append(opts, service.WithCache(c))
		checks["redis"] = c.Ping
	}

	var publisher *queue.Publisher
	if cfg.EventsEnabled() {
		queue.EnsureTopic(ctx)
		publisher = queue.NewPublisher(ctx)
		opts = append(opts, service.WithPublisher(publisher))
	}
	svc := service.New(store, opts...)

	// Only replicas sharing one database see each other's mutations
	if cfg.EventsEnabled() && cfg.StoreBackend == config.BackendPostgres {
		go worker.Run(ctx, svc)
	}

	gin.SetMode(gin.ReleaseMode)
	handler := controller.NewHandler(svc, cfg.Version, checks)
	server := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: routes.Router(handler, routes.Options{
			RateLimitRPS:   cfg.RateLimitRPS,
			RateLimitBurst: cfg.RateLimitBurst,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		logger.Info(ctx, "HTTP server listening", "port", cfg.HTTPPort, "backend", cfg.StoreBackend, "version", cfg.Version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "Shutting down server")
	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server shutdown error", "error", err)
	}
	if err := publisher.Close(); err != nil {
		logger.Error(ctx, "Kafka producer close error", "error", err)
	}
	logger.Info(ctx, "Server stopped")
}

// openStore builds the configured backend and registers its readiness check.
func openStore(ctx context.Context, cfg *config.Config, checks map[string]controller.Check) (repository.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		return repository.NewMemoryStore(), nil
	case config.BackendPostgres:
		db := database.DB(ctx)
		if db == nil {
			return nil, errors.New("database not available")
		}
		if err := database.MigrateOrCreateSchema(ctx); err != nil {
			return nil, err
		}
		checks["database"] = db.PingContext
		return repository.NewPostgresStore(db), nil
	default:
		return nil, errors.New("unknown STORE_BACKEND " + cfg.StoreBackend)
	}
}
