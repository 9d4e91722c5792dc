// File: medibook/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"medibook/config"
	"medibook/database"
	schedulerRepo "medibook/database/repository/scheduler"
	"medibook/handlers"
	"medibook/middleware"
	"medibook/routes"
	"medibook/services/booking"
	"medibook/services/identity"
	"medibook/utils"
)

func main() {
	config.LoadConfig()
	cfg := config.AppConfig
	utils.InitializeLogger(cfg.Env, cfg.LogLevel)
	logger := utils.GetLogger()
	defer logger.Sync()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	metrics := utils.NewSchedulingMetrics(nil)

	// Store backend.
	repoOpts := []schedulerRepo.Option{
		schedulerRepo.WithMaxAttempts(cfg.TxnMaxAttempts),
		schedulerRepo.WithMetrics(metrics),
		schedulerRepo.WithLogger(logger),
	}
	repo, err := openStore(ctx, cfg, logger, repoOpts)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to open %s store: %v", cfg.StoreBackend, err)
	}

	// Availability cache is optional; reads fall through to the store without it.
	var cache *utils.AvailabilityCache
	if cacheClient, err := utils.NewRedisClient(ctx, cfg, cfg.RedisCacheDB); err != nil {
		logger.Warn("main: availability cache disabled", zap.Error(err))
	} else {
		cache = utils.NewAvailabilityCache(cacheClient, cfg.AvailabilityCacheTTL)
	}

	provider, err := newIdentityProvider(ctx, cfg)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize identity provider: %v", err)
	}

	engine := booking.NewDefaultSchedulingEngine(repo, booking.NewStaticCatalog(cfg.AppointmentTypes), cache, metrics, logger)

	health := utils.NewHealthMonitor(map[string]utils.HealthCheck{
		"store": repo.Ping,
		"cache": cache.Ping,
	}, 30*time.Second)
	health.Start(ctx)

	// Create the Gin router.
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.RateLimitMiddleware(cfg.MaxRequestsPerMin))

	bookingHandler := handlers.NewBookingHandler(engine)
	handlerBundle := handlers.NewHandlerBundle(bookingHandler, provider, health)

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s with %s store...", srv.Addr, cfg.StoreBackend)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: server forced to shutdown: %v", err)
	}
	if err := repo.Close(shutdownCtx); err != nil {
		logger.Sugar().Errorf("main: failed to close store: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}

// openStore connects the configured document store.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger, opts []schedulerRepo.Option) (schedulerRepo.SchedulerRepository, error) {
	switch strings.ToLower(cfg.StoreBackend) {
	case "mongo":
		client, err := database.NewMongoClient(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		repo := schedulerRepo.NewMongoSchedulerRepo(client.Database(cfg.DatabaseName), opts...)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = repo.Close(context.Background())
			return nil, err
		}
		return repo, nil
	case "redis":
		client, err := utils.NewRedisClient(ctx, cfg, cfg.RedisStoreDB)
		if err != nil {
			return nil, err
		}
		return schedulerRepo.NewRedisSchedulerRepo(client, opts...), nil
	case "firestore":
		app, err := utils.NewFirebaseApp(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase: error getting Firestore client: %w", err)
		}
		return schedulerRepo.NewFirestoreSchedulerRepo(client, opts...), nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.StoreBackend)
	}
}

func newIdentityProvider(ctx context.Context, cfg config.Config) (identity.Provider, error) {
	if strings.EqualFold(cfg.AuthProvider, "firebase") {
		app, err := utils.NewFirebaseApp(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return identity.NewFirebaseProvider(ctx, app)
	}
	return identity.NewJWTProvider(cfg.JWTSecret), nil
}
