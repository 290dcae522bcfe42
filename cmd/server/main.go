package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/weiwei-tsao/myroom/apps/api/internal/business/listing"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/auth"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/backend"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/blob"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/cache"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/config"
	apirouter "github.com/weiwei-tsao/myroom/apps/api/internal/platform/http"
	"github.com/weiwei-tsao/myroom/apps/api/internal/platform/logging"
	platformredis "github.com/weiwei-tsao/myroom/apps/api/internal/platform/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load(".env.local", ".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	gin.SetMode(cfg.GinMode)

	stores, err := backend.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("store init", zap.Error(err))
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Warn("store close", zap.Error(err))
		}
	}()
	if stores.Ping != nil {
		if err := stores.Ping(ctx); err != nil {
			logger.Fatal("store ping", zap.Error(err))
		}
	}

	deps := listing.Deps{
		Listings:         stores.Listings,
		Reviews:          stores.Reviews,
		Runs:             stores.Runs,
		Stats:            stores.Stats,
		Logger:           logger,
		ReconcileWorkers: cfg.ReconcileWorkers,
	}
	routerDeps := apirouter.Deps{
		Issuer:        auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL),
		Streams:       listing.NewStreamRegistry(),
		Logger:        logger,
		AdminPassword: cfg.AdminPassword,
		Ping:          stores.Ping,
	}

	if cfg.RedisAddr != "" {
		rdb, err := platformredis.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Fatal("redis init", zap.Error(err))
		}
		defer rdb.Close()
		listingCache := cache.New(rdb, cfg.CacheTTL, logger)
		deps.Cache = listingCache
		routerDeps.Cache = listingCache
		logger.Info("listing cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
	}

	switch cfg.BlobBackend {
	case config.BlobGCS:
		var creds []byte
		if cfg.FirebaseCredsBase64 != "" || cfg.FirebaseCredsFile != "" {
			if creds, _, err = cfg.FirebaseCredentialsJSON(); err != nil {
				logger.Fatal("gcs credentials", zap.Error(err))
			}
		}
		gcs, err := blob.NewGCS(ctx, cfg.GCSBucket, creds)
		if err != nil {
			logger.Fatal("gcs init", zap.Error(err))
		}
		defer gcs.Close()
		deps.Blobs = gcs
	default:
		local := blob.NewLocal(cfg.UploadDir, cfg.PublicBaseURL)
		deps.Blobs = local
		routerDeps.UploadDir = local.Dir()
	}

	svc := listing.NewService(deps)
	routerDeps.Service = svc
	router := apirouter.NewRouter(routerDeps)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler(cfg.Origins()).Handler(router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()
	logger.Info("server listening",
		zap.String("port", cfg.Port),
		zap.String("store", cfg.StoreBackend),
		zap.String("blobs", cfg.BlobBackend))

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if n := routerDeps.Streams.CancelAll(); n > 0 {
		logger.Info("closed live streams", zap.Int("count", n))
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", zap.Error(err))
	}
	svc.Wait()
	logger.Info("server exited")
}

func corsHandler(origins []string) *cors.Cors {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-Cache"},
		AllowCredentials: true,
	}
	if len(origins) == 0 {
		opts.AllowedOrigins = []string{"*"}
		opts.AllowCredentials = false
	}
	return cors.New(opts)
}
