package main

import (
	"context"
	"log"

	"banner-editor/internal/core/blob"
	"banner-editor/internal/core/cache"
	"banner-editor/internal/core/config"
	"banner-editor/internal/core/database"
	"banner-editor/internal/core/httpclient"
	"banner-editor/internal/core/imageproc"
	"banner-editor/internal/core/logger"
	"banner-editor/internal/core/server"
	"banner-editor/internal/features/banners/adapters"
	"banner-editor/internal/features/banners/assets"
	"banner-editor/internal/features/banners/handler"
	"banner-editor/internal/features/banners/ports"
	"banner-editor/internal/features/banners/service"

	"go.uber.org/zap"
)

// @title Banner Editor API
// @version 1.0
// @description Admin API for the ordered banner rotator: banners, image variants and render order.
// @contact.name API Support
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
		zap.String("store_backend", cfg.Database.Backend),
		zap.String("lock_backend", cfg.Redis.LockBackend),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	ctx := context.Background()

	// Redis is optional and only dialled when a component is backed by it
	var redisAdapter *cache.RedisAdapter
	if cfg.NeedsRedis() {
		redisAdapter, err = cache.NewRedisAdapter(cfg.Redis.URL)
		if err != nil {
			l.Fatal("Failed to configure Redis", zap.Error(err))
		}
		defer redisAdapter.Close()

		if err := redisAdapter.Ping(ctx); err != nil {
			l.Fatal("Redis Health Check Failed", zap.Error(err))
		}
		l.Info("Redis connection verified")
	}

	repo, err := newRepository(cfg, redisAdapter)
	if err != nil {
		l.Fatal("Failed to initialize banner store", zap.Error(err))
	}

	var locker ports.Locker = adapters.NewMemoryLocker()
	if cfg.Redis.LockBackend == config.LockBackendRedis {
		locker = adapters.NewRedisLocker(redisAdapter, cfg.Redis.LockTTL)
	}

	storage, err := newStorage(ctx, cfg)
	if err != nil {
		l.Fatal("Failed to initialize asset storage", zap.Error(err))
	}

	storeOpts := []assets.Option{assets.WithResizeTimeout(cfg.Storage.ResizeTimeout)}
	if redisAdapter != nil {
		storeOpts = append(storeOpts, assets.WithMemo(redisAdapter))
	}
	assetStore := assets.NewStore(storage, imageproc.NewFitResizer(), cfg.Storage.StaticURLPrefix, storeOpts...)

	// Initialize Banner Service & Handler
	bannerService := service.NewBannerService(repo, assetStore, locker)
	bannerHandler := handler.NewBannerHandler(bannerService)

	srv := server.New(cfg)

	// Register Routes
	srv.App.Get("/banners", bannerHandler.ListBanners)
	srv.App.Post("/banners", bannerHandler.CreateBanner)
	srv.App.Get("/banners/:id", bannerHandler.GetBanner)
	srv.App.Put("/banners/:id", bannerHandler.UpdateBanner)
	srv.App.Delete("/banners/:id", bannerHandler.DeleteBanner)
	srv.App.Post("/banners/:id/move", bannerHandler.MoveBanner)
	srv.App.Get("/banners/:id/image/:size", bannerHandler.GetImageVariant)
	srv.App.Get("/rotator", bannerHandler.Rotator)

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}

func newRepository(cfg *config.AppConfig, redisAdapter *cache.RedisAdapter) (ports.BannerRepository, error) {
	if cfg.Database.Backend == config.StoreBackendRedis {
		return adapters.NewRedisBannerRepository(redisAdapter.Client()), nil
	}

	db, err := database.Connect(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := adapters.Migrate(db); err != nil {
		return nil, err
	}
	return adapters.NewGormBannerRepository(db), nil
}

func newStorage(ctx context.Context, cfg *config.AppConfig) (blob.Storage, error) {
	if cfg.Storage.Backend == config.StorageBackendS3 {
		return blob.NewS3Storage(ctx, cfg.Storage.S3, httpclient.NewClient("s3", cfg.Storage.S3.HTTPTimeout))
	}
	return blob.NewLocalStorage(cfg.Storage.Root)
}
