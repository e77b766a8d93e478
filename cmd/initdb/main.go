package main

import (
	"context"
	"log"
	"path"

	"banner-editor/internal/core/blob"
	"banner-editor/internal/core/cache"
	"banner-editor/internal/core/config"
	"banner-editor/internal/core/database"
	"banner-editor/internal/core/httpclient"
	"banner-editor/internal/core/logger"
	"banner-editor/internal/features/banners/adapters"
	"banner-editor/internal/features/banners/assets"

	"go.uber.org/zap"
)

// initdb wipes the banner store and rebuilds the empty shard tree.
// It is destructive and meant for fresh installs and test environments.
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
	ctx := context.Background()

	if err := resetStore(ctx, cfg); err != nil {
		l.Fatal("Failed to reset banner store", zap.Error(err))
	}
	l.Info("Banner store reset", zap.String("backend", cfg.Database.Backend))

	var storage blob.Storage
	if cfg.Storage.Backend == config.StorageBackendS3 {
		storage, err = blob.NewS3Storage(ctx, cfg.Storage.S3, httpclient.NewClient("s3", cfg.Storage.S3.HTTPTimeout))
	} else {
		storage, err = blob.NewLocalStorage(cfg.Storage.Root)
	}
	if err != nil {
		l.Fatal("Failed to initialize asset storage", zap.Error(err))
	}

	if err := storage.RemoveTree(ctx, assets.RootDir); err != nil {
		l.Fatal("Failed to remove asset tree", zap.Error(err))
	}

	shards := assets.ShardNames()
	for _, first := range shards {
		for _, second := range shards {
			if err := storage.MakeDir(ctx, path.Join(assets.RootDir, first, second)); err != nil {
				l.Fatal("Failed to create shard directory", zap.Error(err))
			}
		}
	}
	l.Info("Asset tree rebuilt", zap.Int("shards", len(shards)*len(shards)))
}

func resetStore(ctx context.Context, cfg *config.AppConfig) error {
	if cfg.Database.Backend == config.StoreBackendRedis {
		redisAdapter, err := cache.NewRedisAdapter(cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer redisAdapter.Close()
		return adapters.NewRedisBannerRepository(redisAdapter.Client()).Reset(ctx)
	}

	db, err := database.Connect(cfg.Database.DSN)
	if err != nil {
		return err
	}
	return adapters.Reset(db)
}
