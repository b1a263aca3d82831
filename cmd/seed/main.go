package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sashankstar/Food-order-tracking/internal/config"
	"github.com/Sashankstar/Food-order-tracking/internal/docstore"
	"github.com/Sashankstar/Food-order-tracking/internal/menu"
	"github.com/Sashankstar/Food-order-tracking/internal/telemetry"
)

type menuStore interface {
	menu.Catalog
	menu.Seeder
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load("")
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	file := flag.String("file", cfg.MenuFile, "menu catalog in YAML")
	flag.Parse()

	if err := cfg.RequireStore(); err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	var store menuStore
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := docstore.Connect(ctx, cfg.MongoURL)
		if err != nil {
			logger.Error("failed to connect to mongo", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		store = docstore.NewMenuStore(client.Database(cfg.MongoDatabase))

	default:
		db, err := telemetry.OpenPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			logger.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		store = menu.NewMenuRepository(db)
	}

	n, err := menu.Seed(ctx, store, *file)
	if err != nil {
		logger.Error("menu seed failed", slog.String("error", err.Error()), slog.String("file", *file))
		os.Exit(1)
	}
	logger.Info("menu seeded", slog.Int("items", n), slog.String("driver", cfg.StoreDriver))

	if cfg.RedisURL == "" {
		return
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("invalid REDIS_URL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	rdb := redis.NewClient(opts)
	defer func() { _ = rdb.Close() }()

	if err := menu.NewCachedCatalog(store, rdb, cfg.MenuCacheTTL, logger).Invalidate(ctx); err != nil {
		logger.Warn("failed to invalidate menu cache", slog.String("error", err.Error()))
		return
	}
	logger.Info("menu cache invalidated")
}
