package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/shashiranjanraj/bookstore/app/controllers"
	"github.com/shashiranjanraj/bookstore/app/services"
	"github.com/shashiranjanraj/bookstore/app/store"
	"github.com/shashiranjanraj/bookstore/app/store/memory"
	"github.com/shashiranjanraj/bookstore/app/store/sqlstore"
	"github.com/shashiranjanraj/bookstore/config"
	"github.com/shashiranjanraj/bookstore/database/seeders"
	"github.com/shashiranjanraj/bookstore/internal/kernel"
	"github.com/shashiranjanraj/bookstore/pkg/cache"
	"github.com/shashiranjanraj/bookstore/pkg/database"
	"github.com/shashiranjanraj/bookstore/pkg/event"
	"github.com/shashiranjanraj/bookstore/pkg/logger"
	"github.com/shashiranjanraj/bookstore/pkg/migration"
	"github.com/shashiranjanraj/bookstore/pkg/session"
	"github.com/shashiranjanraj/bookstore/pkg/storage"
	"github.com/shashiranjanraj/bookstore/pkg/workerpool"
)

// setupLogging configures slog and, when LOG_MONGO_URI is set, the MongoDB
// sink. The returned func flushes the sink.
func setupLogging(ctx context.Context) func() {
	var extra []slog.Handler
	var mongoHandler *logger.MongoHandler

	if uri := config.LogMongoURI(); uri != "" {
		h, err := logger.NewMongoHandler(ctx, uri, config.LogMongoDB(), config.LogMongoCollection(), slog.LevelInfo)
		if err != nil {
			fmt.Fprintln(os.Stderr, "mongo log sink disabled:", err)
		} else {
			mongoHandler = h
			extra = append(extra, h)
		}
	}

	logger.Setup(config.AppEnv(), os.Stdout, extra...)

	return func() {
		if mongoHandler != nil {
			mongoHandler.Close()
		}
	}
}

// openDB loads config and connects to the configured SQL database.
func openDB(ctx context.Context) (*gorm.DB, error) {
	if err := config.Load(); err != nil {
		return nil, err
	}
	return database.Open(ctx, config.DatabaseDriver(), config.DatabaseDSN())
}

// openStore returns the configured backend, ready to serve. The SQL store is
// migrated and seeded; the memory store starts from the sample catalog.
func openStore(ctx context.Context) (store.Store, error) {
	if config.StoreDriver() == "memory" {
		st := memory.Seeded()
		gate := services.NewAdminGate(st)
		if err := gate.EnsureAdmin(ctx, config.AdminUsername(), config.AdminPassword()); err != nil {
			return nil, err
		}
		logger.Info("using in-memory store")
		return st, nil
	}

	db, err := openDB(ctx)
	if err != nil {
		return nil, err
	}
	if err := migration.New(db, io.Discard).Run(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := seeders.RunAll(ctx, db, io.Discard); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	logger.Info("using database store", "driver", config.DatabaseDriver())
	return sqlstore.New(db), nil
}

// connectRedis is best effort: without Redis the service keeps sessions in
// memory and skips the category cache.
func connectRedis(ctx context.Context) *redis.Client {
	rdb, err := cache.Connect(ctx, config.RedisAddr(), config.RedisPassword())
	if err != nil {
		logger.Warn("redis unavailable; using in-process sessions and no cache", "error", err)
		return nil
	}
	return rdb
}

type application struct {
	store  store.Store
	redis  *redis.Client
	pool   *workerpool.Pool
	health *controllers.HealthController
	kernel *kernel.HTTPKernel
}

// Close drains background listeners before releasing connections.
func (a *application) Close() {
	a.pool.Shutdown()
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := a.store.Close(); err != nil {
		logger.Warn("store close failed", "error", err)
	}
}

// buildApplication wires store, services and the HTTP kernel around st.
func buildApplication(ctx context.Context, st store.Store, rdb *redis.Client) (*application, error) {
	disk, err := storage.New(ctx, storage.ConfigFromEnv())
	if err != nil {
		return nil, err
	}

	var sessions session.Store = session.NewMemoryStore()
	if rdb != nil {
		sessions = session.NewRedisStore(rdb)
	}

	opts := session.DefaultOptions()
	opts.CookieName = config.SessionCookie()
	opts.TTL = config.SessionTTL()
	opts.Secure = config.IsProduction()

	pool := workerpool.New(4)

	gate := services.NewAdminGate(st)
	catalog := services.NewCatalogService(st, gate, services.CatalogOptions{
		Cache:    cache.New(rdb, "bookstore:cache:"),
		CacheTTL: config.CatalogCacheTTL(),
		Disk:     disk,
		Events:   event.NewBus(pool),
		PerPage:  config.ItemsPerPage(),
	})
	health := controllers.NewHealthController(st)

	k, err := kernel.NewHTTPKernel(kernel.Deps{
		Catalog:        catalog,
		Carts:          services.NewCartService(st, catalog),
		Gate:           gate,
		Health:         health,
		Sessions:       sessions,
		SessionOptions: opts,
		SessionHeader:  config.SessionHeader(),
		Disk:           disk,
		RateLimit:      config.RateLimit(),
		MaxBodyBytes:   config.MaxBodyBytes(),
	})
	if err != nil {
		pool.Shutdown()
		return nil, err
	}

	return &application{store: st, redis: rdb, pool: pool, health: health, kernel: k}, nil
}
