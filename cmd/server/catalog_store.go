package main

import (
	"context"
	"database/sql"
	"log"

	"cantina/cmd/server/config"
	"cantina/internal/catalog"
	catalogdb "cantina/internal/db/catalog"
	"cantina/internal/observability"
	"cantina/internal/reliability"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
)

var openCatalogDB = func(driver, dsn string) (*sql.DB, error) {
	return sql.Open(driver, dsn)
}

// catalogStores bundles the repositories for one backend, the breakers
// guarding it, and the cleanup that releases its connections.
type catalogStores struct {
	products   catalog.ProductRepository
	categories catalog.CategoryRepository
	breakers   map[string]*reliability.CircuitBreaker
	cleanup    func()
}

// buildCatalogStores constructs the product and category repositories for the
// configured backend. Every backend with real I/O is wrapped with a circuit
// breaker and the shared retry policy; breakers are registered with the
// metrics registry under their backend name.
func buildCatalogStores(ctx context.Context, metrics *observability.Metrics) (catalogStores, error) {
	out := catalogStores{
		breakers: map[string]*reliability.CircuitBreaker{},
		cleanup:  func() {},
	}

	cfg, err := config.LoadCatalog()
	if err != nil {
		return out, err
	}
	breakerCfg, err := config.LoadBreaker()
	if err != nil {
		return out, err
	}
	retryCfg, err := config.LoadRetry()
	if err != nil {
		return out, err
	}
	retry := reliability.RetryPolicy{
		MaxAttempts: retryCfg.MaxAttempts,
		BaseDelay:   retryCfg.BaseDelay,
		MaxDelay:    retryCfg.MaxDelay,
	}

	newBreaker := func(name string) *reliability.CircuitBreaker {
		b := reliability.NewCircuitBreaker(reliability.BreakerConfig{
			Name:             name,
			FailureThreshold: breakerCfg.FailureThreshold,
			RecoveryTimeout:  breakerCfg.RecoveryTimeout,
		})
		out.breakers[name] = b
		if metrics != nil {
			metrics.RegisterBreaker(name, b.Stats)
		}
		return b
	}

	switch cfg.Backend {
	case config.BackendMemory:
		if cfg.Seed {
			out.products = catalog.NewProductMemoryStore(catalog.SeedProducts()...)
			out.categories = catalog.NewCategoryMemoryStore(catalog.SeedCategories()...)
		} else {
			out.products = catalog.NewProductMemoryStore()
			out.categories = catalog.NewCategoryMemoryStore()
		}
		return out, nil

	case config.BackendFile:
		breaker := newBreaker("catalog-file")
		products, err := catalog.NewProductFileStore(cfg.ProductsFile, breaker)
		if err != nil {
			return out, err
		}
		categories, err := catalog.NewCategoryFileStore(cfg.CategoriesFile, breaker)
		if err != nil {
			return out, err
		}
		out.products = catalog.NewReliableProductStore(products, nil, nil, retry)
		out.categories = catalog.NewReliableCategoryStore(categories, nil, nil, retry)

	case config.BackendPostgres:
		db, err := openCatalogDB("pgx", cfg.DatabaseURL)
		if err != nil {
			return out, err
		}
		products, err := catalogdb.NewPostgresProductStoreWithSchema(ctx, db)
		if err != nil {
			_ = db.Close()
			return out, err
		}
		categories, err := catalogdb.NewPostgresCategoryStoreWithSchema(ctx, db)
		if err != nil {
			_ = db.Close()
			return out, err
		}
		breaker := newBreaker("catalog-postgres")
		out.products = catalog.NewReliableProductStore(products, nil, breaker, retry)
		out.categories = catalog.NewReliableCategoryStore(categories, nil, breaker, retry)
		out.cleanup = func() {
			if err := db.Close(); err != nil {
				log.Printf("close catalog db: %v", err)
			}
		}

	case config.BackendRedis:
		client, err := buildCatalogRedisClient(ctx)
		if err != nil {
			return out, err
		}
		breaker := newBreaker("catalog-redis")
		out.products = catalog.NewReliableProductStore(catalog.NewRedisProductStore(client, cfg.RedisPrefix), nil, breaker, retry)
		out.categories = catalog.NewReliableCategoryStore(catalog.NewRedisCategoryStore(client, cfg.RedisPrefix), nil, breaker, retry)
		out.cleanup = func() {
			if err := client.Close(); err != nil {
				log.Printf("close redis: %v", err)
			}
		}

	default:
		// LoadCatalog already rejects unknown backends.
		return out, nil
	}

	if cfg.Seed {
		if err := seedCatalogIfEmpty(ctx, out.products, out.categories); err != nil {
			out.cleanup()
			return out, err
		}
	}
	return out, nil
}

func buildCatalogRedisClient(ctx context.Context) (*redis.Client, error) {
	cfg, err := config.LoadRedis()
	if err != nil {
		return nil, err
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.DialTimeout != nil {
		opts.DialTimeout = *cfg.DialTimeout
	}
	if cfg.ReadTimeout != nil {
		opts.ReadTimeout = *cfg.ReadTimeout
	}
	if cfg.WriteTimeout != nil {
		opts.WriteTimeout = *cfg.WriteTimeout
	}
	if cfg.PoolSize != nil {
		opts.PoolSize = *cfg.PoolSize
	}
	if cfg.MinIdleConns != nil {
		opts.MinIdleConns = *cfg.MinIdleConns
	}
	if cfg.MaxRetries != nil {
		opts.MaxRetries = *cfg.MaxRetries
	}
	if cfg.TLSConfig != nil {
		opts.TLSConfig = cfg.TLSConfig
	}

	client := redis.NewClient(opts)
	if cfg.EnableOTel {
		if err := redisotel.InstrumentTracing(client); err != nil {
			_ = client.Close()
			return nil, err
		}
		if err := redisotel.InstrumentMetrics(client); err != nil {
			_ = client.Close()
			return nil, err
		}
	}

	pingCtx := ctx
	if pingCtx == nil {
		pingCtx = context.Background()
	}
	if cfg.HealthcheckTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(pingCtx, cfg.HealthcheckTimeout)
		defer cancel()
	}
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// seedCatalogIfEmpty loads the default menu into a fresh backend. Backends
// that already hold data are left alone so restarts do not clobber edits.
func seedCatalogIfEmpty(ctx context.Context, products catalog.ProductRepository, categories catalog.CategoryRepository) error {
	existing, err := categories.All(ctx)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		for _, c := range catalog.SeedCategories() {
			if _, err := categories.Add(ctx, c); err != nil {
				return err
			}
		}
	}

	have, err := products.All(ctx)
	if err != nil {
		return err
	}
	if len(have) == 0 {
		for _, p := range catalog.SeedProducts() {
			if _, err := products.Add(ctx, p); err != nil {
				return err
			}
		}
	}
	return nil
}
