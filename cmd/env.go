package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/impact-engine/internal/config"
	"github.com/sells-group/impact-engine/internal/engine"
	"github.com/sells-group/impact-engine/internal/eol"
	"github.com/sells-group/impact-engine/internal/facility"
	"github.com/sells-group/impact-engine/internal/livecalc"
	"github.com/sells-group/impact-engine/internal/model"
	"github.com/sells-group/impact-engine/internal/resilience"
	"github.com/sells-group/impact-engine/internal/store"
	"github.com/sells-group/impact-engine/internal/waterfall"
	"github.com/sells-group/impact-engine/pkg/processdb"
)

// engineEnv holds the store, engine and clients needed by the calculate,
// serve and worker commands.
type engineEnv struct {
	Store  store.Store
	Engine *engine.Engine
	Redis  *redis.Client // may be nil
}

// Close releases resources held by the environment.
func (ee *engineEnv) Close() {
	if ee.Redis != nil {
		_ = ee.Redis.Close()
	}
	if ee.Store != nil {
		_ = ee.Store.Close()
	}
}

// initStore opens the configured backend.
func initStore(ctx context.Context, sc config.StoreConfig) (store.Store, error) {
	switch sc.Driver {
	case "sqlite":
		dsn := sc.DatabaseURL
		if dsn == "" {
			dsn = "impact.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, sc.DatabaseURL, &store.PoolConfig{
			MaxConns: sc.MaxConns,
			MinConns: sc.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", sc.Driver)
	}
}

// initEngine validates the configuration for mode, opens and migrates the
// store, and builds the calculation engine. Callers should defer env.Close().
func initEngine(ctx context.Context, c *config.Config, mode string) (*engineEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx, c.Store)
	if err != nil {
		return nil, err
	}
	env := &engineEnv{Store: st}

	if err := st.Migrate(ctx); err != nil {
		env.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	eng, err := buildEngine(ctx, c, env)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Engine = eng
	return env, nil
}

// buildEngine wires the waterfall tiers, facility attribution and end-of-life
// tables around env.Store. A configured Redis cache is recorded on env.
func buildEngine(ctx context.Context, c *config.Config, env *engineEnv) (*engine.Engine, error) {
	wcfg := waterfall.DefaultConfiguration()
	if c.Waterfall.ConfigPath != "" {
		loaded, err := waterfall.LoadConfig(c.Waterfall.ConfigPath)
		if err != nil {
			return nil, err
		}
		wcfg = loaded
	}

	sources := waterfall.Sources{
		Suppliers: env.Store,
		Mappings:  env.Store,
		Factors:   env.Store,
	}
	if c.LiveCalc.Enabled() {
		svc, err := buildLiveCalc(ctx, c, env)
		if err != nil {
			return nil, err
		}
		sources.Live = svc
	} else {
		zap.L().Info("live calculation service not configured, live tier disabled")
	}

	calc := eol.NewCalculator()
	if c.EoL.DefaultsPath != "" {
		loaded, err := eol.LoadDefaults(c.EoL.DefaultsPath)
		if err != nil {
			return nil, err
		}
		calc = loaded
	}
	for _, w := range calc.Validate() {
		zap.L().Warn("eol defaults", zap.String("subject", w.Subject), zap.String("message", w.Message))
	}

	eng := engine.New(
		env.Store,
		waterfall.NewResolver(wcfg, sources),
		facility.NewEngine(env.Store, c.Engine.MaxConcurrentFacilities),
		calc,
		c.Engine.MaxConcurrentMaterials,
	)
	eng.SetDefaults(c.Engine.DefaultRegion, model.SystemBoundary(c.Engine.DefaultBoundary))
	return eng, nil
}

// buildLiveCalc creates the live calculation service and its cache.
func buildLiveCalc(ctx context.Context, c *config.Config, env *engineEnv) (*livecalc.Service, error) {
	lc := c.LiveCalc

	var cache livecalc.Cache
	switch lc.CacheDriver {
	case "memory":
		cache = livecalc.NewMemoryCache()
	case "redis":
		rdb, err := livecalc.NewRedisClient(ctx, c.Redis.Addr, c.Redis.Password, c.Redis.DB)
		if err != nil {
			return nil, err
		}
		env.Redis = rdb
		cache = livecalc.NewRedisCache(rdb, lc.CacheTTL())
	default:
		cache = livecalc.NewStoreCache(env.Store)
	}

	client := processdb.NewClient(lc.APIKey,
		processdb.WithBaseURL(lc.BaseURL),
		processdb.WithMethod(lc.Method),
		processdb.WithHTTPClient(&http.Client{Timeout: time.Duration(lc.TimeoutSecs) * time.Second}),
	)

	retry := resilience.DefaultPolicy()
	if lc.RetryAttempts > 0 {
		retry.Attempts = lc.RetryAttempts
	}
	if lc.RetryBaseDelayMs > 0 {
		retry.BaseDelay = time.Duration(lc.RetryBaseDelayMs) * time.Millisecond
	}

	// A shared call covers every retry attempt at the client timeout.
	var fetchTimeout time.Duration
	if lc.TimeoutSecs > 0 {
		fetchTimeout = time.Duration(lc.TimeoutSecs) * time.Second * time.Duration(retry.Attempts)
	}

	zap.L().Info("live calculation service enabled",
		zap.String("base_url", lc.BaseURL),
		zap.String("cache", lc.CacheDriver),
	)

	return livecalc.NewService(client, cache, livecalc.Options{
		Method:           lc.Method,
		TTL:              lc.CacheTTL(),
		FetchTimeout:     fetchTimeout,
		RatePerSecond:    lc.RatePerSecond,
		Burst:            lc.Burst,
		Retry:            retry,
		BreakerThreshold: lc.BreakerThreshold,
		BreakerCooldown:  time.Duration(lc.BreakerCooldownSecs) * time.Second,
	}), nil
}
