package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/impact-engine/internal/config"
	"github.com/sells-group/impact-engine/internal/engine"
	"github.com/sells-group/impact-engine/internal/model"
	"github.com/sells-group/impact-engine/internal/store"
)

const cmdFixtures = `
products:
  - id: prod-1
    org_id: org-1
    name: Oat Bar
materials:
  - id: mat-1
    product_id: prod-1
    name: Rolled Oats
    quantity: 2
    unit: kg
staging_factors:
  - name: Rolled Oats
    source: staging-v2
    factors:
      climate: 0.5
      land: 1.4
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "impact.db"),
		},
		Engine: config.EngineConfig{
			MaxConcurrentMaterials:  4,
			MaxConcurrentFacilities: 2,
			DefaultRegion:           "GLOBAL",
			DefaultBoundary:         string(model.BoundaryCradleToGate),
		},
		LiveCalc: config.LiveCalcConfig{
			CacheDriver:   "store",
			CacheTTLHours: 168,
			RatePerSecond: 5,
			Burst:         5,
		},
		Trace: config.TraceConfig{Exporter: "stdout"},
	}
}

func TestInitStore(t *testing.T) {
	ctx := context.Background()

	st, err := initStore(ctx, config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "a.db")})
	require.NoError(t, err)
	require.NoError(t, st.Ping(ctx))
	require.NoError(t, st.Close())

	_, err = initStore(ctx, config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store driver")
}

func TestInitEngine_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Engine.MaxConcurrentMaterials = 0

	_, err := initEngine(context.Background(), cfg, "calculate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine.max_concurrent_materials")
}

func TestInitEngine_MissingWaterfallConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Waterfall.ConfigPath = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := initEngine(context.Background(), cfg, "calculate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "waterfall: read config")
}

func TestInitEngine_LiveCalcMemoryCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.LiveCalc.BaseURL = "http://127.0.0.1:1"
	cfg.LiveCalc.CacheDriver = "memory"

	env, err := initEngine(context.Background(), cfg, "calculate")
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Engine)
	assert.Nil(t, env.Redis)
}

func TestSeedCalculateExport(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	env, err := initEngine(ctx, cfg, "calculate")
	require.NoError(t, err)
	defer env.Close()

	f, err := store.LoadFixtures(writeFile(t, "seed.yaml", cmdFixtures))
	require.NoError(t, err)
	require.NoError(t, seedStore(ctx, env.Store, f))

	res, err := env.Engine.Calculate(ctx, engine.Request{ProductID: "prod-1"})
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusComplete, res.Run.Status)
	require.Len(t, res.Impacts, 1)
	assert.InDelta(t, 1.0, res.Impacts[0].Impacts.Climate, 1e-9)
	assert.Equal(t, "org-1", res.Run.OrgID)

	rep, err := loadReport(ctx, env.Store, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, "prod-1", rep.ProductID)
	require.Len(t, rep.Impacts, 1)
	assert.Equal(t, "Rolled Oats", rep.Impacts[0].MaterialName)
	assert.InDelta(t, res.Aggregated.Total.Climate, rep.Aggregated.Total.Climate, 1e-9)
}

func TestLoadReport_NoAggregate(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	st, err := initStore(ctx, cfg.Store)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))

	_, err = loadReport(ctx, st, "prod-1")
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
}
