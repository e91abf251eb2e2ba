package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/impact-engine/internal/livecalc"
	"github.com/sells-group/impact-engine/internal/model"
	"github.com/sells-group/impact-engine/internal/waterfall"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() }) //nolint:errcheck
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

// Compile-time interface checks.
var (
	_ Store  = (*SQLiteStore)(nil)
	_ Store  = (*PostgresStore)(nil)
	_ Seeder = (*SQLiteStore)(nil)
	_ Seeder = (*PostgresStore)(nil)
)

func testFixtures() *Fixtures {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	return &Fixtures{
		Products: []model.Product{
			{ID: "prod-1", OrgID: "org-1", Name: "Sourdough Loaf", Boundary: model.BoundaryCradleToGrave, Region: "UK"},
		},
		Materials: []model.Material{
			{ID: "mat-2", ProductID: "prod-1", Name: "Flour", Quantity: 500, Unit: "g"},
			{
				ID: "mat-1", ProductID: "prod-1", Name: "Paper Bag", Kind: model.MaterialKindPackaging,
				Quantity: 20, Unit: "g", EoLCategory: "paper",
				Transport: &model.TransportLeg{Mode: model.TransportRoad, DistanceKm: 120},
			},
		},
		StagingFactors: []FactorRow{
			{Name: "Wheat Flour", Source: "staging-v2", Factors: map[string]float64{"climate": 0.6, "water": 0.2}},
		},
		ProxyFactors: []FactorRow{
			{Name: "Kraft Paper", Source: "proxy-db", Factors: map[string]float64{"climate": 1.1}},
		},
		Suppliers: []SupplierRow{
			{Scope: SupplierScopeOrg, OrgID: "org-1", ProductID: "sp-1", Name: "Mill Flour", Source: "supplier-epd", DataQuality: 4,
				Factors: map[string]float64{"climate": 0.45}},
			{Scope: SupplierScopePlatform, ProductID: "sp-1", Name: "Shared Flour", Source: "platform",
				ConfidenceOverride: waterfall.Float(0.9), Factors: map[string]float64{"climate": 0.5}},
		},
		Mappings: []MappingRow{
			{MaterialName: "Cane Sugar", FactorName: "sugar-uk", Source: "defra", Climate: 0.9, ProxyID: "proc-sugar"},
		},
		Proxies: []ProxyRow{
			{ID: "proc-sugar", Name: "Sugar production", Source: "ecoinvent", Factors: map[string]float64{"water": 1.5}},
		},
		Utilities: []model.UtilityRecord{
			{ID: "u-1", FacilityID: "fac-1", Type: model.UtilityElectricity, Quantity: 1000, Unit: "kWh", PeriodStart: jan, PeriodEnd: feb},
			{ID: "u-2", FacilityID: "fac-1", Type: model.UtilityNaturalGas, Quantity: 200, Unit: "kWh", PeriodStart: feb, PeriodEnd: feb.AddDate(0, 1, 0)},
		},
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) interface {
	Store
	Seeder
}) {
	t.Run("SeedAndReadProduct", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Seed(ctx, testFixtures()))

		p, err := s.GetProduct(ctx, "prod-1")
		require.NoError(t, err)
		assert.Equal(t, "Sourdough Loaf", p.Name)
		assert.Equal(t, model.BoundaryCradleToGrave, p.Boundary)

		mats, err := s.ListMaterials(ctx, "prod-1")
		require.NoError(t, err)
		require.Len(t, mats, 2)
		assert.Equal(t, "mat-2", mats[0].ID, "fixture order is preserved")
		assert.Equal(t, model.MaterialKindIngredient, mats[0].Kind)
		assert.Nil(t, mats[0].Transport)
		require.NotNil(t, mats[1].Transport)
		assert.InDelta(t, 120, mats[1].Transport.DistanceKm, 1e-9)
		assert.Equal(t, "paper", mats[1].EoLCategory)
	})

	t.Run("SeedIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Seed(ctx, testFixtures()))
		require.NoError(t, s.Seed(ctx, testFixtures()))

		mats, err := s.ListMaterials(ctx, "prod-1")
		require.NoError(t, err)
		assert.Len(t, mats, 2)

		recs, err := s.UtilityRecords(ctx, "fac-1", model.ReportingPeriod{})
		require.NoError(t, err)
		assert.Len(t, recs, 2)
	})

	t.Run("ProductNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetProduct(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
	})

	t.Run("SupplierScopes", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Seed(ctx, testFixtures()))

		org, err := s.OrgSupplierProduct(ctx, "org-1", "sp-1")
		require.NoError(t, err)
		require.NotNil(t, org)
		assert.Equal(t, "Mill Flour", org.Name)
		assert.Equal(t, 4, org.DataQuality)
		assert.Nil(t, org.ConfidenceOverride)
		require.NotNil(t, org.Factors.Climate)
		assert.InDelta(t, 0.45, *org.Factors.Climate, 1e-9)

		other, err := s.OrgSupplierProduct(ctx, "org-2", "sp-1")
		require.NoError(t, err)
		assert.Nil(t, other)

		platform, err := s.PlatformSupplierProduct(ctx, "sp-1")
		require.NoError(t, err)
		require.NotNil(t, platform)
		require.NotNil(t, platform.ConfidenceOverride)
		assert.InDelta(t, 0.9, *platform.ConfidenceOverride, 1e-9)

		footprint, err := s.SupplierFootprint(ctx, "sp-1")
		require.NoError(t, err)
		assert.Nil(t, footprint)
	})

	t.Run("MappingAndProxy", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Seed(ctx, testFixtures()))

		m, err := s.RegionalMapping(ctx, "  cane   SUGAR ")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, "proc-sugar", m.ProxyID)
		assert.InDelta(t, 0.9, m.Climate, 1e-9)

		p, err := s.ProcessProxy(ctx, "proc-sugar")
		require.NoError(t, err)
		require.NotNil(t, p)
		require.NotNil(t, p.Factors.Water)
		assert.Nil(t, p.Factors.Climate)

		none, err := s.ProcessProxy(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("NameMatchedFactors", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Seed(ctx, testFixtures()))

		sf, err := s.StagingFactor(ctx, "wheat flour")
		require.NoError(t, err)
		require.NotNil(t, sf)
		assert.Equal(t, "Wheat Flour", sf.Name)
		assert.Equal(t, 2, sf.Factors.Count())

		pf, err := s.ProxyFactor(ctx, "KRAFT PAPER")
		require.NoError(t, err)
		require.NotNil(t, pf)
		assert.Equal(t, "proxy-db", pf.Source)

		missing, err := s.StagingFactor(ctx, "Kraft Paper")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("UtilityRecordsPeriodFilter", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Seed(ctx, testFixtures()))

		jan := model.ReportingPeriod{
			Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		}
		recs, err := s.UtilityRecords(ctx, "fac-1", jan)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "u-1", recs[0].ID)
		assert.Equal(t, model.UtilityElectricity, recs[0].Type)
		assert.True(t, recs[0].PeriodStart.Equal(jan.Start))

		other, err := s.UtilityRecords(ctx, "fac-2", jan)
		require.NoError(t, err)
		assert.Empty(t, other)
	})

	t.Run("RunLifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		started := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

		require.NoError(t, s.CreateRun(ctx, model.CalculationRun{
			ID: "run-1", ProductID: "prod-1", OrgID: "org-1", Status: model.RunStatusRunning, StartedAt: started,
		}))
		warnings := []model.Warning{{Code: model.WarnProxyMissing, Subject: "Sugar", Message: "no proxy"}}
		require.NoError(t, s.CompleteRun(ctx, "run-1", warnings))

		run, err := s.GetRun(ctx, "run-1")
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusComplete, run.Status)
		assert.True(t, run.StartedAt.Equal(started))
		require.NotNil(t, run.CompletedAt)
		assert.Equal(t, warnings, run.Warnings)
	})

	t.Run("FailRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateRun(ctx, model.CalculationRun{ID: "run-2", ProductID: "prod-1", Status: model.RunStatusRunning, StartedAt: time.Now()}))
		require.NoError(t, s.FailRun(ctx, "run-2", "missing factor", nil))

		run, err := s.GetRun(ctx, "run-2")
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFailed, run.Status)
		assert.Equal(t, "missing factor", run.Error)
		assert.Empty(t, run.Warnings)
	})

	t.Run("FinishUnknownRun", func(t *testing.T) {
		s := newStore(t)
		err := s.CompleteRun(context.Background(), "ghost", nil)
		require.Error(t, err)
		assert.True(t, IsNotFound(err))

		_, err = s.GetRun(context.Background(), "ghost")
		assert.True(t, IsNotFound(err))
	})

	t.Run("ResolvedImpactsUpsert", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		first := []model.ResolvedImpact{
			{MaterialID: "mat-1", MaterialName: "Paper Bag", Impacts: model.ImpactValues{Climate: 0.02}, Priority: 3},
			{MaterialID: "mat-2", MaterialName: "Flour", Impacts: model.ImpactValues{Climate: 0.3}, Priority: 2},
		}
		require.NoError(t, s.SaveCalculation(ctx, model.RunOutput{
			RunID: "run-1", ProductID: "prod-1", Impacts: first, Aggregated: model.NewAggregatedImpacts("prod-1"),
		}))

		second := []model.ResolvedImpact{
			{MaterialID: "mat-2", MaterialName: "Flour", Impacts: model.ImpactValues{Climate: 0.25}, Priority: 1},
		}
		require.NoError(t, s.SaveCalculation(ctx, model.RunOutput{
			RunID: "run-2", ProductID: "prod-1", Impacts: second, Aggregated: model.NewAggregatedImpacts("prod-1"),
		}))

		got, err := s.ListResolvedImpacts(ctx, "prod-1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "mat-1", got[0].MaterialID)
		assert.InDelta(t, 0.25, got[1].Impacts.Climate, 1e-9)
		assert.Equal(t, 1, got[1].Priority)
	})

	t.Run("LivecalcCache", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		key := livecalc.Key{OrgID: "org-1", ProcessID: "proc-9"}

		miss, err := s.GetLiveCalcCache(ctx, key)
		require.NoError(t, err)
		assert.Nil(t, miss)

		stored := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
		entry := livecalc.Entry{
			Result:   waterfall.LiveResult{OrgID: "org-1", ProcessID: "proc-9", Factors: waterfall.FactorSet{Climate: waterfall.Float(2.5)}},
			StoredAt: stored,
		}
		require.NoError(t, s.PutLiveCalcCache(ctx, key, entry))
		entry.StoredAt = stored.Add(time.Hour)
		require.NoError(t, s.PutLiveCalcCache(ctx, key, entry))

		hit, err := s.GetLiveCalcCache(ctx, key)
		require.NoError(t, err)
		require.NotNil(t, hit)
		assert.True(t, hit.StoredAt.Equal(stored.Add(time.Hour)))
		require.NotNil(t, hit.Result.Factors.Climate)
		assert.InDelta(t, 2.5, *hit.Result.Factors.Climate, 1e-9)
	})

	t.Run("AggregateRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.GetAggregate(ctx, "prod-1")
		assert.True(t, IsNotFound(err))

		agg := model.NewAggregatedImpacts("prod-1")
		agg.Total.Climate = 1.25
		agg.ByStage[model.StageRawMaterials] = 1.25
		agg.ByScope[model.Scope3] = 1.25
		interp := model.InterpretationResult{ProductID: "prod-1", Conclusions: []string{"ok"}}
		require.NoError(t, s.SaveCalculation(ctx, model.RunOutput{
			RunID: "run-1", ProductID: "prod-1", Aggregated: agg, Interpretation: interp,
		}))

		rec, err := s.GetAggregate(ctx, "prod-1")
		require.NoError(t, err)
		assert.Equal(t, "run-1", rec.RunID)
		assert.InDelta(t, 1.25, rec.Aggregated.ByStage[model.StageRawMaterials], 1e-9)
		assert.InDelta(t, 1.25, rec.Aggregated.ByScope[model.Scope3], 1e-9)
		assert.Equal(t, []string{"ok"}, rec.Interpretation.Conclusions)
	})

	t.Run("SaveCalculationReplacesPreviousRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveCalculation(ctx, model.RunOutput{
			RunID:       "run-1",
			ProductID:   "prod-1",
			Impacts:     []model.ResolvedImpact{{MaterialID: "mat-1"}, {MaterialID: "mat-2", Priority: 3}},
			Allocations: []model.AllocationResult{testAllocation("fac-1", 0.5)},
			Aggregated:  model.NewAggregatedImpacts("prod-1"),
		}))
		require.NoError(t, s.SaveCalculation(ctx, model.RunOutput{
			RunID:       "run-2",
			ProductID:   "prod-1",
			Impacts:     []model.ResolvedImpact{{MaterialID: "mat-2", Priority: 1}},
			Allocations: []model.AllocationResult{testAllocation("fac-1", 0.25)},
			Aggregated:  model.NewAggregatedImpacts("prod-1"),
		}))

		impacts, err := s.ListResolvedImpacts(ctx, "prod-1")
		require.NoError(t, err)
		require.Len(t, impacts, 2)
		assert.Equal(t, 1, impacts[1].Priority)

		allocs, err := s.LatestAllocations(ctx, "prod-1")
		require.NoError(t, err)
		require.Len(t, allocs, 1)
		assert.InDelta(t, 0.25, allocs[0].Ratio, 1e-9)

		rec, err := s.GetAggregate(ctx, "prod-1")
		require.NoError(t, err)
		assert.Equal(t, "run-2", rec.RunID)
	})
}

func testAllocation(facilityID string, ratio float64) model.AllocationResult {
	return model.AllocationResult{
		Allocation: model.FacilityAllocation{
			FacilityID: facilityID,
			ProductID:  "prod-1",
			Ownership:  model.OwnershipOwned,
			Period: model.ReportingPeriod{
				Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			},
			ProductVolume:       ratio * 100,
			FacilityTotalVolume: 100,
		},
		Ratio:  ratio,
		Bucket: model.BucketProductionSite,
		Status: model.AllocationVerified,
		Scope1: 10 * ratio,
		Scope2: 20 * ratio,
	}
}

func TestSQLiteStoreSuite(t *testing.T) {
	storeTestSuite(t, func(t *testing.T) interface {
		Store
		Seeder
	} {
		return newTestSQLite(t)
	})
}
