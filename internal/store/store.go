package store

import (
	"context"
	"time"

	"github.com/sells-group/impact-engine/internal/facility"
	"github.com/sells-group/impact-engine/internal/livecalc"
	"github.com/sells-group/impact-engine/internal/model"
	"github.com/sells-group/impact-engine/internal/waterfall"
)

// Supplier catalogue scopes.
const (
	SupplierScopeOrg       = "org"
	SupplierScopePlatform  = "platform"
	SupplierScopeFootprint = "footprint"
)

// AggregateRecord is the latest persisted aggregation for a product.
type AggregateRecord struct {
	ProductID      string                     `json:"product_id"`
	RunID          string                     `json:"run_id"`
	Aggregated     model.AggregatedImpacts    `json:"aggregated"`
	Interpretation model.InterpretationResult `json:"interpretation"`
	UpdatedAt      time.Time                  `json:"updated_at"`
}

// ProductStore reads products and their materials.
type ProductStore interface {
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	ListMaterials(ctx context.Context, productID string) ([]model.Material, error)
}

// RunStore records calculation runs and their output.
type RunStore interface {
	CreateRun(ctx context.Context, run model.CalculationRun) error
	CompleteRun(ctx context.Context, runID string, warnings []model.Warning) error
	FailRun(ctx context.Context, runID, reason string, warnings []model.Warning) error
	GetRun(ctx context.Context, runID string) (*model.CalculationRun, error)

	SaveCalculation(ctx context.Context, out model.RunOutput) error
	ListResolvedImpacts(ctx context.Context, productID string) ([]model.ResolvedImpact, error)
	LatestAllocations(ctx context.Context, productID string) ([]model.AllocationResult, error)
	GetAggregate(ctx context.Context, productID string) (*AggregateRecord, error)
}

// Store is the persistence interface for the impact engine. Lookups return
// (nil, nil) when no row exists.
type Store interface {
	ProductStore
	RunStore

	waterfall.SupplierCatalogue
	waterfall.MappingTable
	waterfall.FactorTable
	facility.UtilityStore
	livecalc.CacheRepository

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Seeder loads reference data and products.
type Seeder interface {
	Seed(ctx context.Context, f *Fixtures) error
}
