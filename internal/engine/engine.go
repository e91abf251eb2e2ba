// Package engine orchestrates one product footprint calculation: material
// resolution and facility attribution in parallel, then end-of-life,
// aggregation, interpretation and persistence.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/impact-engine/internal/aggregate"
	"github.com/sells-group/impact-engine/internal/eol"
	"github.com/sells-group/impact-engine/internal/interpret"
	"github.com/sells-group/impact-engine/internal/model"
	"github.com/sells-group/impact-engine/internal/waterfall"
)

// ProductReader reads the product under assessment and its materials.
type ProductReader interface {
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	ListMaterials(ctx context.Context, productID string) ([]model.Material, error)
}

// Sink persists calculation output. SaveCalculation is an idempotent upsert
// keyed by product and material, or facility and period, and writes all of a
// run's output or none of it.
type Sink interface {
	CreateRun(ctx context.Context, run model.CalculationRun) error
	SaveCalculation(ctx context.Context, out model.RunOutput) error
	CompleteRun(ctx context.Context, runID string, warnings []model.Warning) error
	FailRun(ctx context.Context, runID, reason string, warnings []model.Warning) error
	LatestAllocations(ctx context.Context, productID string) ([]model.AllocationResult, error)
}

// Store is everything the engine reads and writes.
type Store interface {
	ProductReader
	Sink
}

// Resolver resolves one material.
type Resolver interface {
	Resolve(ctx context.Context, req waterfall.Request) (*waterfall.Result, error)
}

// Attributor allocates facility emissions to a product.
type Attributor interface {
	AttributeAll(ctx context.Context, allocs []model.FacilityAllocation) ([]model.AllocationResult, []model.Warning, error)
}

// Request is one product calculation.
type Request struct {
	ProductID   string                     `json:"product_id"`
	OrgID       string                     `json:"org_id,omitempty"`
	Allocations []model.FacilityAllocation `json:"allocations,omitempty"`
	EoL         *model.EoLConfig           `json:"eol,omitempty"`
	Sensitivity *model.SensitivityAnalysis `json:"sensitivity,omitempty"`
}

// Result is the full output of a completed calculation.
type Result struct {
	Run            model.CalculationRun       `json:"run"`
	Impacts        []model.ResolvedImpact     `json:"impacts"`
	Allocations    []model.AllocationResult   `json:"allocations"`
	Aggregated     model.AggregatedImpacts    `json:"aggregated"`
	Interpretation model.InterpretationResult `json:"interpretation"`
	Warnings       []model.Warning            `json:"warnings"`
}

// Engine runs product calculations.
type Engine struct {
	store       Store
	resolver    Resolver
	facilities  Attributor
	eol         *eol.Calculator
	concurrency int
	tracer      trace.Tracer
	now         func() time.Time
	newID       func() string

	defaultRegion   string
	defaultBoundary model.SystemBoundary
}

// New creates an engine. concurrency bounds parallel material resolution;
// values below 1 select 8. A nil calculator uses the built-in EoL tables.
func New(st Store, resolver Resolver, facilities Attributor, calc *eol.Calculator, concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = 8
	}
	if calc == nil {
		calc = eol.NewCalculator()
	}
	return &Engine{
		store:       st,
		resolver:    resolver,
		facilities:  facilities,
		eol:         calc,
		concurrency: concurrency,
		tracer:      otel.Tracer("github.com/sells-group/impact-engine/internal/engine"),
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// SetDefaults sets the region and boundary applied to products that declare
// neither.
func (e *Engine) SetDefaults(region string, boundary model.SystemBoundary) {
	e.defaultRegion = region
	e.defaultBoundary = boundary
}

// Calculate runs one product calculation end to end. The first material with
// no factor in any tier aborts the calculation: remaining resolutions are
// canceled, nothing is written and the run is marked failed. The
// *waterfall.MissingFactorError is returned unwrapped.
func (e *Engine) Calculate(ctx context.Context, req Request) (*Result, error) {
	ctx, span := e.tracer.Start(ctx, "engine.Calculate", trace.WithAttributes(
		attribute.String("product.id", req.ProductID),
	))
	defer span.End()

	log := zap.L().With(zap.String("product_id", req.ProductID))

	if req.ProductID == "" {
		return nil, eris.New("engine: product id is required")
	}
	product, err := e.store.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: get product %s", req.ProductID)
	}
	if product.Region == "" {
		product.Region = e.defaultRegion
	}
	if product.Boundary == "" {
		product.Boundary = e.defaultBoundary
	}
	materials, err := e.store.ListMaterials(ctx, req.ProductID)
	if err != nil {
		return nil, eris.Wrapf(err, "engine: list materials %s", req.ProductID)
	}

	orgID := req.OrgID
	if orgID == "" {
		orgID = product.OrgID
	}
	run := model.CalculationRun{
		ID:        e.newID(),
		ProductID: req.ProductID,
		OrgID:     orgID,
		Status:    model.RunStatusRunning,
		StartedAt: e.now().UTC(),
	}
	if err := e.store.CreateRun(ctx, run); err != nil {
		return nil, eris.Wrap(err, "engine: create run")
	}
	span.SetAttributes(attribute.String("run.id", run.ID))
	log = log.With(zap.String("run_id", run.ID))
	log.Info("engine: starting calculation", zap.Int("materials", len(materials)), zap.Int("allocations", len(req.Allocations)))

	var warns model.Warnings

	eolCfg := model.EoLConfig{Region: product.Region}
	if req.EoL != nil {
		eolCfg = *req.EoL
		if eolCfg.Region == "" {
			eolCfg.Region = product.Region
		}
	}
	warns.Add(eol.ValidateConfig(eolCfg)...)

	// Resolution and attribution both finish before aggregation.
	impacts := make([]model.ResolvedImpact, len(materials))
	var allocs []model.AllocationResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.resolveAll(gctx, materials, orgID, impacts, &warns)
	})
	if len(req.Allocations) > 0 {
		g.Go(func() error {
			res, w, err := e.facilities.AttributeAll(gctx, req.Allocations)
			if err != nil {
				return err
			}
			allocs = res
			warns.Add(w...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.abort(ctx, run, err, warns.List())
		span.RecordError(err)
		span.SetStatus(codes.Error, "calculation failed")

		var mfe *waterfall.MissingFactorError
		if errors.As(err, &mfe) {
			log.Warn("engine: missing factor", zap.String("material", mfe.MaterialName))
			return nil, err
		}
		return nil, eris.Wrap(err, "engine: calculate")
	}

	var prior []model.AllocationResult
	if len(req.Allocations) == 0 {
		prior, err = e.store.LatestAllocations(ctx, req.ProductID)
		if err != nil {
			log.Warn("engine: failed to load prior allocations", zap.Error(err))
			warns.Add(model.Warning{
				Code:    model.WarnPersistFailed,
				Subject: req.ProductID,
				Message: "prior facility allocations could not be loaded: " + err.Error(),
			})
		}
	}

	endOfLife := e.endOfLife(materials, impacts, eolCfg)

	agg, aggWarns := aggregate.Aggregate(aggregate.Input{
		ProductID:        req.ProductID,
		Materials:        materials,
		Impacts:          impacts,
		Allocations:      allocs,
		PriorAllocations: prior,
		EndOfLife:        endOfLife,
	})
	warns.Add(aggWarns...)

	interp := interpret.Generate(interpret.Input{
		Aggregated:  agg,
		Boundary:    product.Boundary,
		Sensitivity: req.Sensitivity,
		Warnings:    warns.List(),
	})

	out := model.RunOutput{
		RunID:          run.ID,
		ProductID:      req.ProductID,
		Impacts:        impacts,
		Allocations:    allocs,
		Aggregated:     agg,
		Interpretation: interp,
	}
	if err := e.persist(ctx, out); err != nil {
		e.abort(ctx, run, err, warns.List())
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return nil, err
	}

	all := warns.List()
	if err := e.store.CompleteRun(ctx, run.ID, all); err != nil {
		return nil, eris.Wrap(err, "engine: complete run")
	}
	completed := e.now().UTC()
	run.Status = model.RunStatusComplete
	run.Warnings = all
	run.CompletedAt = &completed

	span.SetAttributes(
		attribute.Float64("impact.climate", agg.Total.Climate),
		attribute.Int("run.warnings", len(all)),
	)
	log.Info("engine: calculation complete",
		zap.Float64("climate", agg.Total.Climate),
		zap.Int("materials", agg.MaterialCount),
		zap.Int("warnings", len(all)),
	)

	if allocs == nil {
		allocs = agg.Allocations
	}
	return &Result{
		Run:            run,
		Impacts:        impacts,
		Allocations:    allocs,
		Aggregated:     agg,
		Interpretation: interp,
		Warnings:       all,
	}, nil
}

// resolveAll resolves every material concurrently into impacts, index for
// index. The first error cancels the rest.
func (e *Engine) resolveAll(ctx context.Context, materials []model.Material, orgID string, impacts []model.ResolvedImpact, warns *model.Warnings) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, m := range materials {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.resolver.Resolve(gctx, waterfall.Request{
				Material:   m,
				QuantityKg: m.QuantityKg(),
				OrgID:      orgID,
			})
			if err != nil {
				return err
			}
			impacts[i] = res.Impact
			warns.Add(res.Warnings...)
			return nil
		})
	}
	return g.Wait()
}

// endOfLife sums disposal impacts over manufacturing materials with mass.
func (e *Engine) endOfLife(materials []model.Material, impacts []model.ResolvedImpact, cfg model.EoLConfig) model.EoLResult {
	var total model.EoLResult
	for i, ri := range impacts {
		if ri.Category != model.CategoryManufacturingMaterial || ri.QuantityKg <= 0 {
			continue
		}
		key := materials[i].EoLCategory
		if key == "" {
			key = eol.KeyOther
		}
		total = total.Add(e.eol.Calculate(ri.QuantityKg, key, cfg.Region, cfg.Overrides))
	}
	return total
}

func (e *Engine) persist(ctx context.Context, out model.RunOutput) error {
	return eris.Wrap(e.store.SaveCalculation(ctx, out), "engine: save calculation")
}

// abort marks the run failed on a context detached from cancellation. A
// failed run has written no output rows.
func (e *Engine) abort(ctx context.Context, run model.CalculationRun, cause error, warns []model.Warning) {
	ctx = context.WithoutCancel(ctx)
	log := zap.L().With(zap.String("run_id", run.ID), zap.String("product_id", run.ProductID))

	if err := e.store.FailRun(ctx, run.ID, cause.Error(), warns); err != nil {
		log.Error("engine: failed to mark run failed", zap.Error(err))
	}
}
