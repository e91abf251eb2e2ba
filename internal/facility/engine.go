// Package facility allocates shared facility utility emissions to products.
package facility

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/impact-engine/internal/model"
)

// UtilityStore reads raw consumption records for a facility.
type UtilityStore interface {
	UtilityRecords(ctx context.Context, facilityID string, period model.ReportingPeriod) ([]model.UtilityRecord, error)
}

// Engine converts period utility totals into product-allocated emissions.
type Engine struct {
	store       UtilityStore
	concurrency int
	tracer      trace.Tracer
}

// NewEngine creates an attribution engine. concurrency bounds AttributeAll;
// values below 1 select 4.
func NewEngine(store UtilityStore, concurrency int) *Engine {
	if concurrency < 1 {
		concurrency = 4
	}
	return &Engine{
		store:       store,
		concurrency: concurrency,
		tracer:      otel.Tracer("github.com/sells-group/impact-engine/internal/facility"),
	}
}

// Attribute allocates one facility's period emissions to a product. It never
// fails: query errors degrade to a provisional zero allocation with a warning.
func (e *Engine) Attribute(ctx context.Context, alloc model.FacilityAllocation) (model.AllocationResult, []model.Warning) {
	res := model.AllocationResult{
		Allocation: alloc,
		Bucket:     bucketFor(alloc.Ownership),
		Status:     model.AllocationProvisional,
	}
	subject := alloc.FacilityID
	if alloc.FacilityName != "" {
		subject = alloc.FacilityName
	}

	if alloc.FacilityTotalVolume <= 0 {
		res.Skipped = true
		return res, []model.Warning{{
			Code:    model.WarnFacilityZeroVolume,
			Subject: subject,
			Message: "facility total volume is zero; allocation skipped",
		}}
	}

	var warns []model.Warning
	ratio := 0.0
	if alloc.ProductVolume > 0 {
		ratio = alloc.ProductVolume / alloc.FacilityTotalVolume
	}
	if ratio > 1 {
		warns = append(warns, model.Warning{
			Code:    model.WarnAllocationClamped,
			Subject: subject,
			Message: fmt.Sprintf("product volume %.2f exceeds facility volume %.2f; ratio clamped to 1", alloc.ProductVolume, alloc.FacilityTotalVolume),
		})
		ratio = 1
	}
	res.Ratio = ratio

	var totals Totals
	if e.store != nil {
		records, err := e.store.UtilityRecords(ctx, alloc.FacilityID, alloc.Period)
		if err != nil {
			zap.L().Warn("facility: utility query failed",
				zap.String("facility", alloc.FacilityID),
				zap.Error(err),
			)
			return res, append(warns, model.Warning{
				Code:    model.WarnFacilityQueryFailed,
				Subject: subject,
				Message: fmt.Sprintf("utility records unavailable: %v", err),
			})
		}
		totals = Summarize(inPeriod(records, alloc.Period))
	}

	res.FacilityScope1 = totals.Scope1
	res.FacilityScope2 = totals.Scope2
	res.FacilityWater = totals.Water
	res.FacilityWaste = totals.Waste
	res.Water = totals.Water * ratio
	res.Waste = totals.Waste * ratio

	switch res.Bucket {
	case model.BucketContractAllocation:
		res.Scope3 = totals.Emissions() * ratio
	default:
		res.Scope1 = totals.Scope1 * ratio
		res.Scope2 = totals.Scope2 * ratio
	}

	if totals.Emissions() != 0 {
		res.Status = model.AllocationVerified
	}
	return res, warns
}

// AttributeAll attributes every allocation concurrently. Results keep input
// order. The only error is context cancellation.
func (e *Engine) AttributeAll(ctx context.Context, allocs []model.FacilityAllocation) ([]model.AllocationResult, []model.Warning, error) {
	ctx, span := e.tracer.Start(ctx, "facility.AttributeAll", trace.WithAttributes(
		attribute.Int("facility.allocations", len(allocs)),
	))
	defer span.End()

	results := make([]model.AllocationResult, len(allocs))
	perAlloc := make([][]model.Warning, len(allocs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, a := range allocs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], perAlloc[i] = e.Attribute(gctx, a)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, eris.Wrap(err, "facility: attribute allocations")
	}

	var warns []model.Warning
	for _, w := range perAlloc {
		warns = append(warns, w...)
	}
	return results, warns, nil
}

func bucketFor(o model.Ownership) model.AllocationBucket {
	if o == model.OwnershipThirdParty {
		return model.BucketContractAllocation
	}
	return model.BucketProductionSite
}

// inPeriod drops records starting outside a bounded period.
func inPeriod(records []model.UtilityRecord, p model.ReportingPeriod) []model.UtilityRecord {
	if p.End.IsZero() {
		return records
	}
	out := make([]model.UtilityRecord, 0, len(records))
	for _, r := range records {
		if p.Contains(r.PeriodStart) {
			out = append(out, r)
		}
	}
	return out
}
