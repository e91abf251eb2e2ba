package workflow

import (
	"context"
	"errors"

	"go.temporal.io/sdk/temporal"
	"go.uber.org/zap"

	"github.com/sells-group/impact-engine/internal/engine"
	"github.com/sells-group/impact-engine/internal/waterfall"
)

// Calculator runs a product calculation. *engine.Engine satisfies it.
type Calculator interface {
	Calculate(ctx context.Context, req engine.Request) (*engine.Result, error)
}

// Activities holds activity dependencies.
type Activities struct {
	Engine Calculator
}

// CalculateFootprint runs the engine for one product.
func (a *Activities) CalculateFootprint(ctx context.Context, req engine.Request) (*Summary, error) {
	res, err := a.Engine.Calculate(ctx, req)
	if err != nil {
		var mfe *waterfall.MissingFactorError
		if errors.As(err, &mfe) {
			zap.L().Warn("workflow: calculation has a missing factor",
				zap.String("product_id", req.ProductID),
				zap.String("material", mfe.MaterialName),
			)
			return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeMissingFactor, err)
		}
		return nil, err
	}
	return &Summary{
		RunID:        res.Run.ID,
		ProductID:    req.ProductID,
		TotalClimate: res.Aggregated.Total.Climate,
		Warnings:     len(res.Warnings),
		Conclusions:  res.Interpretation.Conclusions,
	}, nil
}
