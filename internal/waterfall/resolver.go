// Package waterfall resolves per-material impact factors by consulting ordered
// data tiers and accepting the first tier that yields usable data.
package waterfall

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sells-group/impact-engine/internal/classify"
	"github.com/sells-group/impact-engine/internal/model"
)

// Request is a single material resolution.
type Request struct {
	Material   model.Material
	QuantityKg float64 // normalized with model.NormalizeQuantity
	OrgID      string
}

// Result is a resolved material with the audit trail of consulted tiers and
// any non-fatal warnings raised along the way.
type Result struct {
	Impact   model.ResolvedImpact `json:"impact"`
	Attempts []model.TierAttempt  `json:"attempts"`
	Warnings []model.Warning      `json:"warnings,omitempty"`
}

// hit is the winning tier's per-unit data.
type hit struct {
	factors    model.ImpactValues
	priority   int
	quality    model.QualityTag
	grade      model.QualityGrade
	confidence float64
	source     string
	hybrid     bool
	gwpSource  string
	nonGWP     string
}

type tier struct {
	name     string
	warnCode string
	eligible func(req Request, category model.CategoryType) bool
	lookup   func(ctx context.Context, req Request, category model.CategoryType) (*hit, []model.Warning, error)
}

// Resolver runs the tier cascade for one material at a time. It holds no
// per-material state and is safe for concurrent use.
type Resolver struct {
	cfg     *Config
	sources Sources
	tracer  trace.Tracer
}

// NewResolver creates a resolver. A nil cfg selects DefaultConfiguration.
func NewResolver(cfg *Config, sources Sources) *Resolver {
	if cfg == nil {
		cfg = DefaultConfiguration()
	}
	return &Resolver{
		cfg:     cfg,
		sources: sources,
		tracer:  otel.Tracer("github.com/sells-group/impact-engine/internal/waterfall"),
	}
}

// tiers returns the cascade in its fixed order.
func (r *Resolver) tiers() []tier {
	return []tier{
		{
			name:     TierSupplier,
			warnCode: model.WarnTierLookupFailed,
			eligible: func(req Request, _ model.CategoryType) bool {
				return r.sources.Suppliers != nil && req.Material.HasSupplierLink()
			},
			lookup: r.lookupSupplier,
		},
		{
			name:     TierRegionalHybrid,
			warnCode: model.WarnTierLookupFailed,
			eligible: func(_ Request, category model.CategoryType) bool {
				return r.sources.Mappings != nil && category.IsActivity()
			},
			lookup: r.lookupRegionalHybrid,
		},
		{
			name:     TierLive,
			warnCode: model.WarnLiveCalcFailed,
			eligible: func(req Request, _ model.CategoryType) bool {
				return r.sources.Live != nil && req.Material.HasProcessLink()
			},
			lookup: r.lookupLive,
		},
		{
			name:     TierStaging,
			warnCode: model.WarnTierLookupFailed,
			eligible: func(Request, model.CategoryType) bool { return r.sources.Factors != nil },
			lookup:   r.lookupStaging,
		},
		{
			name:     TierProxy,
			warnCode: model.WarnTierLookupFailed,
			eligible: func(Request, model.CategoryType) bool { return r.sources.Factors != nil },
			lookup:   r.lookupProxy,
		},
	}
}

// Resolve returns the impact record for one material, or a
// *MissingFactorError if no tier produced data. Lookup failures are recorded
// as warnings and resolution falls through to the next tier; only context
// cancellation aborts early.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "waterfall.Resolve", trace.WithAttributes(
		attribute.String("material.id", req.Material.ID),
		attribute.String("material.name", req.Material.Name),
	))
	defer span.End()

	category := classify.Material(req.Material)
	res := &Result{}

	for _, t := range r.tiers() {
		if r.cfg.GetTierConfig(t.name).Disabled || !t.eligible(req, category) {
			continue
		}

		h, warns, err := t.lookup(ctx, req, category)
		res.Warnings = append(res.Warnings, warns...)

		attempt := model.TierAttempt{Tier: t.name, Found: h != nil}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				span.SetStatus(codes.Error, "canceled")
				return nil, eris.Wrapf(ctxErr, "waterfall: resolve %s", req.Material.Name)
			}
			attempt.Error = err.Error()
			res.Warnings = append(res.Warnings, model.Warning{
				Code:    t.warnCode,
				Subject: req.Material.Name,
				Message: fmt.Sprintf("%s lookup failed: %v", t.name, err),
			})
			zap.L().Warn("waterfall: tier lookup failed",
				zap.String("tier", t.name),
				zap.String("material", req.Material.Name),
				zap.Error(err),
			)
		}
		if h != nil {
			attempt.Source = h.source
		}
		res.Attempts = append(res.Attempts, attempt)

		if h != nil {
			res.Impact = r.build(req, category, h)
			span.SetAttributes(
				attribute.String("waterfall.tier", t.name),
				attribute.Float64("waterfall.confidence", h.confidence),
			)
			zap.L().Debug("waterfall: material resolved",
				zap.String("material", req.Material.Name),
				zap.String("tier", t.name),
				zap.Float64("climate", res.Impact.Impacts.Climate),
			)
			return res, nil
		}
	}

	mfe := &MissingFactorError{
		MaterialID:   req.Material.ID,
		MaterialName: req.Material.Name,
		Attempts:     res.Attempts,
	}
	span.RecordError(mfe)
	span.SetStatus(codes.Error, "missing factor")
	return nil, mfe
}

// build scales the winning per-unit factors by the normalized quantity.
func (r *Resolver) build(req Request, category model.CategoryType, h *hit) model.ResolvedImpact {
	return model.ResolvedImpact{
		MaterialID:        req.Material.ID,
		MaterialName:      req.Material.Name,
		Category:          category,
		Stage:             req.Material.LifecycleStage(),
		QuantityKg:        req.QuantityKg,
		Impacts:           h.factors.Scale(req.QuantityKg),
		Priority:          h.priority,
		QualityTag:        h.quality,
		Grade:             h.grade,
		Confidence:        h.confidence,
		Source:            h.source,
		IsHybrid:          h.hybrid,
		GWPDataSource:     h.gwpSource,
		NonGWPDataSource:  h.nonGWP,
		SupplierProductID: req.Material.SupplierProductID,
		ProcessID:         req.Material.ProcessID,
	}
}

// applyDefaultSplit fills fossil/biogenic climate from the configured shares
// when the source carried no breakdown.
func (r *Resolver) applyDefaultSplit(v *model.ImpactValues, fs FactorSet) {
	if fs.HasSplit() || v.Climate == 0 {
		return
	}
	v.ClimateFossil = v.Climate * r.cfg.Defaults.FossilShare
	v.ClimateBiogenic = v.Climate * r.cfg.Defaults.BiogenicShare
}

func (r *Resolver) lookupSupplier(ctx context.Context, req Request, _ model.CategoryType) (*hit, []model.Warning, error) {
	id := req.Material.SupplierProductID
	subs := []struct {
		label string
		skip  bool
		fn    func() (*SupplierRecord, error)
	}{
		{"organization supplier catalogue", req.OrgID == "", func() (*SupplierRecord, error) {
			return r.sources.Suppliers.OrgSupplierProduct(ctx, req.OrgID, id)
		}},
		{"platform supplier catalogue", false, func() (*SupplierRecord, error) {
			return r.sources.Suppliers.PlatformSupplierProduct(ctx, id)
		}},
		{"supplier footprint", false, func() (*SupplierRecord, error) {
			return r.sources.Suppliers.SupplierFootprint(ctx, id)
		}},
	}

	var warns []model.Warning
	for _, sub := range subs {
		if sub.skip {
			continue
		}
		rec, err := sub.fn()
		if err != nil {
			if ctx.Err() != nil {
				return nil, warns, err
			}
			warns = append(warns, model.Warning{
				Code:    model.WarnTierLookupFailed,
				Subject: req.Material.Name,
				Message: fmt.Sprintf("%s lookup failed: %v", sub.label, err),
			})
			continue
		}
		if rec == nil || !rec.Factors.HasAny() {
			continue
		}

		source := rec.Source
		if source == "" {
			source = fmt.Sprintf("%s: %s", sub.label, rec.ProductID)
		}
		return &hit{
			factors:    rec.Factors.Values(),
			priority:   1,
			quality:    model.QualityPrimaryVerified,
			grade:      model.GradeHigh,
			confidence: r.cfg.SupplierConfidence(*rec),
			source:     source,
		}, warns, nil
	}
	return nil, warns, nil
}

func (r *Resolver) lookupRegionalHybrid(ctx context.Context, req Request, _ model.CategoryType) (*hit, []model.Warning, error) {
	m, err := r.sources.Mappings.RegionalMapping(ctx, req.Material.Name)
	if err != nil || m == nil {
		return nil, nil, err
	}

	var warns []model.Warning
	var proxy *ProcessProxy
	if m.ProxyID != "" {
		p, err := r.sources.Mappings.ProcessProxy(ctx, m.ProxyID)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil, nil, err
		case err != nil:
			warns = append(warns, model.Warning{
				Code:    model.WarnTierLookupFailed,
				Subject: req.Material.Name,
				Message: fmt.Sprintf("process proxy %s lookup failed: %v", m.ProxyID, err),
			})
		case p != nil && p.Factors.HasAny():
			proxy = p
		}
	}

	if proxy == nil && m.Climate == 0 {
		return nil, warns, nil
	}

	h := &hit{
		priority:   2,
		quality:    model.QualityRegionalStandard,
		grade:      model.GradeMedium,
		confidence: r.cfg.GetTierConfig(TierRegionalHybrid).Confidence,
		gwpSource:  m.Source,
	}

	if proxy == nil {
		warns = append(warns, model.Warning{
			Code:    model.WarnProxyMissing,
			Subject: req.Material.Name,
			Message: fmt.Sprintf("no process proxy for regional factor %s; non-climate impacts are zero", m.FactorName),
		})
		v := model.ImpactValues{Climate: m.Climate}
		r.applyDefaultSplit(&v, FactorSet{})
		h.factors = v
		h.source = m.Source
		return h, warns, nil
	}

	// Climate group comes from the regional factor; everything else from the proxy.
	v := proxy.Factors.Values()
	v.Climate = m.Climate
	v.ClimateLUC = 0
	v.ClimateFossil, v.ClimateBiogenic = 0, 0
	pf, pb := deref(proxy.Factors.ClimateFossil), deref(proxy.Factors.ClimateBiogenic)
	if proxy.Factors.HasSplit() && pf+pb > 0 {
		v.ClimateFossil = m.Climate * pf / (pf + pb)
		v.ClimateBiogenic = m.Climate * pb / (pf + pb)
	} else {
		r.applyDefaultSplit(&v, FactorSet{})
	}

	nonGWP := proxy.Source
	if nonGWP == "" {
		nonGWP = proxy.Name
	}
	h.factors = v
	h.hybrid = true
	h.nonGWP = nonGWP
	h.source = fmt.Sprintf("%s + %s", m.Source, nonGWP)
	return h, warns, nil
}

func (r *Resolver) lookupLive(ctx context.Context, req Request, _ model.CategoryType) (*hit, []model.Warning, error) {
	lr, err := r.sources.Live.Calculate(ctx, req.OrgID, req.Material.ProcessID)
	if err != nil || lr == nil || !lr.Factors.HasAny() {
		return nil, nil, err
	}
	v := lr.Factors.Values()
	r.applyDefaultSplit(&v, lr.Factors)
	return &hit{
		factors:    v,
		priority:   2,
		quality:    model.QualitySecondaryModelled,
		grade:      model.GradeMedium,
		confidence: r.cfg.GetTierConfig(TierLive).Confidence,
		source:     fmt.Sprintf("live calculation: %s (%s)", lr.ProcessID, lr.Method),
	}, nil, nil
}

func (r *Resolver) lookupStaging(ctx context.Context, req Request, _ model.CategoryType) (*hit, []model.Warning, error) {
	f, err := r.sources.Factors.StagingFactor(ctx, req.Material.Name)
	if err != nil || f == nil || !f.Factors.HasAny() {
		return nil, nil, err
	}
	tc := r.cfg.GetTierConfig(TierStaging)
	h := &hit{
		priority:   3,
		quality:    model.QualitySecondaryModelled,
		grade:      model.GradeMedium,
		confidence: tc.Confidence,
		source:     sourceOr(f.Source, "staging factor: "+f.Name),
	}
	if !f.Factors.HasSplit() {
		h.quality = model.QualitySecondaryEstimated
		h.confidence = tc.ConfidenceWithoutSplit
	}
	v := f.Factors.Values()
	r.applyDefaultSplit(&v, f.Factors)
	h.factors = v
	return h, nil, nil
}

func (r *Resolver) lookupProxy(ctx context.Context, req Request, category model.CategoryType) (*hit, []model.Warning, error) {
	f, err := r.sources.Factors.ProxyFactor(ctx, req.Material.Name)
	if err != nil || f == nil || !f.Factors.HasAny() {
		return nil, nil, err
	}
	v := f.Factors.Values()
	r.applyDefaultSplit(&v, f.Factors)
	return &hit{
		factors:    v,
		priority:   3,
		quality:    model.QualitySecondaryModelled,
		grade:      ProxyGrade(category),
		confidence: r.cfg.GetTierConfig(TierProxy).Confidence,
		source:     sourceOr(f.Source, "proxy dataset: "+f.Name),
	}, nil, nil
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func sourceOr(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
