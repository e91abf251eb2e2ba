// Package livecalc serves per-unit results from the live process-database
// calculation service, cached per organization and process.
package livecalc

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/sells-group/impact-engine/internal/resilience"
	"github.com/sells-group/impact-engine/internal/waterfall"
	"github.com/sells-group/impact-engine/pkg/processdb"
)

// DefaultFetchTimeout bounds one shared call to the calculation service,
// retries included.
const DefaultFetchTimeout = time.Minute

// Options tunes a Service.
type Options struct {
	Method string
	TTL    time.Duration

	// FetchTimeout bounds a shared call. It is independent of any caller's
	// context. Default: DefaultFetchTimeout.
	FetchTimeout time.Duration

	// RatePerSecond <= 0 disables rate limiting.
	RatePerSecond float64
	Burst         int

	Retry            resilience.Policy
	BreakerThreshold int
	BreakerCooldown  time.Duration
}

// Service implements waterfall.LiveCalculator.
type Service struct {
	client       processdb.Client
	cache        Cache
	method       string
	ttl          time.Duration
	fetchTimeout time.Duration
	limiter      *rate.Limiter
	breaker      *resilience.Breaker
	retry        resilience.Policy
	group        singleflight.Group
	now          func() time.Time
}

// NewService creates a live calculation service. A nil cache disables caching.
func NewService(client processdb.Client, cache Cache, opts Options) *Service {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	fetchTimeout := opts.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}

	limit := rate.Inf
	burst := opts.Burst
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
		if burst <= 0 {
			burst = 1
		}
	}

	retry := opts.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.LogRetries("processdb")
	}

	return &Service{
		client:       client,
		cache:        cache,
		method:       opts.Method,
		ttl:          ttl,
		fetchTimeout: fetchTimeout,
		limiter:      rate.NewLimiter(limit, burst),
		breaker:      resilience.NewBreaker("processdb", opts.BreakerThreshold, opts.BreakerCooldown),
		retry:        retry,
		now:          time.Now,
	}
}

// Calculate returns the per-unit result for a process, serving fresh cache
// entries without calling the service. Concurrent misses for the same key
// share one call. The shared call runs detached from ctx and is bounded by
// the fetch timeout, so a canceled caller stops waiting without failing the
// others.
func (s *Service) Calculate(ctx context.Context, orgID, processID string) (*waterfall.LiveResult, error) {
	key := Key{OrgID: orgID, ProcessID: processID}

	if s.cache != nil {
		e, err := s.cache.Get(ctx, key)
		if err != nil {
			zap.L().Warn("livecalc: cache read failed", zap.String("key", key.String()), zap.Error(err))
		} else if e != nil && !e.IsExpired(s.now(), s.ttl) {
			r := e.Result
			return &r, nil
		}
	}

	ch := s.group.DoChan(key.String(), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fetch(fctx, key)
	})

	select {
	case <-ctx.Done():
		return nil, eris.Wrapf(ctx.Err(), "livecalc: calculate %s", processID)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			zap.L().Debug("livecalc: shared in-flight calculation", zap.String("key", key.String()))
		}
		r := res.Val.(waterfall.LiveResult)
		return &r, nil
	}
}

func (s *Service) fetch(ctx context.Context, key Key) (waterfall.LiveResult, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return waterfall.LiveResult{}, eris.Wrap(err, "livecalc: rate limit wait")
	}

	resp, err := resilience.Guard(ctx, s.breaker, func(ctx context.Context) (*processdb.CalculationResponse, error) {
		return resilience.Retry(ctx, s.retry, func(ctx context.Context) (*processdb.CalculationResponse, error) {
			resp, err := s.client.Calculate(ctx, processdb.CalculationRequest{
				ProcessID: key.ProcessID,
				Amount:    1,
				Method:    s.method,
			})
			var se *processdb.StatusError
			if errors.As(err, &se) && se.Temporary() {
				return nil, resilience.Transient(err, se.StatusCode)
			}
			return resp, err
		})
	})
	if err != nil {
		return waterfall.LiveResult{}, eris.Wrapf(err, "livecalc: calculate %s", key.ProcessID)
	}

	factors, unknown := toFactorSet(resp.Impacts)
	if len(unknown) > 0 {
		zap.L().Debug("livecalc: ignoring unmapped categories",
			zap.String("process", key.ProcessID),
			zap.Strings("categories", unknown),
		)
	}

	result := waterfall.LiveResult{
		OrgID:        key.OrgID,
		ProcessID:    key.ProcessID,
		Method:       resp.Method,
		Factors:      factors,
		CalculatedAt: s.now().UTC(),
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, key, Entry{Result: result, StoredAt: result.CalculatedAt}); err != nil {
			zap.L().Warn("livecalc: cache write failed", zap.String("key", key.String()), zap.Error(err))
		}
	}
	return result, nil
}
