package analytics

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go-safety/internal/daterange"
	"go-safety/internal/observability/metrics"
	"go-safety/internal/observability/tracing"
	"go-safety/internal/resultcache"
	"go-safety/internal/safetyrecord"
	"go-safety/internal/shared/apperror"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	MinTrendYear = 2020
	MaxTrendYear = 2030

	dashboardKey = "dashboard"
)

var ErrInvalidYear = apperror.New(
	apperror.CodeValidationFailed,
	"Validation failed",
	http.StatusBadRequest,
).WithDetails([]apperror.FieldError{{Field: "year", Message: "Year must be between 2020 and 2030"}})

// RecordSource is the read side of the record store.
//
//go:generate mockgen -source=analytics_service.go -destination=mock/analytics_service_mock.go -package=mock
type RecordSource interface {
	FindAll(ctx context.Context, filter safetyrecord.Filter) ([]safetyrecord.SafetyRecord, error)
}

type Service interface {
	Dashboard(ctx context.Context, q daterange.Query) (Dashboard, error)
	Aggregate(ctx context.Context, dim Dimension, q daterange.Query) (Report, error)
	MonthlyTrend(ctx context.Context, year int) (Report, error)
	DailyTrend(ctx context.Context, q daterange.Query, dense bool) (Report, error)
	Invalidate(ctx context.Context)
}

// Report is one aggregation as served to clients.
type Report struct {
	Dimension Dimension       `json:"dimension"`
	Range     daterange.Token `json:"range"`
	Start     *time.Time      `json:"start,omitempty"`
	End       *time.Time      `json:"end,omitempty"`
	Rows      any             `json:"rows"`
}

type Dashboard struct {
	Summary
	Range daterange.Token `json:"range"`
	Start *time.Time      `json:"start,omitempty"`
	End   *time.Time      `json:"end,omitempty"`
}

// cacheKey identifies one computed result: what was asked for and over which
// interval. Bounds are part of the key so two custom ranges never collide.
type cacheKey struct {
	token     daterange.Token
	dimension string
	start     int64
	end       int64
	year      int
	dense     bool
}

func (k cacheKey) String() string {
	return fmt.Sprintf("%s|%s|%d|%d|%d|%t", k.token, k.dimension, k.start, k.end, k.year, k.dense)
}

func newCacheKey(token daterange.Token, dimension string, rng *daterange.Range) cacheKey {
	k := cacheKey{token: token, dimension: dimension}
	if rng != nil {
		k.start = rng.Start.UnixNano()
		k.end = rng.End.UnixNano()
	}
	return k
}

type service struct {
	source RecordSource
	engine *Engine
	cache  *resultcache.Cache[cacheKey, any]
	sf     *singleflight.Group
	// generation bumps on every Invalidate. A computation stores its result
	// only if no bump happened since it started; see PutIf.
	generation atomic.Uint64
	loc        *time.Location
	now        func() time.Time
	logger     *zap.Logger
}

type Config struct {
	Location      *time.Location
	CacheTTL      time.Duration
	CacheCapacity int
	Now           func() time.Time
}

func NewService(source RecordSource, cfg Config, logger ...*zap.Logger) Service {
	l := zap.L().Named("analytics.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("analytics.service")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &service{
		source: source,
		engine: NewEngine(cfg.Now, cfg.Location),
		cache: resultcache.New[cacheKey, any](
			resultcache.WithCapacity(cfg.CacheCapacity),
			resultcache.WithTTL(cfg.CacheTTL),
			resultcache.WithClock(cfg.Now),
		),
		sf:     &singleflight.Group{},
		loc:    cfg.Location,
		now:    cfg.Now,
		logger: l,
	}
}

func (s *service) Dashboard(ctx context.Context, q daterange.Query) (Dashboard, error) {
	sel, err := q.Resolve(s.now().In(s.loc))
	if err != nil {
		return Dashboard{}, err
	}

	key := newCacheKey(sel.Token, dashboardKey, sel.Range)
	v, err := s.cached(ctx, key, sel.Range, func(records []safetyrecord.SafetyRecord) (any, error) {
		d := Dashboard{Summary: s.engine.Summarize(records, sel.Range), Range: sel.Token}
		if sel.Range != nil {
			d.Start, d.End = &sel.Range.Start, &sel.Range.End
		}
		return d, nil
	})
	if err != nil {
		return Dashboard{}, err
	}
	return v.(Dashboard), nil
}

func (s *service) Aggregate(ctx context.Context, dim Dimension, q daterange.Query) (Report, error) {
	if _, err := ParseDimension(string(dim)); err != nil {
		return Report{}, err
	}
	sel, err := q.Resolve(s.now().In(s.loc))
	if err != nil {
		return Report{}, err
	}
	return s.report(ctx, newCacheKey(sel.Token, string(dim), sel.Range), dim, sel)
}

func (s *service) MonthlyTrend(ctx context.Context, year int) (Report, error) {
	if year == 0 {
		year = s.now().In(s.loc).Year()
	}
	if year < MinTrendYear || year > MaxTrendYear {
		return Report{}, ErrInvalidYear
	}

	rng := daterange.YearRange(year, s.loc)
	sel := daterange.Selection{Token: daterange.Year, Range: &rng}
	key := newCacheKey(sel.Token, string(DimensionMonth), sel.Range)
	key.year = year
	return s.report(ctx, key, DimensionMonth, sel, WithYear(year))
}

// DailyTrend needs a bounded range; a day series over all time is refused.
func (s *service) DailyTrend(ctx context.Context, q daterange.Query, dense bool) (Report, error) {
	sel, err := q.Resolve(s.now().In(s.loc))
	if err != nil {
		return Report{}, err
	}
	if sel.Range == nil {
		return Report{}, daterange.ErrInvalidRange.WithDetails("daily trend needs a bounded range")
	}

	key := newCacheKey(sel.Token, string(DimensionDay), sel.Range)
	key.dense = dense
	var opts []Option
	if dense {
		opts = append(opts, WithDenseDays())
	}
	return s.report(ctx, key, DimensionDay, sel, opts...)
}

// Invalidate drops every cached result. Called after each committed write.
func (s *service) Invalidate(ctx context.Context) {
	s.generation.Add(1)
	s.cache.Invalidate()
	metrics.ObserveCacheInvalidation()
	s.logger.Debug("analytics cache invalidated")
}

func (s *service) report(
	ctx context.Context,
	key cacheKey,
	dim Dimension,
	sel daterange.Selection,
	opts ...Option,
) (Report, error) {
	v, err := s.cached(ctx, key, sel.Range, func(records []safetyrecord.SafetyRecord) (any, error) {
		res, err := s.engine.Aggregate(records, dim, sel.Range, opts...)
		if err != nil {
			return nil, err
		}
		rep := Report{Dimension: dim, Range: sel.Token, Rows: res.Rows()}
		if sel.Range != nil {
			rep.Start, rep.End = &sel.Range.Start, &sel.Range.End
		}
		return rep, nil
	})
	if err != nil {
		return Report{}, err
	}
	return v.(Report), nil
}

// cached serves key from the result cache or computes it once, however many
// callers ask at the same time. Each caller stops waiting when its own ctx
// ends; the shared computation runs detached from any single request.
func (s *service) cached(
	ctx context.Context,
	key cacheKey,
	rng *daterange.Range,
	compute func([]safetyrecord.SafetyRecord) (any, error),
) (any, error) {
	if v, ok := s.cache.Get(key); ok {
		metrics.ObserveCacheLookup(key.dimension, true)
		s.logger.Debug("analytics cache hit", zap.String("key", key.String()))
		return v, nil
	}
	metrics.ObserveCacheLookup(key.dimension, false)

	detached := context.WithoutCancel(ctx)
	ch := s.sf.DoChan(key.String(), func() (any, error) {
		gen := s.generation.Load()
		start := s.now()

		spanCtx, span := tracing.StartSpan(detached, "analytics.compute",
			attribute.String("analytics.dimension", key.dimension),
			attribute.String("analytics.range", string(key.token)),
		)
		defer span.End()

		records, err := s.source.FindAll(spanCtx, safetyrecord.Filter{Range: rng, SortBy: "date"})
		if err != nil {
			span.RecordError(err)
			s.logger.Error("analytics load records failed", zap.String("key", key.String()), zap.Error(err))
			return nil, err
		}
		span.SetAttributes(attribute.Int("analytics.records", len(records)))

		v, err := compute(records)
		if err != nil {
			return nil, err
		}

		stored := s.cache.PutIf(key, v, func() bool { return s.generation.Load() == gen })
		metrics.ObserveCompute(key.dimension, s.now().Sub(start))
		s.logger.Debug("analytics computed",
			zap.String("key", key.String()),
			zap.Int("records", len(records)),
			zap.Bool("cached", stored),
		)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug("analytics computation shared", zap.String("key", key.String()))
		}
		return res.Val, nil
	}
}
