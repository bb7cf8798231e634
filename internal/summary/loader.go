package summary

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"riepilogo/internal/aggregate"
	"riepilogo/internal/bus"
	"riepilogo/internal/cache"
	"riepilogo/internal/calendar"
	"riepilogo/internal/clock"
	"riepilogo/internal/core"
	"riepilogo/internal/log"
	"riepilogo/internal/ranking"
	"riepilogo/internal/store"
)

// Source computes a snapshot. *Loader is the production implementation.
type Source interface {
	Load(ctx context.Context, p Params) (*Snapshot, error)
}

// Loader runs the calendar -> store -> engine -> ranking pipeline.
type Loader struct {
	reader  store.Reader
	cal     *calendar.Calendar
	engine  *aggregate.Engine
	clock   clock.Clock
	lookups cache.Cache[core.Lookups]
	logger  *log.Logger

	// epoch counts lookup purges. A fetch that started before a purge must
	// not repopulate the cache.
	cacheMu sync.Mutex
	epoch   uint64

	days    int
	topN    int
}

type LoaderOption func(*Loader)

// WithLookupCache keeps lookup tables between loads until the next invalidation.
func WithLookupCache(c cache.Cache[core.Lookups]) LoaderOption {
	return func(l *Loader) { l.lookups = c }
}

// WithDefaults sets the window length and ranking size used when Params leave them unset.
func WithDefaults(days, topN int) LoaderOption {
	return func(l *Loader) {
		l.days = days
		l.topN = topN
	}
}

func WithClock(c clock.Clock) LoaderOption {
	return func(l *Loader) { l.clock = c }
}

func NewLoader(r store.Reader, cal *calendar.Calendar, logger *log.Logger, opts ...LoaderOption) *Loader {
	logger = log.OrDiscard(logger).WithComponent(log.ComponentSummary)
	l := &Loader{
		reader: r,
		cal:    cal,
		engine: aggregate.New(cal.Location(), logger),
		clock:  clock.NewReal(),
		logger: logger,
		days:   DefaultDays,
		topN:   DefaultTopN,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Attach subscribes the loader to b so cached lookups are dropped on every
// change. Attach before mounting views so the purge runs first.
func (l *Loader) Attach(b *bus.Bus) *bus.Subscription {
	return b.Subscribe(func(ctx context.Context) error {
		l.InvalidateLookups()
		return nil
	})
}

// InvalidateLookups drops every cached lookup table.
func (l *Loader) InvalidateLookups() {
	if l.lookups == nil {
		return
	}
	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()
	l.epoch++
	l.lookups.Purge()
}

// Resolve fills p's defaults relative to the loader's clock and validates it.
func (l *Loader) Resolve(p Params) (Params, error) {
	p = p.WithDefaults(l.cal.Today(l.clock.Now()), l.days, l.topN)
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

func (l *Loader) Load(ctx context.Context, p Params) (*Snapshot, error) {
	start := time.Now()
	now := l.clock.Now()

	p, err := l.Resolve(p)
	if err != nil {
		return nil, err
	}

	current, previous := l.plan(p, now)
	currentRange := calendar.Span(current)
	fetchRange := calendar.Span(append(append([]core.Bucket{}, previous...), current...))

	var (
		records []core.TransactionRecord
		lookups core.Lookups
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = l.reader.Query(gctx, p.Owner, fetchRange)
		return err
	})
	g.Go(func() error {
		var err error
		lookups, err = l.loadLookups(gctx, p.Owner)
		return err
	})
	if err := g.Wait(); err != nil {
		if !errors.Is(err, store.ErrUnavailable) {
			err = fmt.Errorf("%w: %w", store.ErrUnavailable, err)
		}
		return nil, fmt.Errorf("load %s summary: %w", p.Kind, err)
	}

	results, err := l.engine.Aggregate(aggregate.Input{
		Owner:             p.Owner,
		Records:           records,
		Buckets:           current,
		Dimensions:        aggregate.DimAll,
		Lookups:           lookups,
		TopEstablishments: p.TopN,
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate current period: %w", err)
	}

	prevResults, err := l.engine.Aggregate(aggregate.Input{
		Owner:   p.Owner,
		Records: records,
		Buckets: previous,
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate previous period: %w", err)
	}

	snap := buildSnapshot(p, currentRange, results, prevResults, now)

	l.logger.DebugContext(ctx, "Summary computed",
		log.FieldOwner, string(p.Owner),
		log.FieldView, string(p.Kind),
		log.FieldRecordCount, len(records),
		log.FieldBucketCount, len(current),
		log.FieldDuration, time.Since(start).Milliseconds())

	return snap, nil
}

func (l *Loader) loadLookups(ctx context.Context, owner core.OwnerID) (core.Lookups, error) {
	if l.lookups == nil {
		return l.reader.Lookups(ctx, owner)
	}

	key := string(owner)
	l.cacheMu.Lock()
	ls, ok := l.lookups.Get(key)
	epoch := l.epoch
	l.cacheMu.Unlock()
	if ok {
		return ls, nil
	}

	ls, err := l.reader.Lookups(ctx, owner)
	if err != nil {
		return core.Lookups{}, err
	}

	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()
	if l.epoch == epoch {
		l.lookups.Set(key, ls)
	} else {
		l.logger.DebugContext(ctx, "Lookups changed during fetch, not caching", log.FieldOwner, key)
	}
	return ls, nil
}

// plan returns the buckets of the period and of the period it is compared with.
func (l *Loader) plan(p Params, now time.Time) (current, previous []core.Bucket) {
	switch p.Kind {
	case LastDays:
		return l.cal.DailyWindow(p.Days, now), l.cal.PreviousDailyWindow(p.Days, now)
	case Monthly:
		return l.cal.MonthBuckets(p.Year, now), l.cal.MonthBuckets(p.Year-1, now)
	case Annual:
		n := p.ToYear - p.FromYear + 1
		return l.cal.YearBuckets(p.FromYear, p.ToYear, now), l.cal.YearBuckets(p.FromYear-n, p.FromYear-1, now)
	}
	return nil, nil
}

func buildSnapshot(p Params, rng calendar.DateRange, results, prevResults []core.AggregateResult, now time.Time) *Snapshot {
	total, count := aggregate.Totals(results)
	prevTotal, _ := aggregate.Totals(prevResults)

	return &Snapshot{
		Params:            p,
		Range:             rng,
		Buckets:           results,
		Total:             total,
		Count:             count,
		TopCategories:     ranking.TopN(aggregate.Merge(results, aggregate.ByCategory), p.TopN),
		TopPaymentMethods: ranking.TopN(aggregate.Merge(results, aggregate.ByPaymentMethod), p.TopN),
		TopEstablishments: ranking.TopN(aggregate.Merge(results, aggregate.ByEstablishment), p.TopN),
		CategoryShares:    ranking.Shares(aggregate.Merge(results, aggregate.ByCategory)),
		PreviousTotal:     prevTotal,
		Delta:             ranking.PeriodDelta(total, prevTotal),
		ComputedAt:        now,
	}
}
