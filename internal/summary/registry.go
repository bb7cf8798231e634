package summary

import (
	"context"
	"sync"
	"time"

	"riepilogo/internal/cache"
	"riepilogo/internal/clock"
	"riepilogo/internal/log"
)

const (
	DefaultMaxViews    = 256
	DefaultViewIdleTTL = 30 * time.Minute
)

// Registry keeps one mounted View per distinct summary so repeated requests
// share a live, invalidation-driven result. It holds at most maxViews views;
// the least recently used one, or one idle for longer than the TTL, is
// closed and dropped.
type Registry struct {
	loader *Loader
	bus    Subscriber
	clock  clock.Clock
	logger *log.Logger

	maxViews int
	idleTTL  time.Duration

	mu     sync.Mutex
	views  *cache.LRUCache[*View]
	closed bool
}

type RegistryOption func(*Registry)

// WithMaxViews bounds the number of mounted views. n <= 0 keeps the default.
func WithMaxViews(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxViews = n
		}
	}
}

// WithViewIdleTTL closes views not requested for d. d <= 0 disables expiry.
func WithViewIdleTTL(d time.Duration) RegistryOption {
	return func(r *Registry) { r.idleTTL = d }
}

func NewRegistry(loader *Loader, b Subscriber, clk clock.Clock, logger *log.Logger, opts ...RegistryOption) *Registry {
	if clk == nil {
		clk = clock.NewReal()
	}
	r := &Registry{
		loader:   loader,
		bus:      b,
		clock:    clk,
		logger:   log.OrDiscard(logger).WithComponent(log.ComponentSummary),
		maxViews: DefaultMaxViews,
		idleTTL:  DefaultViewIdleTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.views = cache.NewLRUCache[*View](r.maxViews, r.idleTTL).
		WithClock(clk.Now).
		OnEvict(func(key string, v *View) {
			v.Close()
			r.logger.Debug("Summary view evicted", log.FieldView, key)
		})
	return r
}

// View returns the mounted view for p, mounting it on first use.
func (r *Registry) View(ctx context.Context, p Params) (*View, error) {
	p, err := r.loader.Resolve(p)
	if err != nil {
		return nil, err
	}
	key := p.Key()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, ErrViewClosed
	}
	if v, ok := r.views.Get(key); ok {
		r.views.Set(key, v)
		r.refreshIfDayChanged(v)
		return v, nil
	}

	v := NewView(p, r.loader, r.bus, WithViewClock(r.clock), WithViewLogger(r.logger))
	// Views outlive the request that created them.
	if err := v.Mount(context.Background()); err != nil {
		return nil, err
	}
	r.views.Set(key, v)
	r.logger.InfoContext(ctx, "Summary view registered", log.FieldView, key, "views", r.views.Size())
	return v, nil
}

// refreshIfDayChanged recomputes a view whose snapshot was taken on an
// earlier local day, since relative buckets like "today" have moved.
func (r *Registry) refreshIfDayChanged(v *View) {
	st := v.State()
	if st.Phase != Ready || st.Data == nil {
		return
	}
	today := r.loader.cal.Today(r.clock.Now())
	if r.loader.cal.Today(st.Data.ComputedAt).Equal(today.Time) {
		return
	}
	if err := v.Refresh(); err != nil {
		r.logger.Warn("Failed to refresh stale view", log.FieldView, v.Params().Key(), log.FieldError, err)
	}
}

// Len returns the number of mounted views.
func (r *Registry) Len() int {
	return r.views.Size()
}

// CleanExpired closes views idle for longer than the TTL. It lets a
// cache.Manager sweep the registry.
func (r *Registry) CleanExpired() int {
	return r.views.CleanExpired()
}

// Close unmounts every view.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.views.Purge()
	r.logger.Info("Summary views closed")
}
