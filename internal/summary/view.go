package summary

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"riepilogo/internal/bus"
	"riepilogo/internal/clock"
	"riepilogo/internal/log"
)

// Phase is the lifecycle position of a View.
type Phase int

const (
	Idle Phase = iota
	Loading
	Ready
	Error
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

var (
	ErrViewClosed = errors.New("summary view closed")
	ErrNotFailed  = errors.New("summary view is not in error")
)

// State is an immutable picture of a View. While Loading after a previous
// success, Data still holds the last Ready snapshot.
type State struct {
	Phase      Phase
	Data       *Snapshot
	Err        error
	Refreshing bool
	Generation uint64
	UpdatedAt  time.Time
}

// Subscriber is the part of the bus a View needs.
type Subscriber interface {
	Subscribe(fn bus.Callback) *bus.Subscription
}

// View keeps one summary current. Every invalidation bumps a generation
// token; while a recompute is in flight later invalidations only bump the
// token, and a finished recompute whose token is stale is thrown away and
// followed by exactly one more recompute.
type View struct {
	params Params
	source Source
	bus    Subscriber
	clock  clock.Clock
	logger *log.Logger

	mu        sync.Mutex
	ctx       context.Context
	state     State
	gen       uint64
	inFlight  bool
	idle      chan struct{}
	sub       *bus.Subscription
	closed    bool
	listeners []func(State)
	// published counts states handed to listeners, guarded by mu.
	published uint64

	// delivered counts states whose listeners have returned, guarded by
	// notifyMu. Deliveries run strictly in publish order.
	notifyMu   sync.Mutex
	notifyCond *sync.Cond
	delivered  uint64
}

type ViewOption func(*View)

func WithViewClock(c clock.Clock) ViewOption {
	return func(v *View) { v.clock = c }
}

func WithViewLogger(l *log.Logger) ViewOption {
	return func(v *View) { v.logger = l.WithComponent(log.ComponentSummary) }
}

func NewView(p Params, src Source, b Subscriber, opts ...ViewOption) *View {
	v := &View{
		params: p,
		source: src,
		bus:    b,
		clock:  clock.NewReal(),
		logger: log.Discard(),
	}
	v.notifyCond = sync.NewCond(&v.notifyMu)
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *View) Params() Params {
	return v.params
}

// State returns the current state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// OnChange registers fn to receive every subsequent state. Listeners run in
// state order with no View lock held, so they may call State. They must not
// change the View (Refresh, Retry, Mount) from inside the callback.
func (v *View) OnChange(fn func(State)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners = append(v.listeners, fn)
}

// Mount subscribes to invalidations and starts the first load. Loads
// outlive ctx's cancellation but keep its values. Mounting twice is a no-op.
func (v *View) Mount(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	if v.sub != nil {
		v.mu.Unlock()
		return nil
	}
	v.ctx = context.WithoutCancel(ctx)
	v.sub = v.bus.Subscribe(func(context.Context) error {
		v.schedule(false)
		return nil
	})
	v.mu.Unlock()

	v.logger.DebugContext(ctx, "Summary view mounted", log.FieldView, v.params.Key())
	v.schedule(false)
	return nil
}

// Refresh recomputes like an invalidation but flags the state as Refreshing.
func (v *View) Refresh() error {
	v.mu.Lock()
	closed, mounted := v.closed, v.sub != nil
	v.mu.Unlock()
	if closed {
		return ErrViewClosed
	}
	if !mounted {
		return nil
	}
	v.schedule(true)
	return nil
}

// Retry restarts the view from Idle after a failed load.
func (v *View) Retry(ctx context.Context) error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrViewClosed
	}
	if v.state.Phase != Error {
		v.mu.Unlock()
		return ErrNotFailed
	}
	if v.sub != nil {
		v.sub.Unsubscribe()
		v.sub = nil
	}
	v.publishLocked(State{Phase: Idle, Generation: v.gen, UpdatedAt: v.clock.Now()})

	return v.Mount(ctx)
}

// Close unsubscribes at once. A recompute still running is discarded when it
// finishes. Close is idempotent.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	if v.sub != nil {
		v.sub.Unsubscribe()
		v.sub = nil
	}
	v.logger.Debug("Summary view closed", log.FieldView, v.params.Key())
}

// Wait blocks until no recompute is in flight or ctx is done.
func (v *View) Wait(ctx context.Context) error {
	v.mu.Lock()
	if !v.inFlight {
		v.mu.Unlock()
		return nil
	}
	idle := v.idle
	v.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (v *View) schedule(refreshing bool) {
	v.mu.Lock()
	if v.closed || v.sub == nil {
		v.mu.Unlock()
		return
	}
	v.gen++
	token := v.gen

	next := v.state
	next.Phase = Loading
	next.Err = nil
	next.Refreshing = refreshing
	next.Generation = token

	start := !v.inFlight
	if start {
		v.inFlight = true
		v.idle = make(chan struct{})
	}
	v.publishLocked(next)

	if start {
		go v.run(token)
	}
}

func (v *View) run(token uint64) {
	for {
		v.mu.Lock()
		ctx := v.ctx
		v.mu.Unlock()

		started := time.Now()
		snap, err := v.source.Load(ctx, v.params)

		v.mu.Lock()
		if v.closed || v.sub == nil {
			close(v.finishLocked())
			v.mu.Unlock()
			v.logger.Debug("Discarding recompute of unmounted view",
				log.FieldView, v.params.Key(),
				log.FieldGeneration, token)
			return
		}
		if token != v.gen {
			v.logger.Debug("Discarding stale recompute",
				log.FieldView, v.params.Key(),
				log.FieldGeneration, token,
				"latest", v.gen)
			token = v.gen
			v.mu.Unlock()
			continue
		}

		next := State{
			Generation: token,
			UpdatedAt:  v.clock.Now(),
			Data:       v.state.Data,
		}
		if err != nil {
			next.Phase = Error
			next.Err = err
			v.logger.Warn("Summary recompute failed",
				log.FieldView, v.params.Key(),
				log.FieldGeneration, token,
				log.FieldError, err)
		} else {
			next.Phase = Ready
			next.Data = snap
			v.logger.Debug("Summary recomputed",
				log.FieldView, v.params.Key(),
				log.FieldGeneration, token,
				log.FieldDuration, time.Since(started).Milliseconds())
		}
		idle := v.finishLocked()
		v.publishLocked(next)
		close(idle)
		return
	}
}

// finishLocked marks the view idle and returns the channel to close once
// waiters may observe the result. v.mu must be held.
func (v *View) finishLocked() chan struct{} {
	v.inFlight = false
	idle := v.idle
	v.idle = nil
	return idle
}

// publishLocked stores s and notifies listeners once every earlier state has
// been delivered. It is entered with v.mu held and returns with it released,
// after its own listeners returned.
func (v *View) publishLocked(s State) {
	v.state = s
	seq := v.published
	v.published++
	listeners := append([]func(State){}, v.listeners...)
	v.mu.Unlock()

	v.notifyMu.Lock()
	for v.delivered != seq {
		v.notifyCond.Wait()
	}
	v.notifyMu.Unlock()

	defer func() {
		v.notifyMu.Lock()
		v.delivered++
		v.notifyCond.Broadcast()
		v.notifyMu.Unlock()
	}()
	for _, fn := range listeners {
		fn(s)
	}
}
