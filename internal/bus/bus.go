// Package bus fans a payload-free "data changed" signal out to every
// subscribed consumer, synchronously and in registration order.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"riepilogo/internal/log"
)

var ErrClosed = errors.New("invalidation bus closed")

// Callback is invoked on every Publish. A returned error is logged, never propagated.
type Callback func(ctx context.Context) error

// Bus is an explicitly constructed invalidation bus. The zero value is not usable.
type Bus struct {
	logger *log.Logger

	mu     sync.Mutex
	nextID uint64
	subs   []*Subscription
	closed bool
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id   uint64
	fn   Callback
	bus  *Bus
	once sync.Once
}

func New(logger *log.Logger) *Bus {
	return &Bus{
		logger: log.OrDiscard(logger).WithComponent(log.ComponentBus),
	}
}

// Subscribe registers fn. After Close the returned handle is already cancelled
// and fn is never called.
func (b *Bus) Subscribe(fn Callback) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	s := &Subscription{id: b.nextID, fn: fn, bus: b}
	if b.closed || fn == nil {
		s.once.Do(func() {})
		return s
	}
	b.subs = append(b.subs, s)
	return s
}

// Unsubscribe removes the subscription. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.bus.remove(s.id)
	})
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish invokes every callback registered at call time. Faulty callbacks
// are logged and skipped. It returns ErrClosed after Close.
func (b *Bus) Publish(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	snapshot := make([]*Subscription, len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	b.logger.DebugContext(ctx, "Publishing invalidation", log.FieldSubscribers, len(snapshot))

	for _, s := range snapshot {
		if err := b.invoke(ctx, s); err != nil {
			b.logger.WarnContext(ctx, "Subscriber failed",
				log.FieldWarning, log.WarningSubscriberFault,
				"subscription", s.id,
				log.FieldError, err)
		}
	}
	return nil
}

func (b *Bus) invoke(ctx context.Context, s *Subscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.fn(ctx)
}

// Len returns the number of live subscriptions.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close drops every subscriber. It is safe to call more than once.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.subs = nil
	b.logger.Info("Invalidation bus closed")
}
