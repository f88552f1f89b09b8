// Package event provides a small in-process event dispatcher.
//
// Listeners registered with Listen run inline, in registration order,
// before Fire returns. Listeners registered with ListenAsync run on the
// bus's worker pool when one is set, otherwise on their own goroutine.
package event

import (
	"errors"
	"sync"

	"github.com/shashiranjanraj/bookstore/pkg/workerpool"
)

// Handler receives an event payload.
type Handler func(payload interface{})

// Bus maps event names to listeners. The zero value is ready to use.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	async    map[string][]Handler
	pool     *workerpool.Pool
}

// NewBus returns a bus whose async listeners run on pool; nil is allowed.
func NewBus(pool *workerpool.Pool) *Bus {
	return &Bus{pool: pool}
}

// Listen registers a handler that runs inside Fire.
func (b *Bus) Listen(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handlers == nil {
		b.handlers = map[string][]Handler{}
	}
	b.handlers[event] = append(b.handlers[event], handler)
}

// ListenAsync registers a handler that runs after Fire returns.
func (b *Bus) ListenAsync(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.async == nil {
		b.async = map[string][]Handler{}
	}
	b.async[event] = append(b.async[event], handler)
}

func (b *Bus) snapshot(event string) (inline, deferred []Handler) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	inline = append([]Handler(nil), b.handlers[event]...)
	deferred = append([]Handler(nil), b.async[event]...)
	return inline, deferred
}

// Fire dispatches an event. A nil Bus drops it.
func (b *Bus) Fire(event string, payload interface{}) {
	if b == nil {
		return
	}

	inline, deferred := b.snapshot(event)
	for _, h := range inline {
		h(payload)
	}
	for _, h := range deferred {
		b.dispatch(h, payload)
	}
}

// dispatch queues h; a full pool runs it inline, a closed one drops it.
func (b *Bus) dispatch(h Handler, payload interface{}) {
	if b.pool == nil {
		go h(payload)
		return
	}

	err := b.pool.Submit(func() { h(payload) })
	if errors.Is(err, workerpool.ErrPoolFull) {
		h(payload)
	}
}
