package core

import "sync"

// Readiness signals published during a pipeline run. Consumers must tolerate a
// signal firing zero or one time per run and must not assume delivery order
// across independently-subscribed signals.
const (
	SignalReady              = "ready"
	SignalAssetLoaded        = "asset-loaded"
	SignalMapReady           = "map-ready"
	SignalForestReady        = "forest-ready"
	SignalForestSceneReady   = "forest-scene-ready"
	SignalTreePositionsReady = "tree-positions-ready"
)

// Handler receives the payload a signal was fired with.
type Handler func(payload interface{})

type registeredHandler struct {
	id   uint64
	once bool
	fn   Handler
}

// Bus is a named-topic publish/subscribe hub. It is an explicitly owned value
// passed to every component that needs it; construct one per process (or per
// test) rather than sharing an ambient global.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	topics map[string][]registeredHandler
}

func NewBus() *Bus {
	return &Bus{
		topics: make(map[string][]registeredHandler),
	}
}

// On subscribes fn to the named signal and returns an unsubscribe func.
func (b *Bus) On(signal string, fn Handler) func() {
	return b.subscribe(signal, fn, false)
}

// Once subscribes fn for a single delivery.
func (b *Bus) Once(signal string, fn Handler) func() {
	return b.subscribe(signal, fn, true)
}

func (b *Bus) subscribe(signal string, fn Handler, once bool) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.topics[signal] = append(b.topics[signal], registeredHandler{id: id, once: once, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.removeLocked(signal, id)
	}
}

func (b *Bus) removeLocked(signal string, id uint64) {
	handlers := b.topics[signal]
	for i, h := range handlers {
		if h.id == id {
			b.topics[signal] = append(handlers[:i], handlers[i+1:]...)
			return
		}
	}
}

// Trigger fires the named signal, invoking every subscribed handler with the
// payload. Handlers registered with Once are removed before invocation, so a
// handler re-triggering the same signal cannot recurse into itself.
func (b *Bus) Trigger(signal string, payload interface{}) {
	b.mu.Lock()
	handlers := b.topics[signal]
	toInvoke := make([]Handler, 0, len(handlers))
	remaining := handlers[:0]
	for _, h := range handlers {
		toInvoke = append(toInvoke, h.fn)
		if !h.once {
			remaining = append(remaining, h)
		}
	}
	b.topics[signal] = remaining
	b.mu.Unlock()

	for _, fn := range toInvoke {
		fn(payload)
	}
}

// SubscriberCount reports how many handlers are registered for a signal.
func (b *Bus) SubscriberCount(signal string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.topics[signal])
}
