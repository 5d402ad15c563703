package events

import (
	"slices"
	"sync"
)

type Handler func(Event)

// Source is anything events can be subscribed to.
type Source interface {
	Listen(kind Kind, handler Handler) (unsubscribe func())
}

// Emitter fans events out to the handlers listening for their kind. Handlers
// run synchronously on the emitting goroutine, in subscription order.
type Emitter struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[Kind][]subscription
}

type subscription struct {
	id      uint64
	handler Handler
}

func (e *Emitter) Listen(kind Kind, handler Handler) func() {
	if handler == nil {
		return func() {}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.handlers == nil {
		e.handlers = map[Kind][]subscription{}
	}
	e.nextID++
	id := e.nextID
	e.handlers[kind] = append(e.handlers[kind], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(kind, id) })
	}
}

func (e *Emitter) remove(kind Kind, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.handlers[kind] = slices.DeleteFunc(e.handlers[kind], func(s subscription) bool {
		return s.id == id
	})
	if len(e.handlers[kind]) == 0 {
		delete(e.handlers, kind)
	}
}

func (e *Emitter) Emit(event Event) {
	if event == nil {
		return
	}

	e.mu.RLock()
	subscribers := slices.Clone(e.handlers[event.Kind()])
	e.mu.RUnlock()

	for _, s := range subscribers {
		s.handler(event)
	}
}

func (e *Emitter) ListenerCount(kind Kind) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[kind])
}
