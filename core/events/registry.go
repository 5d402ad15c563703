package events

import "sync"

// Registry keeps at most one subscription per kind. Registering a kind again
// drops the previous subscription first, so re-attaching never doubles up
// handlers.
type Registry struct {
	mu            sync.Mutex
	subscriptions map[Kind]func()
}

func NewRegistry() *Registry {
	return &Registry{subscriptions: map[Kind]func(){}}
}

func (r *Registry) Register(source Source, kind Kind, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.unregisterIfPresent(kind)
	if source == nil || handler == nil {
		return
	}
	r.subscriptions[kind] = source.Listen(kind, handler)
}

func (r *Registry) Unregister(kind Kind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unregisterIfPresent(kind)
}

func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for kind := range r.subscriptions {
		r.unregisterIfPresent(kind)
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscriptions)
}

func (r *Registry) unregisterIfPresent(kind Kind) bool {
	if r.subscriptions == nil {
		r.subscriptions = map[Kind]func(){}
	}

	unsubscribe, ok := r.subscriptions[kind]
	if !ok {
		return false
	}
	delete(r.subscriptions, kind)
	if unsubscribe != nil {
		unsubscribe()
	}
	return true
}
