package playback

import "sync"

// registry is a mutable set of callback listeners with stable handles.
// Removal is deterministic: an unsubscribe function deletes exactly its own
// entry, is safe to call repeatedly, and never affects other listeners.
type registry[T any] struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func(T)
}

func newRegistry[T any]() *registry[T] {
	return &registry[T]{fns: make(map[int]func(T))}
}

// add registers a listener and returns its remove function.
func (r *registry[T]) add(fn func(T)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.fns[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.fns, id)
	}
}

// notify invokes every registered listener with v. Listeners are called
// outside the registry lock so they may subscribe or unsubscribe freely.
func (r *registry[T]) notify(v T) {
	r.mu.Lock()
	fns := make([]func(T), 0, len(r.fns))
	for _, fn := range r.fns {
		fns = append(fns, fn)
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}

// clear drops every listener. Outstanding unsubscribe functions stay safe
// to call.
func (r *registry[T]) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fns = make(map[int]func(T))
}

func (r *registry[T]) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fns)
}
