package engine

import (
	"context"
	"sync"
	"time"
)

// Mock is a scriptable Adapter for tests. It records every call and can be
// told to fail any operation. Emit pushes events to current subscribers the
// way a real engine would.
type Mock struct {
	mu sync.Mutex

	sink      Sink
	destroyed bool

	mountErr   error
	loadErr    error
	playErr    error
	pauseErr   error
	seekErr    error
	destroyErr error

	loadCalls    []string
	playCalls    int
	pauseCalls   int
	seekCalls    []time.Duration
	destroyCalls int

	nextID    int
	listeners map[int]func(Event)
}

// NewMock creates a mock adapter.
func NewMock() *Mock {
	return &Mock{listeners: make(map[int]func(Event))}
}

func (m *Mock) Mount(sink Sink) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mountErr != nil {
		return m.mountErr
	}
	m.sink = sink
	return nil
}

func (m *Mock) Load(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCalls = append(m.loadCalls, url)
	return m.loadErr
}

func (m *Mock) Play(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playCalls++
	return m.playErr
}

func (m *Mock) Pause(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseCalls++
	return m.pauseErr
}

func (m *Mock) Seek(_ context.Context, pos time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekCalls = append(m.seekCalls, pos)
	return m.seekErr
}

func (m *Mock) Destroy(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.destroyCalls++
	if m.destroyErr != nil {
		return m.destroyErr
	}
	m.destroyed = true
	m.sink = nil
	return nil
}

func (m *Mock) Subscribe(fn func(Event)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Emit delivers an event to every current subscriber.
func (m *Mock) Emit(ev Event) {
	m.mu.Lock()
	fns := make([]func(Event), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Test helpers

func (m *Mock) SetMountError(err error) { m.mu.Lock(); m.mountErr = err; m.mu.Unlock() }

func (m *Mock) SetLoadError(err error) { m.mu.Lock(); m.loadErr = err; m.mu.Unlock() }

func (m *Mock) SetPlayError(err error) { m.mu.Lock(); m.playErr = err; m.mu.Unlock() }

func (m *Mock) SetPauseError(err error) { m.mu.Lock(); m.pauseErr = err; m.mu.Unlock() }

func (m *Mock) SetSeekError(err error) { m.mu.Lock(); m.seekErr = err; m.mu.Unlock() }

func (m *Mock) SetDestroyError(err error) { m.mu.Lock(); m.destroyErr = err; m.mu.Unlock() }

func (m *Mock) LoadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loadCalls...)
}

func (m *Mock) PlayCalls() int { m.mu.Lock(); defer m.mu.Unlock(); return m.playCalls }

func (m *Mock) PauseCalls() int { m.mu.Lock(); defer m.mu.Unlock(); return m.pauseCalls }

func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seekCalls...)
}

func (m *Mock) DestroyCalls() int { m.mu.Lock(); defer m.mu.Unlock(); return m.destroyCalls }

func (m *Mock) Destroyed() bool { m.mu.Lock(); defer m.mu.Unlock(); return m.destroyed }

func (m *Mock) Mounted() bool { m.mu.Lock(); defer m.mu.Unlock(); return m.sink != nil }

func (m *Mock) SubscriberCount() int { m.mu.Lock(); defer m.mu.Unlock(); return len(m.listeners) }

// Verify Mock implements Adapter at compile time.
var _ Adapter = (*Mock)(nil)
