package playback

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"reel/internal/engine"
)

// Options configures a Runtime.
type Options struct {
	// Adapters holds one pre-constructed adapter per engine type. The
	// runtime activates at most one of them at a time.
	Adapters map[engine.Type]engine.Adapter

	// OnDispatch, when set, is invoked with every event before it is
	// reduced. Diagnostic hook only.
	OnDispatch func(Event)

	// Logger receives teardown diagnostics. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Runtime is the playback façade: it owns the control state, interprets the
// effects emitted by the reducer against the active adapter, and fans state
// and event notifications out to subscribers.
//
// Dispatch is the sole event-injection entry point. Events are processed
// strictly in arrival order; the reduction and effect execution for one
// event never interleave with another. Adapter notifications re-enter
// through Dispatch like any other event.
type Runtime struct {
	adapters   map[engine.Type]engine.Adapter
	onDispatch func(Event)
	log        zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	sink       engine.Sink
	active     engine.Adapter
	activeType engine.Type
	unsub      func()
	state      State
	queue      []Event
	draining   bool
	destroyed  bool

	stateSubs *registry[State]
	eventSubs *registry[Event]
}

// New creates a runtime in the Idle state.
func New(opts Options) *Runtime {
	ctx, cancel := context.WithCancel(context.Background())

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	adapters := opts.Adapters
	if adapters == nil {
		adapters = make(map[engine.Type]engine.Adapter)
	}

	return &Runtime{
		adapters:   adapters,
		onDispatch: opts.OnDispatch,
		log:        logger,
		ctx:        ctx,
		cancel:     cancel,
		state:      State{Status: StatusIdle},
		stateSubs:  newRegistry[State](),
		eventSubs:  newRegistry[Event](),
	}
}

// Mount stores the sink adapters render to. If an adapter is already
// active it is attached immediately.
func (r *Runtime) Mount(sink engine.Sink) {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.sink = sink
	hasAdapter := r.active != nil
	r.mu.Unlock()

	if hasAdapter {
		r.execute(AttachSink{})
	}
}

// Dispatch injects an event. It returns once the event's effects have been
// issued - engine confirmation arrives later as separately dispatched
// events. Reentrant: events dispatched while one is being processed are
// queued and processed in order. Failures never escape Dispatch; every
// failure path resolves into a delivered event.
func (r *Runtime) Dispatch(ev Event) {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.queue = append(r.queue, ev)
	if r.draining {
		// Someone is already processing; they will pick this up.
		r.mu.Unlock()
		return
	}
	r.draining = true
	for len(r.queue) > 0 {
		next := r.queue[0]
		r.queue = r.queue[1:]
		r.mu.Unlock()
		r.process(next)
		r.mu.Lock()
	}
	r.draining = false
	r.mu.Unlock()
}

// State returns the current control state.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// PlaybackType returns the active adapter's engine type, if any.
func (r *Runtime) PlaybackType() (engine.Type, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return "", false
	}
	return r.activeType, true
}

// SubscribeToState registers a listener invoked on every actual state
// change (status or denormalized fields), never on unrelated dispatches.
func (r *Runtime) SubscribeToState(fn func(State)) (unsubscribe func()) {
	return r.stateSubs.add(fn)
}

// SubscribeToEvents registers a listener invoked on every dispatched event:
// intents, engine events and core errors. A superset of the state stream,
// useful for diagnostics.
func (r *Runtime) SubscribeToEvents(fn func(Event)) (unsubscribe func()) {
	return r.eventSubs.add(fn)
}

// Destroy tears the runtime down: all subscribers are removed, the active
// adapter is destroyed and the sink reference cleared. Idempotent, and safe
// to call when no adapter was ever created.
func (r *Runtime) Destroy() {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.destroyed = true
	r.queue = nil
	r.mu.Unlock()

	r.destroyActive()

	r.mu.Lock()
	r.sink = nil
	r.mu.Unlock()

	r.stateSubs.clear()
	r.eventSubs.clear()
	r.cancel()
}

// process runs one event through hook, event fan-out, reduction,
// state-change fan-out and effect execution. Called only by the drainer.
func (r *Runtime) process(ev Event) {
	if r.onDispatch != nil {
		r.onDispatch(ev)
	}
	r.eventSubs.notify(ev)

	r.mu.Lock()
	cur := r.state
	env := Env{HasSink: r.sink != nil, HasAdapter: r.active != nil}
	r.mu.Unlock()

	res := Reduce(cur, ev, env)

	if !cur.Equal(res.Next) {
		r.mu.Lock()
		r.state = res.Next
		r.mu.Unlock()
		r.stateSubs.notify(res.Next)
	}

	for _, eff := range res.Effects {
		r.execute(eff)
	}
	for _, raised := range res.Raise {
		r.Dispatch(raised)
	}
}

// execute interprets a single effect against the active adapter or sink.
func (r *Runtime) execute(eff Effect) {
	switch eff := eff.(type) {
	case DestroyAdapter:
		r.destroyActive()

	case CreateAdapter:
		a, ok := r.adapters[eff.Type]
		if !ok {
			// The follow-up LoadSource raises NoAdapter; here we only log.
			r.log.Warn().Str("type", string(eff.Type)).Str("url", eff.URL).
				Msg("no adapter configured for engine type")
			return
		}
		unsub := a.Subscribe(func(ev engine.Event) { r.Dispatch(ev) })
		r.mu.Lock()
		r.active = a
		r.activeType = eff.Type
		r.unsub = unsub
		r.mu.Unlock()

	case AttachSink:
		r.mu.Lock()
		a, sink := r.active, r.sink
		r.mu.Unlock()
		if a == nil || sink == nil {
			return
		}
		if err := a.Mount(sink); err != nil {
			r.Dispatch(AdapterFailure{Op: engine.OpMount, Message: err.Error(), Cause: err})
		}

	case LoadSource:
		r.forward(engine.OpLoad, func(a engine.Adapter) error { return a.Load(r.ctx, eff.URL) })

	case Play:
		r.forward(engine.OpPlay, func(a engine.Adapter) error { return a.Play(r.ctx) })

	case Pause:
		r.forward(engine.OpPause, func(a engine.Adapter) error { return a.Pause(r.ctx) })

	case Seek:
		r.forward(engine.OpSeek, func(a engine.Adapter) error { return a.Seek(r.ctx, eff.Position) })

	case SetVolume:
		r.mu.Lock()
		sink := r.sink
		r.mu.Unlock()
		if sink != nil {
			sink.SetVolume(eff.Volume)
		}

	case SetMuted:
		r.mu.Lock()
		sink := r.sink
		r.mu.Unlock()
		if sink != nil {
			sink.SetMuted(eff.Muted)
		}
	}
}

// forward routes a transport effect to the active adapter, translating a
// rejected call into an AdapterFailure event on the same channel as
// everything else. The reducer stays pure; the failure stays visible.
func (r *Runtime) forward(op engine.Op, call func(engine.Adapter) error) {
	r.mu.Lock()
	a := r.active
	r.mu.Unlock()
	if a == nil {
		r.Dispatch(NoAdapter{Op: op})
		return
	}
	if err := call(a); err != nil {
		r.Dispatch(AdapterFailure{Op: op, Message: err.Error(), Cause: err})
	}
}

// destroyActive unsubscribes from and destroys the active adapter.
// Teardown failures are logged and swallowed: destruction must always
// appear to succeed.
func (r *Runtime) destroyActive() {
	r.mu.Lock()
	a, unsub := r.active, r.unsub
	r.active, r.unsub = nil, nil
	r.activeType = ""
	r.mu.Unlock()

	if a == nil {
		return
	}
	if unsub != nil {
		unsub()
	}
	if err := a.Destroy(r.ctx); err != nil {
		r.log.Warn().Err(err).Msg("adapter teardown failed")
	}
}
