package playback

import (
	"reel/internal/engine"
)

// Env carries the two runtime facts transitions depend on. Passing them in
// keeps Reduce a pure function of its arguments.
type Env struct {
	HasSink    bool
	HasAdapter bool
}

// Result pairs the next state with the effects the transition demands.
// Raise holds core-error events the runtime must re-dispatch; it lets the
// reducer report misuse on the event stream without performing I/O.
type Result struct {
	Next    State
	Effects []Effect
	Raise   []Event
}

// unchanged is the no-op transition.
func unchanged(s State) Result { return Result{Next: s} }

// Reduce is the pure transition function of the player state machine.
// It performs no I/O and never touches an adapter.
func Reduce(s State, ev Event, env Env) Result {
	switch ev := ev.(type) {
	case LoadRequested:
		return reduceLoad(s, ev, env)

	case PlayRequested:
		// The state stays unchanged until the engine confirms with
		// engine.Playing.
		if s.Status == StatusPaused || s.Status == StatusLoading {
			return Result{Next: s, Effects: []Effect{Play{}}}
		}
		return unchanged(s)

	case PauseRequested:
		if s.Status == StatusPlaying {
			return Result{Next: s, Effects: []Effect{Pause{}}}
		}
		return unchanged(s)

	case SeekRequested:
		switch s.Status {
		case StatusPlaying, StatusPaused, StatusBuffering, StatusSeeking:
			next := s
			next.Status = StatusSeeking
			next.Position = ev.Position
			return Result{Next: next, Effects: []Effect{Seek{Position: ev.Position}}}
		}
		return unchanged(s)

	case SetVolumeRequested:
		return Result{Next: s, Effects: []Effect{SetVolume{Volume: ev.Volume}}}

	case SetMutedRequested:
		return Result{Next: s, Effects: []Effect{SetMuted{Muted: ev.Muted}}}

	case engine.Mounted:
		return unchanged(s)

	case engine.MetadataLoaded:
		if s.Status != StatusLoading {
			return unchanged(s)
		}
		return Result{Next: State{Status: StatusPaused, Duration: ev.Duration}}

	case engine.TimeUpdated:
		if s.Status == StatusIdle || s.Status == StatusError {
			return unchanged(s)
		}
		return Result{Next: s.withSnapshot(ev.Snapshot)}

	case engine.Playing:
		return reduceTransport(s, StatusPlaying, ev.Snapshot)

	case engine.Paused:
		return reduceTransport(s, StatusPaused, ev.Snapshot)

	case engine.Waiting:
		return reduceTransport(s, StatusBuffering, ev.Snapshot)

	case engine.Seeked:
		// Seeking returns to whichever transport state the engine reports.
		next := StatusPlaying
		if ev.Snapshot.Paused {
			next = StatusPaused
		}
		return reduceTransport(s, next, ev.Snapshot)

	case engine.Ended:
		return reduceTransport(s, StatusEnded, ev.Snapshot)

	case engine.Error:
		// The only path into StatusError.
		return Result{Next: State{
			Status:   StatusError,
			Position: s.Position,
			Duration: s.Duration,
			Err:      &MediaError{Kind: ev.Kind, Message: ev.Message, Cause: ev.Cause},
		}}

	case NoSink, NoAdapter, AdapterFailure:
		// Diagnostic events: visible to event subscribers, never a
		// transition. AdapterFailure in particular must not reach
		// StatusError - only engine.Error does.
		return unchanged(s)

	default:
		return unchanged(s)
	}
}

func reduceLoad(s State, ev LoadRequested, env Env) Result {
	if !env.HasSink {
		// Recoverable no-op: event only, no state change, no effects.
		return Result{Next: s, Raise: []Event{NoSink{}}}
	}

	effects := make([]Effect, 0, 4)
	if env.HasAdapter {
		// A stale engine must be fully destroyed and unsubscribed before
		// its replacement exists, or it would keep delivering events.
		effects = append(effects, DestroyAdapter{})
	}
	effects = append(effects,
		CreateAdapter{Type: engine.Select(ev.URL), URL: ev.URL},
		AttachSink{},
		LoadSource{URL: ev.URL},
	)
	return Result{Next: State{Status: StatusLoading}, Effects: effects}
}

// reduceTransport applies an engine-confirmed transport change. Engine
// events arriving in Idle are stray (no load ever happened); in Error the
// engine is already condemned and only a new load escapes.
func reduceTransport(s State, status Status, snap engine.Snapshot) Result {
	if s.Status == StatusIdle || s.Status == StatusError {
		return unchanged(s)
	}
	next := s.withSnapshot(snap)
	next.Status = status
	return Result{Next: next}
}
