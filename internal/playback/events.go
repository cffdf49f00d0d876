package playback

import (
	"fmt"
	"time"

	"reel/internal/engine"
)

// Event is any value flowing through Runtime.Dispatch: an intent from the
// caller, a notification from the active engine (any engine.Event), or a
// core error raised by the runtime itself. The union is open, in the same
// way bubbletea messages are, so engine events pass through untranslated.
type Event interface{}

// Intents - caller-originated requests.

// LoadRequested asks the runtime to load a new media URL. The previous
// adapter, if any, is fully destroyed first (last-load-wins).
type LoadRequested struct {
	URL string
}

// PlayRequested asks the active engine to start or resume playback. The
// state does not change until the engine confirms with engine.Playing.
type PlayRequested struct{}

// PauseRequested asks the active engine to pause.
type PauseRequested struct{}

// SeekRequested asks the active engine to seek to an absolute position.
type SeekRequested struct {
	Position time.Duration
}

// SetVolumeRequested sets the sink volume (0.0 to 1.0).
type SetVolumeRequested struct {
	Volume float64
}

// SetMutedRequested mutes or unmutes the sink.
type SetMutedRequested struct {
	Muted bool
}

// Core errors - runtime-detected misuse or rejected adapter calls. They are
// delivered on the event stream, are recoverable, and never force a state
// transition.

// NoSink is raised when a load is requested before a sink was mounted.
type NoSink struct{}

// NoAdapter is raised when an operation needs an active adapter and none
// exists.
type NoAdapter struct {
	Op engine.Op
}

// AdapterFailure is raised when an adapter lifecycle call returns an error.
// Unlike engine.Error it does not move the player into the error state: a
// rejected call is an operational failure, not a terminal media failure.
type AdapterFailure struct {
	Op      engine.Op
	Message string
	Cause   error
}

func (f AdapterFailure) Error() string {
	return fmt.Sprintf("adapter %s failed: %s", f.Op, f.Message)
}

func (f AdapterFailure) Unwrap() error { return f.Cause }
