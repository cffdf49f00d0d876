// Package engine defines the contract between the playback runtime and the
// concrete playback technologies (native audio, HLS, DASH). The runtime only
// ever talks to an Adapter; everything engine-specific stays behind it.
package engine

import (
	"context"
	"time"
)

// Type identifies a playback technology. At most one adapter instance is
// active at a time, keyed by its type.
type Type string

const (
	TypeNative Type = "native"
	TypeHLS    Type = "hls"
	TypeDASH   Type = "dash"
)

// Op names an adapter lifecycle call. Used to report which call failed.
type Op string

const (
	OpMount   Op = "mount"
	OpLoad    Op = "load"
	OpPlay    Op = "play"
	OpPause   Op = "pause"
	OpSeek    Op = "seek"
	OpDestroy Op = "destroy"
)

// ErrorKind classifies a terminal media failure reported by an engine.
type ErrorKind string

const (
	ErrorNotSupported ErrorKind = "not-supported"
	ErrorNetwork      ErrorKind = "network"
	ErrorMedia        ErrorKind = "media"
	ErrorUnknown      ErrorKind = "unknown"
)

// TimeRange is a buffered interval of the media timeline.
type TimeRange struct {
	Start time.Duration
	End   time.Duration
}

// Snapshot captures the transient playback metrics of an engine at the
// moment of a notable event. Immutable once produced.
type Snapshot struct {
	Position time.Duration
	Duration time.Duration
	Buffered []TimeRange
	Rate     float64
	Paused   bool
}

// Sink is the renderable target an adapter writes decoded output to.
// Exactly one adapter owns the sink at a time; volume and mute are
// sink-level properties, not engine-level ones.
type Sink interface {
	SetVolume(level float64)
	SetMuted(muted bool)
}

// Adapter is the uniform lifecycle wrapper around one playback technology.
//
// Load, Play, Pause and Seek return once the operation has been initiated;
// later failures arrive asynchronously as Error events. Only an immediate
// failure of the call itself is returned as an error.
//
// Media-level failures (decode errors, network stalls that kill playback)
// are never returned from these methods - they are reported as Error events
// so every subscriber sees them.
type Adapter interface {
	// Mount binds the adapter to a sink. Idempotent: mounting the same
	// sink again is a no-op.
	Mount(sink Sink) error

	// Load begins loading the given URL. Returns once loading has been
	// initiated.
	Load(ctx context.Context, url string) error

	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, pos time.Duration) error

	// Destroy releases all resources and detaches native listeners before
	// clearing internal references, so no callback can reach a torn-down
	// sink. Idempotent.
	Destroy(ctx context.Context) error

	// Subscribe registers a listener for engine events. The returned
	// function removes the listener; it is safe to call repeatedly and
	// never affects other subscribers.
	Subscribe(fn func(Event)) (unsubscribe func())
}
