package playback

import (
	"time"

	"reel/internal/engine"
)

// Effect is a side-effecting action demanded by a state transition. The
// reducer emits effects; the runtime executes them in emission order
// against the active adapter. Ordering is an invariant: later effects
// depend on earlier ones (a sink must be attached before a load is issued).
type Effect interface {
	isEffect()
}

// DestroyAdapter unsubscribes from and destroys the active adapter.
// Teardown failures are swallowed and logged: destruction always appears
// to succeed.
type DestroyAdapter struct{}

// CreateAdapter activates the configured adapter for the given type and
// subscribes the runtime to its event stream.
type CreateAdapter struct {
	Type engine.Type
	URL  string
}

// AttachSink mounts the stored sink onto the active adapter.
type AttachSink struct{}

// LoadSource forwards a load to the active adapter.
type LoadSource struct {
	URL string
}

// Play forwards a play to the active adapter.
type Play struct{}

// Pause forwards a pause to the active adapter.
type Pause struct{}

// Seek forwards an absolute seek to the active adapter.
type Seek struct {
	Position time.Duration
}

// SetVolume applies a volume level to the sink.
type SetVolume struct {
	Volume float64
}

// SetMuted applies a mute state to the sink.
type SetMuted struct {
	Muted bool
}

func (DestroyAdapter) isEffect() {}
func (CreateAdapter) isEffect()  {}
func (AttachSink) isEffect()     {}
func (LoadSource) isEffect()     {}
func (Play) isEffect()           {}
func (Pause) isEffect()          {}
func (Seek) isEffect()           {}
func (SetVolume) isEffect()      {}
func (SetMuted) isEffect()       {}
