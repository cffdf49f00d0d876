package engine

import "time"

// Event is a notification originating from an active adapter. The runtime
// forwards every engine event through its dispatch loop, so the variants
// here are also playback events.
type Event interface {
	isEngineEvent()
}

// Mounted is emitted once the adapter is bound to its sink.
type Mounted struct{}

// MetadataLoaded is emitted when enough of the media has been read to know
// its duration and, for video, its dimensions.
type MetadataLoaded struct {
	URL      string
	Duration time.Duration
	Width    int
	Height   int
}

// Playing is emitted when the engine actually starts or resumes rendering.
type Playing struct {
	Snapshot Snapshot
}

// Paused is emitted when the engine confirms a pause.
type Paused struct {
	Snapshot Snapshot
}

// TimeUpdated is emitted periodically while the timeline advances.
type TimeUpdated struct {
	Snapshot Snapshot
}

// Waiting is emitted when playback stalls on an empty buffer.
type Waiting struct {
	Snapshot Snapshot
}

// Seeked is emitted once a seek has completed.
type Seeked struct {
	Snapshot Snapshot
}

// Ended is emitted when the media has played to completion.
type Ended struct {
	Snapshot Snapshot
}

// Error reports a terminal media failure. This is the only event that moves
// the runtime into its error state.
type Error struct {
	Kind    ErrorKind
	Message string
	URL     string
	Cause   error
}

func (Mounted) isEngineEvent()        {}
func (MetadataLoaded) isEngineEvent() {}
func (Playing) isEngineEvent()        {}
func (Paused) isEngineEvent()         {}
func (TimeUpdated) isEngineEvent()    {}
func (Waiting) isEngineEvent()        {}
func (Seeked) isEngineEvent()         {}
func (Ended) isEngineEvent()          {}
func (Error) isEngineEvent()          {}
