// Package playback is the playback orchestration core: a deterministic
// state machine over a pure reducer, an effect interpreter that drives the
// active engine adapter, and a subscription hub for external listeners.
package playback

import (
	"fmt"
	"time"

	"reel/internal/engine"
)

// Status is the externally observable lifecycle state of the player.
//
// The machine moves through the statuses as follows:
//
//	Idle --Load--> Loading --Metadata--> Paused <--Play/Pause--> Playing
//	Playing --Waiting--> Buffering --resume--> Playing
//	Playing/Paused/Buffering --Seek--> Seeking --Seeked--> Playing or Paused
//	any --engine Error--> Error (terminal until the next Load)
//	Playing --engine Ended--> Ended
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusPlaying
	StatusPaused
	StatusBuffering
	StatusSeeking
	StatusEnded
	StatusError
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusLoading:
		return "Loading"
	case StatusPlaying:
		return "Playing"
	case StatusPaused:
		return "Paused"
	case StatusBuffering:
		return "Buffering"
	case StatusSeeking:
		return "Seeking"
	case StatusEnded:
		return "Ended"
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// MediaError describes a terminal engine failure.
type MediaError struct {
	Kind    engine.ErrorKind
	Message string
	Cause   error
}

func (e *MediaError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *MediaError) Unwrap() error { return e.Cause }

// State is the player's control state. Position and Duration are
// denormalized from the latest engine snapshot; Err is set only when
// Status is StatusError.
type State struct {
	Status   Status
	Position time.Duration
	Duration time.Duration
	Err      *MediaError
}

// IsError reports whether the player is in the terminal error state.
func (s State) IsError() bool { return s.Status == StatusError }

// Equal reports whether two states are observably identical. State
// listeners are notified only when this returns false.
func (s State) Equal(o State) bool {
	if s.Status != o.Status || s.Position != o.Position || s.Duration != o.Duration {
		return false
	}
	if (s.Err == nil) != (o.Err == nil) {
		return false
	}
	if s.Err != nil && (s.Err.Kind != o.Err.Kind || s.Err.Message != o.Err.Message) {
		return false
	}
	return true
}

// withSnapshot copies the denormalized metrics from an engine snapshot.
func (s State) withSnapshot(snap engine.Snapshot) State {
	s.Position = snap.Position
	s.Duration = snap.Duration
	return s
}
