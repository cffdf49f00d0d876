package mpv

import (
	"encoding/json"
	"time"

	"reel/internal/engine"
)

// tracker folds the raw mpv IPC stream into engine events. It mirrors just
// enough player state (position, duration, pause, dimensions) to build
// snapshots; all I/O stays in the adapter so this translation is testable
// on its own.
type tracker struct {
	url         string
	pendingMeta bool
	loaded      bool
	seeking     bool
	paused      bool
	stalled     bool
	pos         time.Duration
	duration    time.Duration
	cacheUntil  time.Duration
	width       int
	height      int
}

// reset prepares the tracker for a new load.
func (t *tracker) reset(url string) {
	*t = tracker{url: url, pendingMeta: true, paused: true}
}

// apply folds one IPC event and returns the engine events it implies.
func (t *tracker) apply(ev event) []engine.Event {
	switch ev.Event {
	case "property-change":
		return t.applyProperty(ev)

	case "file-loaded":
		t.loaded = true
		if !t.pendingMeta {
			return nil
		}
		// Metadata is reported once the duration is known; if mpv already
		// observed it, report now.
		if t.duration > 0 {
			return t.metadata()
		}
		return nil

	case "playback-restart":
		if t.seeking {
			t.seeking = false
			return []engine.Event{engine.Seeked{Snapshot: t.snapshot()}}
		}
		return nil

	case "end-file":
		t.loaded = false
		switch ev.Reason {
		case "eof":
			return []engine.Event{engine.Ended{Snapshot: t.snapshot()}}
		case "error":
			msg := ev.FileError
			if msg == "" {
				msg = "playback failed"
			}
			return []engine.Event{engine.Error{
				Kind:    engine.ErrorMedia,
				Message: msg,
				URL:     t.url,
			}}
		default:
			// "quit" and "stop" are self-inflicted.
			return nil
		}
	}
	return nil
}

func (t *tracker) applyProperty(ev event) []engine.Event {
	switch ev.Name {
	case "time-pos":
		var pos float64
		if json.Unmarshal(ev.Data, &pos) != nil {
			return nil // null while idle
		}
		t.pos = secs(pos)
		if t.loaded && !t.paused && !t.seeking {
			return []engine.Event{engine.TimeUpdated{Snapshot: t.snapshot()}}
		}

	case "duration":
		var d float64
		if json.Unmarshal(ev.Data, &d) != nil {
			return nil
		}
		t.duration = secs(d)
		if t.pendingMeta && t.loaded {
			return t.metadata()
		}

	case "width":
		var w int
		if json.Unmarshal(ev.Data, &w) == nil {
			t.width = w
		}

	case "height":
		var h int
		if json.Unmarshal(ev.Data, &h) == nil {
			t.height = h
		}

	case "pause":
		var paused bool
		if json.Unmarshal(ev.Data, &paused) != nil {
			return nil
		}
		changed := t.paused != paused
		t.paused = paused
		if !t.loaded || !changed {
			return nil
		}
		if paused {
			return []engine.Event{engine.Paused{Snapshot: t.snapshot()}}
		}
		return []engine.Event{engine.Playing{Snapshot: t.snapshot()}}

	case "paused-for-cache":
		var stalled bool
		if json.Unmarshal(ev.Data, &stalled) != nil {
			return nil
		}
		changed := t.stalled != stalled
		t.stalled = stalled
		if !t.loaded || t.paused || !changed {
			return nil
		}
		if stalled {
			return []engine.Event{engine.Waiting{Snapshot: t.snapshot()}}
		}
		// The cache refilled; playback resumed on its own.
		return []engine.Event{engine.Playing{Snapshot: t.snapshot()}}

	case "demuxer-cache-time":
		var until float64
		if json.Unmarshal(ev.Data, &until) == nil {
			t.cacheUntil = secs(until)
		}
	}
	return nil
}

func (t *tracker) metadata() []engine.Event {
	t.pendingMeta = false
	return []engine.Event{engine.MetadataLoaded{
		URL:      t.url,
		Duration: t.duration,
		Width:    t.width,
		Height:   t.height,
	}}
}

func (t *tracker) snapshot() engine.Snapshot {
	var buffered []engine.TimeRange
	if t.cacheUntil > t.pos {
		buffered = []engine.TimeRange{{Start: t.pos, End: t.cacheUntil}}
	}
	return engine.Snapshot{
		Position: t.pos,
		Duration: t.duration,
		Buffered: buffered,
		Rate:     1.0,
		Paused:   t.paused,
	}
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
