// Package native plays local audio files through the beep speaker. It is
// the engine behind every URL the selector does not route to a streaming
// engine.
package native

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"

	"reel/internal/engine"
)

const (
	time100ms    = 100 * time.Millisecond
	tickInterval = 500 * time.Millisecond
)

// Adapter decodes and plays local files (mp3, flac, wav, ogg). Load
// decodes the whole header up front, so almost every failure is immediate;
// only rendering-time failures surface as engine Error events.
type Adapter struct {
	mu sync.Mutex

	out       *Output
	url       string
	file      io.Closer
	streamer  beep.StreamSeekCloser
	format    beep.Format
	ctrl      *beep.Ctrl
	paused    bool
	destroyed bool
	tickStop  chan struct{}

	nextID    int
	listeners map[int]func(engine.Event)
}

// New creates an unmounted native adapter.
func New() *Adapter {
	return &Adapter{listeners: make(map[int]func(engine.Event))}
}

// Mount binds the adapter to the audio output. Idempotent.
func (a *Adapter) Mount(sink engine.Sink) error {
	out, ok := sink.(*Output)
	if !ok {
		return fmt.Errorf("native: unsupported sink %T", sink)
	}

	a.mu.Lock()
	already := a.out == out
	a.out = out
	a.mu.Unlock()

	if !already {
		a.emit(engine.Mounted{})
	}
	return nil
}

// Load opens and decodes the file, replacing any current stream. Returns
// once decoding has been initiated; metadata is reported as an event.
func (a *Adapter) Load(_ context.Context, rawURL string) error {
	a.mu.Lock()
	out, destroyed := a.out, a.destroyed
	a.mu.Unlock()
	if destroyed {
		return fmt.Errorf("native: adapter destroyed")
	}
	if out == nil {
		return fmt.Errorf("native: load before mount")
	}

	path := toPath(rawURL)
	ext := strings.ToLower(filepath.Ext(path))

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("native: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch ext {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".flac":
		streamer, format, err = flac.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	case ".ogg":
		streamer, format, err = vorbis.Decode(f)
	default:
		f.Close()
		return fmt.Errorf("native: unsupported format %q", ext)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("native: decode %s: %w", filepath.Base(path), err)
	}

	a.stopPlayback()

	ctrl := &beep.Ctrl{Streamer: streamer, Paused: true}
	a.mu.Lock()
	a.url = rawURL
	a.file = f
	a.streamer = streamer
	a.format = format
	a.ctrl = ctrl
	a.paused = true
	a.tickStop = make(chan struct{})
	stop := a.tickStop
	a.mu.Unlock()

	if err := out.play(format, beep.Seq(ctrl, beep.Callback(a.onStreamDone))); err != nil {
		a.stopPlayback()
		return fmt.Errorf("native: speaker: %w", err)
	}

	go a.tickLoop(stop)

	a.emit(engine.MetadataLoaded{
		URL:      rawURL,
		Duration: format.SampleRate.D(streamer.Len()),
	})
	return nil
}

// Play unpauses rendering.
func (a *Adapter) Play(_ context.Context) error {
	a.mu.Lock()
	ctrl := a.ctrl
	a.mu.Unlock()
	if ctrl == nil {
		return fmt.Errorf("native: play before load")
	}

	speaker.Lock()
	ctrl.Paused = false
	speaker.Unlock()

	a.mu.Lock()
	a.paused = false
	a.mu.Unlock()

	a.emit(engine.Playing{Snapshot: a.snapshot()})
	return nil
}

// Pause pauses rendering, keeping the position.
func (a *Adapter) Pause(_ context.Context) error {
	a.mu.Lock()
	ctrl := a.ctrl
	a.mu.Unlock()
	if ctrl == nil {
		return fmt.Errorf("native: pause before load")
	}

	speaker.Lock()
	ctrl.Paused = true
	speaker.Unlock()

	a.mu.Lock()
	a.paused = true
	a.mu.Unlock()

	a.emit(engine.Paused{Snapshot: a.snapshot()})
	return nil
}

// Seek jumps to an absolute position.
func (a *Adapter) Seek(_ context.Context, pos time.Duration) error {
	a.mu.Lock()
	streamer, format := a.streamer, a.format
	a.mu.Unlock()
	if streamer == nil {
		return fmt.Errorf("native: seek before load")
	}

	if pos < 0 {
		pos = 0
	}
	sample := format.SampleRate.N(pos)
	if n := streamer.Len(); sample > n {
		sample = n
	}

	speaker.Lock()
	err := streamer.Seek(sample)
	speaker.Unlock()
	if err != nil {
		return fmt.Errorf("native: seek: %w", err)
	}

	a.emit(engine.Seeked{Snapshot: a.snapshot()})
	return nil
}

// Destroy stops playback and releases the decoder and file. Idempotent.
func (a *Adapter) Destroy(_ context.Context) error {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return nil
	}
	a.destroyed = true
	a.mu.Unlock()

	a.stopPlayback()

	a.mu.Lock()
	a.out = nil
	a.listeners = make(map[int]func(engine.Event))
	a.mu.Unlock()
	return nil
}

// Subscribe registers an event listener.
func (a *Adapter) Subscribe(fn func(engine.Event)) func() {
	a.mu.Lock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		delete(a.listeners, id)
		a.mu.Unlock()
	}
}

// onStreamDone runs on the speaker goroutine once the streamer is
// exhausted.
func (a *Adapter) onStreamDone() {
	a.mu.Lock()
	streamer := a.streamer
	url := a.url
	a.mu.Unlock()
	if streamer == nil {
		return
	}

	if err := streamer.Err(); err != nil {
		a.emit(engine.Error{
			Kind:    engine.ErrorMedia,
			Message: err.Error(),
			URL:     url,
			Cause:   err,
		})
		return
	}
	a.emit(engine.Ended{Snapshot: a.snapshot()})
}

// tickLoop reports timeline progress while the stream is playing.
func (a *Adapter) tickLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.mu.Lock()
			paused := a.paused || a.streamer == nil
			a.mu.Unlock()
			if !paused {
				a.emit(engine.TimeUpdated{Snapshot: a.snapshot()})
			}
		}
	}
}

// stopPlayback tears the current stream down without touching listeners.
func (a *Adapter) stopPlayback() {
	a.mu.Lock()
	out := a.out
	streamer, file := a.streamer, a.file
	stop := a.tickStop
	a.streamer = nil
	a.file = nil
	a.ctrl = nil
	a.tickStop = nil
	a.paused = true
	a.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if out != nil && streamer != nil {
		out.clear()
	}
	if streamer != nil {
		streamer.Close()
	}
	if file != nil {
		file.Close()
	}
}

func (a *Adapter) snapshot() engine.Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.streamer == nil {
		return engine.Snapshot{Rate: 1.0, Paused: true}
	}
	duration := a.format.SampleRate.D(a.streamer.Len())
	return engine.Snapshot{
		Position: a.format.SampleRate.D(a.streamer.Position()),
		Duration: duration,
		// Local files are fully seekable, so the whole timeline counts
		// as buffered.
		Buffered: []engine.TimeRange{{Start: 0, End: duration}},
		Rate:     1.0,
		Paused:   a.paused,
	}
}

func (a *Adapter) emit(ev engine.Event) {
	a.mu.Lock()
	fns := make([]func(engine.Event), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// toPath turns a media URL into a filesystem path. Accepts bare paths and
// file:// URLs.
func toPath(rawURL string) string {
	if strings.HasPrefix(strings.ToLower(rawURL), "file://") {
		if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
			return u.Path
		}
		return strings.TrimPrefix(rawURL, "file://")
	}
	return rawURL
}

// Verify Adapter satisfies the engine contract at compile time.
var _ engine.Adapter = (*Adapter)(nil)
