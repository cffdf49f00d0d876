// Package mpv drives an external mpv process over its JSON IPC socket.
// One adapter instance serves one engine type (hls or dash); mpv does the
// fetching, demuxing and rendering, this package only translates transport
// calls and IPC notifications.
package mpv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"reel/internal/engine"
)

const (
	connectAttempts = 40
	connectDelay    = 250 * time.Millisecond
	quitGrace       = 2 * time.Second
)

var socketSeq atomic.Int64

// Options configures the spawned mpv process.
type Options struct {
	// Path to the mpv binary; "mpv" from $PATH when empty.
	Path string
	// ExtraArgs are appended to the command line.
	ExtraArgs []string
}

// Adapter is an engine.Adapter backed by an mpv process. The process is
// spawned on the first load and reused for subsequent ones.
type Adapter struct {
	typ  engine.Type
	opts Options

	mu         sync.Mutex
	sink       engine.Sink
	client     *client
	cmd        *exec.Cmd
	socketPath string
	track      tracker
	destroyed  bool

	nextID    int
	listeners map[int]func(engine.Event)
}

// New creates an adapter for the given engine type.
func New(typ engine.Type, opts Options) *Adapter {
	return &Adapter{
		typ:       typ,
		opts:      opts,
		listeners: make(map[int]func(engine.Event)),
	}
}

// Mount records the sink. mpv renders into its own window, so the sink is
// only kept for ownership bookkeeping. Idempotent.
func (a *Adapter) Mount(sink engine.Sink) error {
	a.mu.Lock()
	already := a.sink == sink
	a.sink = sink
	a.mu.Unlock()

	if !already {
		a.emit(engine.Mounted{})
	}
	return nil
}

// Load points mpv at a new URL, spawning the process on first use. The
// stream starts paused; Play releases it. Returns once the load command
// has been accepted.
func (a *Adapter) Load(ctx context.Context, url string) error {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return fmt.Errorf("mpv: adapter destroyed")
	}
	c := a.client
	a.mu.Unlock()

	if c == nil {
		var err error
		if c, err = a.spawn(ctx); err != nil {
			return err
		}
	}

	a.mu.Lock()
	a.track.reset(url)
	a.mu.Unlock()

	// Loading paused keeps the state machine in charge of when rendering
	// starts.
	if err := c.command("set_property", "pause", true); err != nil {
		return err
	}
	if err := c.command("loadfile", url, "replace"); err != nil {
		return err
	}
	return nil
}

// Play releases the paused stream. Confirmation arrives through the pause
// property observation.
func (a *Adapter) Play(_ context.Context) error {
	return a.setPause(false)
}

// Pause halts rendering, keeping the stream.
func (a *Adapter) Pause(_ context.Context) error {
	return a.setPause(true)
}

// Seek jumps to an absolute position. The Seeked event follows mpv's
// playback-restart.
func (a *Adapter) Seek(_ context.Context, pos time.Duration) error {
	a.mu.Lock()
	c := a.client
	a.mu.Unlock()
	if c == nil {
		return fmt.Errorf("mpv: seek before load")
	}

	a.mu.Lock()
	a.track.seeking = true
	a.mu.Unlock()

	if err := c.command("seek", pos.Seconds(), "absolute"); err != nil {
		// The seek never happened; the next playback-restart must not be
		// mistaken for its completion.
		a.mu.Lock()
		a.track.seeking = false
		a.mu.Unlock()
		return err
	}
	return nil
}

// Destroy quits mpv, closes the socket and reaps the process. Idempotent;
// never fails once teardown has begun.
func (a *Adapter) Destroy(_ context.Context) error {
	a.mu.Lock()
	if a.destroyed {
		a.mu.Unlock()
		return nil
	}
	a.destroyed = true
	c, cmd, socket := a.client, a.cmd, a.socketPath
	a.client, a.cmd = nil, nil
	a.listeners = make(map[int]func(engine.Event))
	a.mu.Unlock()

	if c != nil {
		_ = c.command("quit")
		c.close()
	}
	if cmd != nil {
		done := make(chan struct{})
		go func() { _ = cmd.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(quitGrace):
			_ = cmd.Process.Kill()
			<-done
		}
	}
	if socket != "" {
		_ = os.Remove(socket)
	}
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

// spawn starts mpv with an IPC socket, connects and begins observing the
// properties the tracker folds.
func (a *Adapter) spawn(ctx context.Context) (*client, error) {
	socket := filepath.Join(os.TempDir(),
		fmt.Sprintf("reel-mpv-%d-%d.sock", os.Getpid(), socketSeq.Add(1)))

	path := a.opts.Path
	if path == "" {
		path = "mpv"
	}
	args := append(buildArgs(socket), a.opts.ExtraArgs...)

	cmd := exec.Command(path, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("mpv: start %s: %w", path, err)
	}

	c := newClient(socket)
	connectCtx, cancel := context.WithTimeout(ctx, connectAttempts*connectDelay)
	defer cancel()
	if err := c.connect(connectCtx, connectAttempts, connectDelay); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return nil, fmt.Errorf("mpv: %w", err)
	}

	for i, prop := range observedProperties {
		if err := c.observe(i+1, prop); err != nil {
			c.close()
			_ = cmd.Process.Kill()
			_ = cmd.Wait()
			return nil, err
		}
	}

	a.mu.Lock()
	a.client = c
	a.cmd = cmd
	a.socketPath = socket
	a.mu.Unlock()

	go a.eventLoop(c)
	return c, nil
}

var observedProperties = []string{
	"time-pos",
	"duration",
	"pause",
	"paused-for-cache",
	"demuxer-cache-time",
	"width",
	"height",
	"eof-reached",
}

// buildArgs assembles the fixed mpv command line for a given socket.
func buildArgs(socket string) []string {
	return []string{
		"--no-terminal",
		"--idle=yes",
		"--keep-open=no",
		"--input-ipc-server=" + socket,
	}
}

// eventLoop folds IPC events into engine events until the socket dies.
func (a *Adapter) eventLoop(c *client) {
	for ev := range c.events {
		a.mu.Lock()
		out := a.track.apply(ev)
		a.mu.Unlock()
		for _, e := range out {
			a.emit(e)
		}
	}

	// Channel closed: mpv went away. If that was not a teardown, the
	// engine died under us.
	a.mu.Lock()
	destroyed := a.destroyed
	url := a.track.url
	a.mu.Unlock()
	if !destroyed {
		a.emit(engine.Error{
			Kind:    engine.ErrorUnknown,
			Message: "mpv process exited unexpectedly",
			URL:     url,
		})
	}
}

func (a *Adapter) setPause(paused bool) error {
	a.mu.Lock()
	c := a.client
	a.mu.Unlock()
	if c == nil {
		return fmt.Errorf("mpv: no stream loaded")
	}
	return c.command("set_property", "pause", paused)
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

// Verify Adapter satisfies the engine contract at compile time.
var _ engine.Adapter = (*Adapter)(nil)
