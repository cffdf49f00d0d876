//go:build linux

// Package mpris exposes the playback runtime on D-Bus so desktop media
// controls (playerctl, GNOME, KDE) can drive it.
package mpris

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"

	"reel/internal/playback"
)

// Bridge connects a playback.Runtime to MPRIS over D-Bus.
type Bridge struct {
	server *server.Server
	unsub  func()
}

// New creates and starts an MPRIS bridge for the runtime.
func New(rt *playback.Runtime) (*Bridge, error) {
	pa := &playerAdapter{rt: rt, volume: 1.0}
	b := &Bridge{
		server: server.NewServer("reel", &rootAdapter{}, pa),
	}

	// Track the current URL and volume by watching the event stream; the
	// runtime state itself carries neither.
	b.unsub = rt.SubscribeToEvents(func(ev playback.Event) {
		switch ev := ev.(type) {
		case playback.LoadRequested:
			pa.setURL(ev.URL)
		case playback.SetVolumeRequested:
			pa.setVolume(ev.Volume)
		}
	})

	go func() {
		_ = b.server.Listen()
	}()

	return b, nil
}

// Close stops the bridge and releases D-Bus resources.
func (b *Bridge) Close() error {
	b.unsub()
	return b.server.Stop()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - app manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return "Reel", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file", "http", "https"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	return []string{
		"audio/mpeg", "audio/flac", "audio/wav", "audio/ogg",
		"application/vnd.apple.mpegurl", "application/dash+xml",
	}, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter.
type playerAdapter struct {
	rt *playback.Runtime

	mu     sync.Mutex
	url    string
	volume float64
}

func (p *playerAdapter) setURL(url string) {
	p.mu.Lock()
	p.url = url
	p.mu.Unlock()
}

func (p *playerAdapter) setVolume(v float64) {
	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()
}

func (p *playerAdapter) Next() error {
	return nil // Single source, no queue
}

func (p *playerAdapter) Previous() error {
	return nil // Single source, no queue
}

func (p *playerAdapter) Pause() error {
	p.rt.Dispatch(playback.PauseRequested{})
	return nil
}

func (p *playerAdapter) PlayPause() error {
	if p.rt.State().Status == playback.StatusPlaying {
		p.rt.Dispatch(playback.PauseRequested{})
	} else {
		p.rt.Dispatch(playback.PlayRequested{})
	}
	return nil
}

func (p *playerAdapter) Stop() error {
	p.rt.Dispatch(playback.PauseRequested{})
	return nil
}

func (p *playerAdapter) Play() error {
	p.rt.Dispatch(playback.PlayRequested{})
	return nil
}

func (p *playerAdapter) Seek(offset types.Microseconds) error {
	pos := p.rt.State().Position + time.Duration(offset)*time.Microsecond
	if pos < 0 {
		pos = 0
	}
	p.rt.Dispatch(playback.SeekRequested{Position: pos})
	return nil
}

func (p *playerAdapter) SetPosition(_ string, position types.Microseconds) error {
	p.rt.Dispatch(playback.SeekRequested{Position: time.Duration(position) * time.Microsecond})
	return nil
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(uri string) error {
	p.rt.Dispatch(playback.LoadRequested{URL: uri})
	return nil
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.rt.State().Status {
	case playback.StatusPlaying, playback.StatusBuffering, playback.StatusSeeking:
		return types.PlaybackStatusPlaying, nil
	case playback.StatusPaused, playback.StatusLoading:
		return types.PlaybackStatusPaused, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	p.mu.Lock()
	url := p.url
	p.mu.Unlock()
	if url == "" {
		return types.Metadata{}, nil
	}

	st := p.rt.State()
	return types.Metadata{
		TrackId: dbus.ObjectPath(formatTrackID(url)),
		Length:  types.Microseconds(st.Duration.Microseconds()),
		Title:   url,
	}, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume, nil
}

func (p *playerAdapter) SetVolume(v float64) error {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	p.rt.Dispatch(playback.SetVolumeRequested{Volume: v})
	return nil
}

func (p *playerAdapter) Position() (int64, error) {
	return p.rt.State().Position.Microseconds(), nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return true, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

func formatTrackID(url string) string {
	h := fnv.New64a()
	h.Write([]byte(url))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x", h.Sum64())
}
