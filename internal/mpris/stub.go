//go:build !linux

package mpris

import "reel/internal/playback"

// Bridge is a no-op on non-Linux platforms.
type Bridge struct{}

// New returns a no-op bridge on non-Linux platforms.
func New(_ *playback.Runtime) (*Bridge, error) {
	return &Bridge{}, nil
}

// Close is a no-op on non-Linux platforms.
func (b *Bridge) Close() error {
	return nil
}
