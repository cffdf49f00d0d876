package native

import (
	"math"
	"sync"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"

	"reel/internal/engine"
)

// Output is the audio sink: it owns the speaker and the volume stage every
// streamer passes through. One Output serves the whole process; the speaker
// is initialised once, at the sample rate of the first stream, and later
// streams are resampled to it.
type Output struct {
	mu          sync.Mutex
	sampleRate  beep.SampleRate
	initialized bool
	volume      *effects.Volume
	level       float64
	muted       bool
}

// NewOutput creates an output at full volume.
func NewOutput() *Output {
	return &Output{level: 1.0}
}

// SetVolume sets the volume level (0.0 to 1.0).
func (o *Output) SetVolume(level float64) {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}

	o.mu.Lock()
	o.level = level
	muted := o.muted
	vol, ok := o.volume, o.initialized
	o.mu.Unlock()

	if ok && vol != nil {
		speaker.Lock()
		vol.Volume = levelToVolume(level)
		vol.Silent = level <= 0 || muted
		speaker.Unlock()
	}
}

// Volume returns the current volume level.
func (o *Output) Volume() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.level
}

// SetMuted silences or restores the output without losing the level.
func (o *Output) SetMuted(muted bool) {
	o.mu.Lock()
	o.muted = muted
	vol, ok := o.volume, o.initialized
	o.mu.Unlock()

	if ok && vol != nil {
		speaker.Lock()
		vol.Silent = muted
		speaker.Unlock()
	}
}

// Muted returns true if the output is muted.
func (o *Output) Muted() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.muted
}

// play replaces whatever the speaker is rendering with the given streamer,
// routed through a fresh volume stage.
func (o *Output) play(format beep.Format, s beep.Streamer) error {
	o.mu.Lock()
	if !o.initialized {
		bufLen := format.SampleRate.N(time100ms)
		if err := speaker.Init(format.SampleRate, bufLen); err != nil {
			o.mu.Unlock()
			return err
		}
		o.sampleRate = format.SampleRate
		o.initialized = true
	}

	if format.SampleRate != o.sampleRate {
		s = beep.Resample(4, format.SampleRate, o.sampleRate, s)
	}

	vol := &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   levelToVolume(o.level),
		Silent:   o.muted || o.level <= 0,
	}
	o.volume = vol
	o.mu.Unlock()

	speaker.Clear()
	speaker.Play(vol)
	return nil
}

// clear stops rendering and detaches the volume stage.
func (o *Output) clear() {
	o.mu.Lock()
	initialized := o.initialized
	o.volume = nil
	o.mu.Unlock()

	if initialized {
		speaker.Clear()
	}
}

// levelToVolume converts a 0.0-1.0 level to beep's logarithmic volume.
// Base 2: 0 means unchanged, -1 half, -2 quarter; -10 is effectively
// silent.
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}

// Verify Output satisfies the sink contract at compile time.
var _ engine.Sink = (*Output)(nil)
