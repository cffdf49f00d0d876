package playback

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reel/internal/engine"
)

type fakeSink struct {
	volume float64
	muted  bool
}

func (s *fakeSink) SetVolume(level float64) { s.volume = level }
func (s *fakeSink) SetMuted(muted bool)     { s.muted = muted }

func newTestRuntime(t *testing.T) (*Runtime, *engine.Mock, *engine.Mock) {
	t.Helper()
	native := engine.NewMock()
	hls := engine.NewMock()
	rt := New(Options{Adapters: map[engine.Type]engine.Adapter{
		engine.TypeNative: native,
		engine.TypeHLS:    hls,
	}})
	t.Cleanup(rt.Destroy)
	return rt, native, hls
}

func TestRuntime_InitialState(t *testing.T) {
	rt, _, _ := newTestRuntime(t)

	require.Equal(t, StatusIdle, rt.State().Status)
	_, ok := rt.PlaybackType()
	assert.False(t, ok, "playback type reported before any load")
}

func TestRuntime_LoadBeforeMount(t *testing.T) {
	rt, native, _ := newTestRuntime(t)

	var events []Event
	rt.SubscribeToEvents(func(ev Event) { events = append(events, ev) })

	rt.Dispatch(LoadRequested{URL: "video.mp4"})

	require.Equal(t, StatusIdle, rt.State().Status, "state must not change without a sink")
	assert.Empty(t, native.LoadCalls(), "adapter touched without a sink")

	var sawNoSink bool
	for _, ev := range events {
		if _, ok := ev.(NoSink); ok {
			sawNoSink = true
		}
	}
	assert.True(t, sawNoSink, "NoSink event not delivered, got %v", events)
}

func TestRuntime_LoadSelectsAdapter(t *testing.T) {
	tests := []struct {
		url  string
		want engine.Type
	}{
		{"video.mp4", engine.TypeNative},
		{"http://cdn/stream.m3u8", engine.TypeHLS},
	}
	for _, tt := range tests {
		rt, native, hls := newTestRuntime(t)
		rt.Mount(&fakeSink{})
		rt.Dispatch(LoadRequested{URL: tt.url})

		typ, ok := rt.PlaybackType()
		require.True(t, ok)
		assert.Equal(t, tt.want, typ)
		assert.Equal(t, StatusLoading, rt.State().Status)

		active := native
		if tt.want == engine.TypeHLS {
			active = hls
		}
		assert.True(t, active.Mounted(), "sink not attached before load")
		assert.Equal(t, []string{tt.url}, active.LoadCalls())
	}
}

func TestRuntime_EngineEventsDriveState(t *testing.T) {
	rt, native, _ := newTestRuntime(t)
	rt.Mount(&fakeSink{})
	rt.Dispatch(LoadRequested{URL: "track.mp3"})

	native.Emit(engine.MetadataLoaded{URL: "track.mp3", Duration: 3 * time.Minute})
	require.Equal(t, StatusPaused, rt.State().Status)
	require.Equal(t, 3*time.Minute, rt.State().Duration)

	rt.Dispatch(PlayRequested{})
	assert.Equal(t, 1, native.PlayCalls())
	assert.Equal(t, StatusPaused, rt.State().Status, "state changed before engine confirmed")

	native.Emit(engine.Playing{Snapshot: engine.Snapshot{Duration: 3 * time.Minute}})
	assert.Equal(t, StatusPlaying, rt.State().Status)

	native.Emit(engine.Waiting{Snapshot: engine.Snapshot{Position: time.Minute, Duration: 3 * time.Minute}})
	assert.Equal(t, StatusBuffering, rt.State().Status)

	native.Emit(engine.Ended{Snapshot: engine.Snapshot{Position: 3 * time.Minute, Duration: 3 * time.Minute}})
	assert.Equal(t, StatusEnded, rt.State().Status)
}

func TestRuntime_SeekForwardsExactPosition(t *testing.T) {
	rt, native, _ := newTestRuntime(t)
	rt.Mount(&fakeSink{})
	rt.Dispatch(LoadRequested{URL: "track.mp3"})
	native.Emit(engine.MetadataLoaded{URL: "track.mp3", Duration: 2 * time.Minute})

	target := 42500 * time.Millisecond
	rt.Dispatch(SeekRequested{Position: target})

	require.Equal(t, []time.Duration{target}, native.SeekCalls())
	assert.Equal(t, StatusSeeking, rt.State().Status)

	native.Emit(engine.Seeked{Snapshot: engine.Snapshot{Position: target, Duration: 2 * time.Minute, Paused: true}})
	assert.Equal(t, StatusPaused, rt.State().Status)
	assert.Equal(t, target, rt.State().Position)
}

func TestRuntime_LoadFailureKeepsLoadingState(t *testing.T) {
	rt, native, _ := newTestRuntime(t)
	rt.Mount(&fakeSink{})
	native.SetLoadError(errors.New("connection refused"))

	var failures []AdapterFailure
	rt.SubscribeToEvents(func(ev Event) {
		if f, ok := ev.(AdapterFailure); ok {
			failures = append(failures, f)
		}
	})

	rt.Dispatch(LoadRequested{URL: "video.mp4"})

	require.Len(t, failures, 1)
	assert.Equal(t, engine.OpLoad, failures[0].Op)
	// Operational failure, not a terminal media failure: state is untouched.
	assert.Equal(t, StatusLoading, rt.State().Status)
	assert.False(t, rt.State().IsError())

	// Only an engine error moves the player into Error.
	native.Emit(engine.Error{Kind: engine.ErrorNetwork, Message: "gave up"})
	assert.Equal(t, StatusError, rt.State().Status)
	assert.True(t, rt.State().IsError())
}

func TestRuntime_SecondLoadDestroysFirstAdapter(t *testing.T) {
	rt, native, hls := newTestRuntime(t)
	rt.Mount(&fakeSink{})

	rt.Dispatch(LoadRequested{URL: "video.mp4"})
	require.Equal(t, 1, native.SubscriberCount())

	rt.Dispatch(LoadRequested{URL: "http://cdn/stream.m3u8"})

	assert.Equal(t, 1, native.DestroyCalls(), "first adapter not destroyed")
	assert.Equal(t, 0, native.SubscriberCount(), "first adapter still subscribed")
	assert.Equal(t, []string{"http://cdn/stream.m3u8"}, hls.LoadCalls())

	typ, ok := rt.PlaybackType()
	require.True(t, ok)
	assert.Equal(t, engine.TypeHLS, typ)

	// A stale event from the torn-down engine must not reach the runtime.
	native.Emit(engine.Error{Kind: engine.ErrorMedia, Message: "stale"})
	assert.Equal(t, StatusLoading, rt.State().Status)
	assert.False(t, rt.State().IsError())
}

// orderedAdapter records the order of lifecycle calls across adapters
// through a shared journal.
type orderedAdapter struct {
	*engine.Mock
	name    string
	journal *[]string
}

func (a *orderedAdapter) Mount(sink engine.Sink) error {
	*a.journal = append(*a.journal, a.name+".mount")
	return a.Mock.Mount(sink)
}

func (a *orderedAdapter) Load(ctx context.Context, url string) error {
	*a.journal = append(*a.journal, a.name+".load")
	return a.Mock.Load(ctx, url)
}

func (a *orderedAdapter) Destroy(ctx context.Context) error {
	*a.journal = append(*a.journal, a.name+".destroy")
	return a.Mock.Destroy(ctx)
}

func TestRuntime_AdapterSwapOrdering(t *testing.T) {
	var journal []string
	first := &orderedAdapter{Mock: engine.NewMock(), name: "native", journal: &journal}
	second := &orderedAdapter{Mock: engine.NewMock(), name: "hls", journal: &journal}

	rt := New(Options{Adapters: map[engine.Type]engine.Adapter{
		engine.TypeNative: first,
		engine.TypeHLS:    second,
	}})
	t.Cleanup(rt.Destroy)

	rt.Mount(&fakeSink{})
	rt.Dispatch(LoadRequested{URL: "video.mp4"})
	rt.Dispatch(LoadRequested{URL: "stream.m3u8"})

	require.Equal(t,
		[]string{"native.mount", "native.load", "native.destroy", "hls.mount", "hls.load"},
		journal,
		"previous adapter must be fully destroyed before its replacement is touched")
}

func TestRuntime_StateListenersFireOncePerChange(t *testing.T) {
	rt, native, _ := newTestRuntime(t)
	rt.Mount(&fakeSink{})

	var changes []State
	rt.SubscribeToState(func(s State) { changes = append(changes, s) })

	rt.Dispatch(LoadRequested{URL: "track.mp3"})                          // Idle -> Loading
	rt.Dispatch(PlayRequested{})                                          // no change
	rt.Dispatch(SetVolumeRequested{Volume: 0.5})                          // no change
	native.Emit(engine.MetadataLoaded{URL: "track.mp3", Duration: 100 * time.Second}) // Loading -> Paused

	require.Len(t, changes, 2, "listener fired on dispatches that changed nothing: %v", changes)
	assert.Equal(t, StatusLoading, changes[0].Status)
	assert.Equal(t, StatusPaused, changes[1].Status)
}

func TestRuntime_EventListenersSeeEverything(t *testing.T) {
	rt, native, _ := newTestRuntime(t)
	rt.Mount(&fakeSink{})

	var count int
	rt.SubscribeToEvents(func(Event) { count++ })

	rt.Dispatch(LoadRequested{URL: "track.mp3"})
	rt.Dispatch(PlayRequested{})
	native.Emit(engine.Playing{Snapshot: engine.Snapshot{}})

	assert.Equal(t, 3, count)
}

func TestRuntime_OnDispatchHook(t *testing.T) {
	native := engine.NewMock()
	var seen []Event
	rt := New(Options{
		Adapters:   map[engine.Type]engine.Adapter{engine.TypeNative: native},
		OnDispatch: func(ev Event) { seen = append(seen, ev) },
	})
	t.Cleanup(rt.Destroy)

	rt.Mount(&fakeSink{})
	rt.Dispatch(LoadRequested{URL: "a.mp3"})

	require.NotEmpty(t, seen)
	_, ok := seen[0].(LoadRequested)
	assert.True(t, ok, "hook missed the intent, saw %T", seen[0])
}

func TestRuntime_VolumeReachesSink(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	sink := &fakeSink{volume: 1.0}
	rt.Mount(sink)

	rt.Dispatch(SetVolumeRequested{Volume: 0.3})
	assert.Equal(t, 0.3, sink.volume)

	rt.Dispatch(SetMutedRequested{Muted: true})
	assert.True(t, sink.muted)
}

func TestRuntime_TransportWithoutAdapter(t *testing.T) {
	// Only an HLS adapter is configured, so a native load leaves the
	// runtime in Loading with no active adapter.
	rt := New(Options{Adapters: map[engine.Type]engine.Adapter{engine.TypeHLS: engine.NewMock()}})
	t.Cleanup(rt.Destroy)
	rt.Mount(&fakeSink{})

	var ops []engine.Op
	rt.SubscribeToEvents(func(ev Event) {
		if na, ok := ev.(NoAdapter); ok {
			ops = append(ops, na.Op)
		}
	})

	rt.Dispatch(LoadRequested{URL: "x.mp3"}) // raises NoAdapter{load}
	rt.Dispatch(PlayRequested{})             // Play effect with nothing to run it

	require.Equal(t, []engine.Op{engine.OpLoad, engine.OpPlay}, ops)
	assert.Equal(t, StatusLoading, rt.State().Status)
}

func TestRuntime_DestroyIsIdempotent(t *testing.T) {
	rt, native, _ := newTestRuntime(t)
	rt.Mount(&fakeSink{})
	rt.Dispatch(LoadRequested{URL: "track.mp3"})

	rt.Destroy()
	rt.Destroy()

	assert.Equal(t, 1, native.DestroyCalls(), "duplicate teardown side effects")
	assert.Equal(t, 0, native.SubscriberCount())
}

func TestRuntime_DestroyWithoutLoad(t *testing.T) {
	rt := New(Options{})
	rt.Destroy()
	rt.Destroy()
	// Dispatch after destroy is a silent no-op.
	rt.Dispatch(LoadRequested{URL: "x.mp3"})
	assert.Equal(t, StatusIdle, rt.State().Status)
}

func TestRuntime_TeardownFailureIsSwallowed(t *testing.T) {
	rt, native, hls := newTestRuntime(t)
	rt.Mount(&fakeSink{})
	native.SetDestroyError(errors.New("teardown exploded"))

	var failures []Event
	rt.SubscribeToEvents(func(ev Event) {
		if _, ok := ev.(AdapterFailure); ok {
			failures = append(failures, ev)
		}
	})

	rt.Dispatch(LoadRequested{URL: "a.mp3"})
	rt.Dispatch(LoadRequested{URL: "b.m3u8"})

	assert.Empty(t, failures, "destroy failure surfaced instead of being swallowed")
	assert.Equal(t, []string{"b.m3u8"}, hls.LoadCalls(), "swap aborted by teardown failure")
}

func TestRuntime_UnconfiguredAdapterType(t *testing.T) {
	native := engine.NewMock()
	rt := New(Options{Adapters: map[engine.Type]engine.Adapter{engine.TypeNative: native}})
	t.Cleanup(rt.Destroy)
	rt.Mount(&fakeSink{})

	var noAdapter bool
	rt.SubscribeToEvents(func(ev Event) {
		if _, ok := ev.(NoAdapter); ok {
			noAdapter = true
		}
	})

	rt.Dispatch(LoadRequested{URL: "stream.m3u8"})

	assert.True(t, noAdapter, "missing adapter type not reported")
	assert.Equal(t, StatusLoading, rt.State().Status, "misconfiguration must stay recoverable")
}

func TestRuntime_UnsubscribeIsIdempotent(t *testing.T) {
	rt, _, _ := newTestRuntime(t)

	var a, b int
	unsubA := rt.SubscribeToState(func(State) { a++ })
	rt.SubscribeToState(func(State) { b++ })

	unsubA()
	unsubA()

	rt.Mount(&fakeSink{})
	rt.Dispatch(LoadRequested{URL: "x.mp3"})

	assert.Zero(t, a, "listener fired after unsubscribe")
	assert.Equal(t, 1, b, "unrelated listener affected by unsubscribe")
}

func TestRuntime_ReentrantDispatchFromListener(t *testing.T) {
	rt, native, _ := newTestRuntime(t)
	rt.Mount(&fakeSink{})

	// A state listener reacting to Paused by requesting playback: the
	// nested dispatch must queue behind the current one, not deadlock.
	rt.SubscribeToState(func(s State) {
		if s.Status == StatusPaused {
			rt.Dispatch(PlayRequested{})
		}
	})

	rt.Dispatch(LoadRequested{URL: "track.mp3"})
	native.Emit(engine.MetadataLoaded{URL: "track.mp3", Duration: time.Minute})

	assert.Equal(t, 1, native.PlayCalls())
}

func TestRuntime_EventOrderIsArrivalOrder(t *testing.T) {
	rt, _, _ := newTestRuntime(t)
	rt.Mount(&fakeSink{})

	var order []string
	rt.SubscribeToEvents(func(ev Event) {
		order = append(order, fmt.Sprintf("%T", ev))
	})

	rt.Dispatch(LoadRequested{URL: "a.mp3"})
	rt.Dispatch(PlayRequested{})
	rt.Dispatch(PauseRequested{})

	require.Equal(t, []string{
		"playback.LoadRequested",
		"playback.PlayRequested",
		"playback.PauseRequested",
	}, order)
}
