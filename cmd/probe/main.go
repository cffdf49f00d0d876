// Command probe plays a URL headlessly and traces every dispatched event,
// useful for debugging source selection and engine behaviour without the
// TUI in the way.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"reel/internal/config"
	"reel/internal/engine"
	"reel/internal/engine/mpv"
	"reel/internal/engine/native"
	"reel/internal/playback"
)

func main() {
	var (
		timeout = flag.Duration("timeout", 0, "stop after this duration (0 = run until ended)")
		level   = flag.String("level", "debug", "log level")
	)
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: probe [flags] <url>\n")
		flag.PrintDefaults()
		os.Exit(2)
	}
	url := flag.Arg(0)

	lvl, err := zerolog.ParseLevel(*level)
	if err != nil {
		lvl = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"}).
		Level(lvl).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	done := make(chan int, 1)

	mpvOpts := mpv.Options{Path: cfg.Mpv.Path, ExtraArgs: cfg.Mpv.ExtraArgs}
	rt := playback.New(playback.Options{
		Adapters: map[engine.Type]engine.Adapter{
			engine.TypeNative: native.New(),
			engine.TypeHLS:    mpv.New(engine.TypeHLS, mpvOpts),
			engine.TypeDASH:   mpv.New(engine.TypeDASH, mpvOpts),
		},
		OnDispatch: func(ev playback.Event) {
			logEvent(logger, ev)
		},
		Logger: &logger,
	})
	defer rt.Destroy()

	rt.SubscribeToState(func(st playback.State) {
		logger.Info().
			Str("status", st.Status.String()).
			Dur("position", st.Position).
			Dur("duration", st.Duration).
			Msg("state")
		switch st.Status {
		case playback.StatusEnded:
			select {
			case done <- 0:
			default:
			}
		case playback.StatusError:
			select {
			case done <- 1:
			default:
			}
		case playback.StatusPaused:
			// Metadata arrived; release playback.
			rt.Dispatch(playback.PlayRequested{})
		}
	})

	rt.Mount(native.NewOutput())

	logger.Info().Str("url", url).Str("engine", string(engine.Select(url))).Msg("probing")
	rt.Dispatch(playback.LoadRequested{URL: url})

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	var timer <-chan time.Time
	if *timeout > 0 {
		timer = time.After(*timeout)
	}

	select {
	case code := <-done:
		os.Exit(code)
	case <-sig:
	case <-timer:
	}
}

func logEvent(logger zerolog.Logger, ev playback.Event) {
	e := logger.Debug().Type("event", ev)
	switch ev := ev.(type) {
	case playback.LoadRequested:
		e = e.Str("url", ev.URL)
	case playback.SeekRequested:
		e = e.Dur("position", ev.Position)
	case playback.NoAdapter:
		e = e.Str("op", string(ev.Op))
	case playback.AdapterFailure:
		e = e.Str("op", string(ev.Op)).Str("message", ev.Message)
	case engine.MetadataLoaded:
		e = e.Str("url", ev.URL).Dur("duration", ev.Duration).
			Int("width", ev.Width).Int("height", ev.Height)
	case engine.TimeUpdated:
		e = e.Dur("position", ev.Snapshot.Position)
	case engine.Error:
		e = e.Str("kind", string(ev.Kind)).Str("message", ev.Message)
	}
	e.Msg("event")
}
