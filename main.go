package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"reel/internal/config"
	"reel/internal/engine"
	"reel/internal/engine/mpv"
	"reel/internal/engine/native"
	"reel/internal/log"
	"reel/internal/mpris"
	"reel/internal/playback"
	"reel/internal/session"
)

const seekStep = 10 * time.Second

var (
	barStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	filledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

// stateMsg carries runtime state changes into the bubbletea loop.
type stateMsg playback.State

type model struct {
	runtime *playback.Runtime
	store   *session.Store
	resume  bool

	input     textinput.Model
	prompting bool
	url       string
	resumed   bool

	state  playback.State
	volume float64
	muted  bool

	width  int
	height int
}

func initialModel(cfg *config.Config, rt *playback.Runtime, store *session.Store) model {
	input := textinput.New()
	input.Placeholder = "media URL or file path"
	input.Focus()

	// Pre-fill with the last URL, falling back to the configured default.
	if store != nil {
		if last, err := store.GetLastURL(); err == nil && last != "" {
			input.SetValue(last)
		}
	}
	if input.Value() == "" && cfg.DefaultURL != "" {
		input.SetValue(cfg.DefaultURL)
	}

	volume := 1.0
	muted := false
	if store != nil {
		if v, err := store.GetVolume(); err == nil {
			volume, muted = v.Level, v.Muted
		}
	}

	return model{
		runtime:   rt,
		store:     store,
		resume:    cfg.ResumeEnabled(),
		input:     input,
		prompting: true,
		state:     rt.State(),
		volume:    volume,
		muted:     muted,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = msg.Width - 8

	case stateMsg:
		return m.updateState(playback.State(msg))

	case tea.KeyMsg:
		if m.prompting {
			return m.updatePrompt(msg)
		}
		return m.updatePlayer(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, m.quit()
	case "esc":
		if m.url != "" {
			m.prompting = false
		}
		return m, nil
	case "enter":
		url := strings.TrimSpace(m.input.Value())
		if url == "" {
			return m, nil
		}
		m.url = url
		m.prompting = false
		m.resumed = false
		if m.store != nil {
			_ = m.store.SaveLastURL(url)
		}
		m.runtime.Dispatch(playback.LoadRequested{URL: url})
		// Re-apply the saved volume to the fresh adapter's sink.
		m.runtime.Dispatch(playback.SetVolumeRequested{Volume: m.volume})
		m.runtime.Dispatch(playback.SetMutedRequested{Muted: m.muted})
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) updatePlayer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, m.quit()

	case "o":
		m.prompting = true
		m.input.SetValue(m.url)
		m.input.CursorEnd()
		return m, textinput.Blink

	case " ":
		if m.state.Status == playback.StatusPlaying {
			m.runtime.Dispatch(playback.PauseRequested{})
		} else {
			m.runtime.Dispatch(playback.PlayRequested{})
		}

	case "left":
		pos := m.state.Position - seekStep
		if pos < 0 {
			pos = 0
		}
		m.runtime.Dispatch(playback.SeekRequested{Position: pos})

	case "right":
		m.runtime.Dispatch(playback.SeekRequested{Position: m.state.Position + seekStep})

	case "+", "=":
		m.setVolume(m.volume+0.05, m.muted)
		return m, nil

	case "-":
		m.setVolume(m.volume-0.05, m.muted)
		return m, nil

	case "m":
		m.setVolume(m.volume, !m.muted)
		return m, nil
	}
	return m, nil
}

func (m *model) setVolume(level float64, muted bool) {
	if level < 0 {
		level = 0
	} else if level > 1 {
		level = 1
	}
	m.volume = level
	m.muted = muted
	m.runtime.Dispatch(playback.SetVolumeRequested{Volume: level})
	m.runtime.Dispatch(playback.SetMutedRequested{Muted: muted})
	if m.store != nil {
		_ = m.store.SaveVolume(level, muted)
	}
}

func (m model) updateState(st playback.State) (tea.Model, tea.Cmd) {
	prev := m.state
	m.state = st

	if m.store == nil {
		return m, nil
	}

	switch st.Status {
	case playback.StatusPaused:
		// First Paused after a load means metadata arrived; restore the
		// saved position once per load.
		if m.resume && !m.resumed && prev.Status == playback.StatusLoading {
			m.resumed = true
			if p, err := m.store.GetProgress(m.url); err == nil && p != nil && p.Position > 0 {
				m.runtime.Dispatch(playback.SeekRequested{Position: p.Position})
			}
		}

	case playback.StatusPlaying:
		if st.Position > 0 {
			m.store.SaveProgress(session.Progress{
				URL:      m.url,
				Position: st.Position,
				Duration: st.Duration,
			})
		}

	case playback.StatusEnded:
		// Playback ran to the end; next open starts over.
		if prev.Status != playback.StatusEnded && m.url != "" {
			_ = m.store.ClearProgress(m.url)
		}
	}
	return m, nil
}

func (m model) quit() tea.Cmd {
	m.runtime.Destroy()
	if m.store != nil {
		_ = m.store.Close()
	}
	return tea.Quit
}

func (m model) View() string {
	if m.prompting {
		return fmt.Sprintf("\n  Open media\n\n  %s\n\n  %s\n",
			m.input.View(),
			dimStyle.Render("enter: play  esc: cancel  ctrl+c: quit"))
	}

	status := m.statusLine()
	bar := m.progressBar()
	times := fmt.Sprintf("%s / %s", formatDuration(m.state.Position), formatDuration(m.state.Duration))

	vol := fmt.Sprintf("vol %3.0f%%", m.volume*100)
	if m.muted {
		vol = "muted"
	}

	innerWidth := m.width - 4
	if innerWidth < 0 {
		innerWidth = 0
	}

	content := fmt.Sprintf(" %s  %s\n %s\n %s  %s",
		status, m.url, bar, times, dimStyle.Render(vol))
	view := barStyle.Width(innerWidth).Render(content)

	help := dimStyle.Render("  space: play/pause  ←/→: seek  +/-: volume  m: mute  o: open  q: quit")
	return "\n" + view + "\n" + help + "\n"
}

func (m model) statusLine() string {
	switch m.state.Status {
	case playback.StatusIdle:
		return dimStyle.Render("■ idle")
	case playback.StatusLoading:
		return statusStyle.Render("… loading")
	case playback.StatusPlaying:
		return statusStyle.Render("▶ playing")
	case playback.StatusPaused:
		return statusStyle.Render("⏸ paused")
	case playback.StatusBuffering:
		return statusStyle.Render("◌ buffering")
	case playback.StatusSeeking:
		return statusStyle.Render("↷ seeking")
	case playback.StatusEnded:
		return dimStyle.Render("■ ended")
	case playback.StatusError:
		msg := "error"
		if m.state.Err != nil {
			msg = m.state.Err.Message
		}
		return errorStyle.Render("✗ " + msg)
	}
	return ""
}

func (m model) progressBar() string {
	width := m.width - 6
	if width < 10 {
		width = 10
	}

	filled := 0
	if m.state.Duration > 0 {
		filled = int(float64(width) * float64(m.state.Position) / float64(m.state.Duration))
		if filled > width {
			filled = width
		}
	}

	return filledStyle.Render(strings.Repeat("━", filled)) +
		dimStyle.Render(strings.Repeat("─", width-filled))
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0:00"
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	log.Configure(log.Config{Level: cfg.Log.Level, File: cfg.Log.File})
	logger := log.WithComponent("runtime")

	store, err := session.Open()
	if err != nil {
		logger.Warn().Err(err).Msg("session store unavailable, continuing without persistence")
		store = nil
	}

	mpvOpts := mpv.Options{Path: cfg.Mpv.Path, ExtraArgs: cfg.Mpv.ExtraArgs}
	output := native.NewOutput()

	rt := playback.New(playback.Options{
		Adapters: map[engine.Type]engine.Adapter{
			engine.TypeNative: native.New(),
			engine.TypeHLS:    mpv.New(engine.TypeHLS, mpvOpts),
			engine.TypeDASH:   mpv.New(engine.TypeDASH, mpvOpts),
		},
		Logger: &logger,
	})
	rt.Mount(output)

	bridge, err := mpris.New(rt)
	if err != nil {
		logger.Warn().Err(err).Msg("mpris bridge unavailable")
	} else {
		defer bridge.Close()
	}

	p := tea.NewProgram(initialModel(cfg, rt, store), tea.WithAltScreen())

	unsub := rt.SubscribeToState(func(st playback.State) {
		p.Send(stateMsg(st))
	})
	defer unsub()

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
