// Package ui provides the terminal preview of the broadcast.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/dgnsrekt/storycast/internal/broadcast"
)

const (
	ellipsis     = "…"
	defaultFPS   = 30
	defaultWidth = 80
)

// Engine is the part of the broadcast engine the preview drives.
type Engine interface {
	Start()
	Advance(dt time.Duration)
	Snapshot() broadcast.Snapshot
}

// NewProgram returns a new Tea program previewing e.
func NewProgram(cfg Config, e Engine) *tea.Program {
	log.Debug("Starting preview", "fps", cfg.FPS, "auto_start", cfg.AutoStart)

	var opts []tea.ProgramOption
	if cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	return tea.NewProgram(newModel(cfg, e), opts...)
}

type tickMsg time.Time

type model struct {
	cfg     Config
	engine  Engine
	spinner spinner.Model

	snap   broadcast.Snapshot
	last   time.Time
	width  int
	height int
}

func newModel(cfg Config, e Engine) model {
	if cfg.FPS <= 0 {
		cfg.FPS = defaultFPS
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusStyle

	return model{
		cfg:     cfg,
		engine:  e,
		spinner: sp,
		snap:    e.Snapshot(),
		width:   defaultWidth,
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.cfg.FPS), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "s":
			m.engine.Start()
			m.snap = m.engine.Snapshot()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		now := time.Time(msg)
		var dt time.Duration
		if !m.last.IsZero() {
			dt = now.Sub(m.last)
		}
		m.last = now
		m.engine.Advance(dt)
		m.snap = m.engine.Snapshot()
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(bodyStyle.Render(m.bodyView()))
	b.WriteString("\n")
	if m.cfg.ShowState {
		b.WriteString(debugStyle.Render(fmt.Sprintf("state=%s index=%d revealed=%d",
			m.snap.State, m.snap.Index, len([]rune(m.snap.Revealed)))))
		b.WriteString("\n")
	}
	b.WriteString(m.helpView())
	return b.String()
}

func (m model) headerView() string {
	badge := liveBadgeStyle.Render("LIVE")
	if m.snap.Packet == nil {
		return badge
	}

	counter := ""
	if m.snap.State == broadcast.StatePlaying {
		counter = counterStyle.Render(fmt.Sprintf("%d/%d", m.snap.Index+1, len(m.snap.Packet.Dialogue)))
	}

	// Room left for the title once the badge, counter and padding are drawn.
	room := m.width - runewidth.StringWidth("LIVE") - runewidth.StringWidth(counter) - 6
	if room < 1 {
		return badge + counter
	}
	title := runewidth.Truncate(m.snap.Packet.Title(), room, ellipsis)
	return badge + titleStyle.Render(title) + counter
}

func (m model) bodyView() string {
	//exhaustive:enforce
	switch m.snap.State {
	case broadcast.StateIdle:
		if m.cfg.AutoStart {
			return statusStyle.Render("Starting...")
		}
		return statusStyle.Render("Press s to start the broadcast.")

	case broadcast.StateLoading:
		return m.spinner.View() + statusStyle.Render(" Downloading story...")

	case broadcast.StatePlaying:
		line, ok := m.snap.Line()
		if !ok {
			return ""
		}
		text := wordwrap.String(m.snap.Revealed, m.wrapWidth())
		return speakerStyle(line.Speaker).Render(line.Speaker) + "\n\n" + text

	case broadcast.StateWaiting:
		return statusStyle.Render("Story complete. Next one shortly.")

	case broadcast.StateError:
		msg := wordwrap.String(m.snap.Err, m.wrapWidth()-4)
		return errorBoxStyle.Render("Could not get a story\n\n"+msg) + "\n" +
			counterStyle.Render("Retrying shortly.")

	default:
		panic(fmt.Sprintf("ui: unhandled state %v", m.snap.State))
	}
}

func (m model) helpView() string {
	if m.cfg.AutoStart {
		return helpStyle.Render("q quit")
	}
	return helpStyle.Render("s start • q quit")
}

func (m model) wrapWidth() int {
	w := m.width - 4
	if m.cfg.MaxWidth > 0 && w > m.cfg.MaxWidth {
		w = m.cfg.MaxWidth
	}
	if w < 10 {
		w = 10
	}
	return w
}
