package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/wasm-gl/frame"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444"))
)

const (
	previewCols = 48
	logHeight   = 8
)

// logBuffer collects module log lines between frames.
type logBuffer struct {
	lines []string
}

func (b *logBuffer) add(s string) {
	b.lines = append(b.lines, strings.TrimRight(s, "\n"))
}

type dashboard struct {
	ctx     context.Context
	sess    *session
	logs    *logBuffer
	period  time.Duration
	paused  bool
	prompt  bool
	err     error
	spinner spinner.Model
	view    viewport.Model
	input   textinput.Model
	width   int
}

type frameMsg time.Time

func newDashboard(ctx context.Context, s *session, logs *logBuffer, tps int) *dashboard {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(previewCols*2, logHeight)

	ti := textinput.New()
	ti.Prompt = "frames: "
	ti.Placeholder = "10"
	ti.CharLimit = 6
	ti.Width = 10

	t := &frame.Ticker{TPS: tps}
	return &dashboard{
		ctx:     ctx,
		sess:    s,
		logs:    logs,
		period:  t.Period(),
		spinner: sp,
		view:    vp,
		input:   ti,
	}
}

func (m *dashboard) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.nextFrame())
}

func (m *dashboard) nextFrame() tea.Cmd {
	return tea.Tick(m.period, func(t time.Time) tea.Msg { return frameMsg(t) })
}

// step runs n frames synchronously and stops at the first failure.
func (m *dashboard) step(n int) {
	for range n {
		if err := m.sess.inst.Tick(m.ctx); err != nil {
			m.err = err
			m.paused = true
			break
		}
	}
	m.syncLogs()
}

func (m *dashboard) syncLogs() {
	atBottom := m.view.AtBottom()
	m.view.SetContent(strings.Join(m.logs.lines, "\n"))
	if atBottom {
		m.view.GotoBottom()
	}
}

func (m *dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.view.Width = min(msg.Width-2, previewCols*2)

	case tea.KeyMsg:
		if m.prompt {
			return m.updatePrompt(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case " ", "p":
			m.paused = !m.paused
			if !m.paused {
				m.err = nil
			}
		case "n":
			m.step(1)
		case "f":
			m.prompt = true
			m.paused = true
			m.input.SetValue("")
			return m, m.input.Focus()
		case "up", "k", "down", "j", "pgup", "pgdown":
			var cmd tea.Cmd
			m.view, cmd = m.view.Update(msg)
			return m, cmd
		}

	case frameMsg:
		if !m.paused {
			m.step(1)
		}
		return m, m.nextFrame()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *dashboard) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.prompt = false
		m.input.Blur()
		return m, nil
	case "enter":
		m.prompt = false
		m.input.Blur()
		n, err := strconv.Atoi(strings.TrimSpace(m.input.Value()))
		if err != nil || n <= 0 {
			m.err = fmt.Errorf("invalid frame count %q", m.input.Value())
			return m, nil
		}
		m.step(n)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *dashboard) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("GL Runner"))
	b.WriteString(" ")
	b.WriteString(m.sess.name)
	b.WriteString(" ")
	if m.paused {
		b.WriteString(helpStyle.Render("paused"))
	} else {
		b.WriteString(m.spinner.View())
	}
	b.WriteString("\n\n")

	b.WriteString(m.stats())
	b.WriteString("\n")
	if img := m.sess.backend.Image(); img != nil {
		b.WriteString(panelStyle.Render(preview(img, previewCols)))
		b.WriteString("\n")
	}

	b.WriteString(labelStyle.Render("module log"))
	b.WriteString("\n")
	b.WriteString(panelStyle.Render(m.view.View()))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}
	if m.prompt {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("space pause • n step • f step n frames • ↑/↓ scroll log • q quit"))
	return b.String()
}

func (m *dashboard) stats() string {
	st := m.sess.inst.GL().Stats()
	bound := m.sess.inst.GL().Bound()
	row := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-10s", label)) + valueStyle.Render(value) + "\n"
	}
	handle := func(ok bool, h uint32) string {
		if !ok {
			return "-"
		}
		return strconv.FormatUint(uint64(h), 10)
	}

	var b strings.Builder
	b.WriteString(row("frames", strconv.FormatUint(m.sess.inst.Frames(), 10)))
	b.WriteString(row("draws", strconv.FormatUint(st.Draws, 10)))
	b.WriteString(row("shaders", fmt.Sprintf("%d live / %d issued", st.Shaders.Live, st.Shaders.Next)))
	b.WriteString(row("programs", fmt.Sprintf("%d live / %d issued", st.Programs.Live, st.Programs.Next)))
	b.WriteString(row("buffers", fmt.Sprintf("%d live / %d issued", st.Buffers.Live, st.Buffers.Next)))
	b.WriteString(row("bound", fmt.Sprintf("program %s, buffer %s, attribs %v",
		handle(bound.HasProgram, uint32(bound.Program)),
		handle(bound.HasBuffer, uint32(bound.Buffer)),
		bound.Enabled)))
	return b.String()
}

// preview renders img with half-block cells, two pixel rows per line.
func preview(img *image.RGBA, cols int) string {
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return ""
	}
	rows := cols * bounds.Dy() / bounds.Dx() / 2
	if rows < 1 {
		rows = 1
	}
	var b strings.Builder
	for r := range rows {
		for c := range cols {
			x := bounds.Min.X + c*bounds.Dx()/cols
			top := bounds.Min.Y + (2*r)*bounds.Dy()/(2*rows)
			bottom := bounds.Min.Y + (2*r+1)*bounds.Dy()/(2*rows)
			b.WriteString(lipgloss.NewStyle().
				Foreground(hex(img, x, top)).
				Background(hex(img, x, bottom)).
				Render("▀"))
		}
		if r < rows-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func hex(img *image.RGBA, x, y int) lipgloss.Color {
	c := img.RGBAAt(x, y)
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}

func runInteractive(cfg config) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("interactive mode requires a terminal")
	}

	ctx := context.Background()
	logs := &logBuffer{}
	// Records would corrupt the alternate screen; module text goes to the
	// log panel instead.
	s, err := openSession(ctx, cfg, zap.NewNop(), logs.add)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	m := newDashboard(ctx, s, logs, cfg.tps)
	m.syncLogs()
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		m.width = w
		m.view.Width = min(w-2, previewCols*2)
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
