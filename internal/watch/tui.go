// Package watch is a terminal UI that follows one session: it re-captures
// and analyzes the pane on a timer and can run commands in it.
package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/timvw/pane-runner/internal/model"
	"github.com/timvw/pane-runner/internal/render"
	"github.com/timvw/pane-runner/internal/runner"
)

// Runner is the part of *runner.Runner the TUI uses.
type Runner interface {
	CaptureAnalyzed(ctx context.Context, session, command string, lines int) model.Response
	Run(ctx context.Context, e runner.Exec) model.Response
}

// TUI runs the interactive watcher.
type TUI struct {
	Runner  Runner
	Session string
	// Command, when set, is used to classify captures.
	Command string
	Lines   int
	Refresh time.Duration // 0 disables auto-refresh
	MaxWait time.Duration // per command typed at the prompt
	Theme   render.Theme
}

type viewMode int

const (
	modeWatch viewMode = iota
	modeCommand
)

// messages
type captureMsg struct {
	resp model.Response
}

type runMsg struct {
	command string
	resp    model.Response
}

type tickMsg struct{}

// watchModel implements tea.Model
type watchModel struct {
	runner  Runner
	ctx     context.Context
	session string
	command string
	lines   int
	refresh time.Duration
	maxWait time.Duration
	styles  render.Styles

	mode  viewMode
	input textinput.Model

	resp    model.Response
	hasResp bool

	refreshing   bool
	running      bool
	message      string
	refreshCount int

	width  int
	height int
}

// Run starts the program and blocks until the user quits.
func (t *TUI) Run(ctx context.Context) error {
	m := newModel(ctx, t)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func newModel(ctx context.Context, t *TUI) *watchModel {
	ti := textinput.New()
	ti.Placeholder = "command to run, Enter to send"
	ti.Prompt = ": "
	ti.CharLimit = 2048
	ti.Width = 80

	theme := t.Theme
	if theme == (render.Theme{}) {
		theme = render.DarkTheme()
	}
	return &watchModel{
		runner:  t.Runner,
		ctx:     ctx,
		session: t.Session,
		command: t.Command,
		lines:   t.Lines,
		refresh: t.Refresh,
		maxWait: t.MaxWait,
		styles:  render.New(theme).Styles(),
		input:   ti,
	}
}

func (m *watchModel) Init() tea.Cmd {
	m.refreshing = true
	return m.doCapture()
}

// scheduleTick returns nil when auto-refresh is disabled.
func (m *watchModel) scheduleTick() tea.Cmd {
	if m.refresh <= 0 {
		return nil
	}
	return tea.Tick(m.refresh, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *watchModel) doCapture() tea.Cmd {
	r, ctx := m.runner, m.ctx
	session, command, lines := m.session, m.command, m.lines
	return func() tea.Msg {
		return captureMsg{resp: r.CaptureAnalyzed(ctx, session, command, lines)}
	}
}

func (m *watchModel) doRun(command string) tea.Cmd {
	r, ctx := m.runner, m.ctx
	e := runner.Exec{Session: m.session, Command: command, CreateSession: true, MaxWait: m.maxWait}
	return func() tea.Msg {
		return runMsg{command: command, resp: r.Run(ctx, e)}
	}
}

func (m *watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.mode == modeCommand {
			return m.handleCommandKey(msg)
		}
		return m.handleWatchKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case captureMsg:
		m.refreshing = false
		m.refreshCount++
		// Captures that land while a command runs are dropped.
		if !m.running {
			m.resp = msg.resp
			m.hasResp = true
		}
		return m, m.scheduleTick()

	case runMsg:
		m.running = false
		m.resp = msg.resp
		m.hasResp = true
		m.message = runMessage(msg.command, msg.resp)
		return m, nil

	case tickMsg:
		if m.refreshing || m.running || m.mode == modeCommand {
			return m, m.scheduleTick()
		}
		m.refreshing = true
		return m, m.doCapture()
	}

	return m, nil
}

func (m *watchModel) handleWatchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "r":
		if m.refreshing {
			return m, nil
		}
		m.refreshing = true
		m.message = ""
		return m, m.doCapture()

	case ":":
		if m.running {
			m.message = "A command is still running"
			return m, nil
		}
		m.mode = modeCommand
		m.input.SetValue("")
		return m, m.input.Focus()
	}
	return m, nil
}

func (m *watchModel) handleCommandKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.mode = modeWatch
		m.input.Blur()
		return m, nil

	case "enter":
		text := strings.TrimSpace(m.input.Value())
		m.mode = modeWatch
		m.input.Blur()
		if text == "" {
			return m, nil
		}
		m.running = true
		m.message = fmt.Sprintf("Running %s ...", truncate(text, 40))
		return m, m.doRun(text)
	}

	// Forward all other keys to the text input component
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func runMessage(command string, resp model.Response) string {
	cmd := truncate(command, 40)
	if resp.Analysis == nil {
		if resp.Error != "" {
			return fmt.Sprintf("%s failed: %s", cmd, resp.Error)
		}
		return fmt.Sprintf("%s done", cmd)
	}
	switch resp.Status {
	case model.StatusSuccess:
		return fmt.Sprintf("%s finished: %s", cmd, resp.Summary)
	case model.StatusTimeout:
		return fmt.Sprintf("%s is still running (timed out waiting)", cmd)
	}
	return fmt.Sprintf("%s failed: %s", cmd, resp.Error)
}

func (m *watchModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	st := m.styles
	var b strings.Builder

	// Header: title + session + keybindings
	title := st.Header.Render("Pane Runner") + "  " +
		st.Key.Render(m.session) + "  " +
		st.Dim.Render(":=run  r=refresh  q=quit")
	switch {
	case m.running:
		title += "  " + st.Heading.Render("running...")
	case m.refreshing:
		title += "  " + st.Dim.Render("refreshing...")
	}
	b.WriteString(ansi.Truncate(title, m.width, "…"))
	b.WriteString("\n")

	if !m.hasResp {
		b.WriteString("  Capturing pane...\n")
		return b.String()
	}

	header := m.analysisLines()
	for _, line := range header {
		b.WriteString(ansi.Truncate(line, m.width, "…"))
		b.WriteString("\n")
	}

	b.WriteString(st.Border.Render(strings.Repeat("─", max(m.width, 1))))
	b.WriteString("\n")

	// Fixed rows: title, rule, footer and the command line.
	room := m.height - len(header) - 4
	for _, line := range lastLines(m.paneText(), room) {
		b.WriteString(ansi.Truncate(line, m.width, "…"))
		b.WriteString("\n")
	}

	if m.mode == modeCommand {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	} else if m.message != "" {
		b.WriteString(ansi.Truncate(st.Dim.Render(m.message), m.width, "…"))
		b.WriteString("\n")
	}
	return b.String()
}

// analysisLines renders format, summary and findings of the current response.
func (m *watchModel) analysisLines() []string {
	st := m.styles
	a := m.resp.Analysis
	if a == nil {
		if m.resp.Error != "" {
			return []string{st.Failure.Render("✗ " + m.resp.Error)}
		}
		return nil
	}

	lines := []string{
		fmt.Sprintf("%s %s  %s %s",
			st.Dim.Render("format:"), st.Key.Render(a.Metadata.FormatDetected),
			st.Dim.Render("status:"), statusText(st, a.Status)),
	}
	if a.Command != "" {
		lines = append(lines, st.Dim.Render("command: ")+a.Command)
	}
	if a.Status == model.StatusError {
		lines = append(lines, st.Failure.Render("✗ "+m.resp.Error))
	} else {
		lines = append(lines, st.Summary.Render("✓ "+render.Summarize(a.Findings)))
	}
	for _, f := range a.Findings {
		lines = append(lines, fmt.Sprintf("  %s %s - %s",
			render.Icon(f.Importance),
			st.Importance(f.Importance).Render(f.Category),
			f.Message))
	}
	return lines
}

func statusText(st render.Styles, status string) string {
	switch status {
	case model.StatusSuccess:
		return st.Summary.Render(status)
	case model.StatusTimeout:
		return st.Heading.Render(status)
	}
	return st.Failure.Render(status)
}

func (m *watchModel) paneText() string {
	if m.resp.Analysis != nil {
		return m.resp.RawOutput
	}
	return m.resp.Output
}

// lastLines returns at most n trailing lines of s, ignoring trailing blank
// lines.
func lastLines(s string, n int) []string {
	if n <= 0 {
		return nil
	}
	lines := strings.Split(strings.TrimRight(s, "\n "), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// truncate cuts a string to at most maxLen cells.
func truncate(s string, maxLen int) string {
	return ansi.Truncate(s, maxLen, "...")
}
