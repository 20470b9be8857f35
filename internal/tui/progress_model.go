package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/domain/setup"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

const defaultLogLines = 5

// progressModel is the Bubble Tea model for the setup progress view.
type progressModel struct {
	ctx     context.Context
	runner  Runner
	opts    ProgressOptions
	styles  Styles
	keys    KeyMap
	spinner spinner.Model
	bar     progress.Model
	input   textinput.Model
	width   int

	state     setup.State
	logs      []setup.LogEntry
	running   bool
	done      bool
	cancelled bool
	failure   *setup.StepError
	err       error

	pick       *pickRequest
	confirm    *confirmRequest
	confirmIdx int
}

// newProgressModel creates a new progress model.
func newProgressModel(ctx context.Context, runner Runner, opts ProgressOptions) progressModel {
	styles := DefaultStyles()
	if opts.LogLines <= 0 {
		opts.LogLines = defaultLogLines
	}

	input := textinput.New()
	input.Prompt = "› "
	input.CharLimit = 4096

	return progressModel{
		ctx:     ctx,
		runner:  runner,
		opts:    opts,
		styles:  styles,
		keys:    DefaultKeyMap(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(styles.Spinner)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		input:   input,
		width:   80,
		state:   runner.State(),
		running: true,
	}
}

// Init starts the spinner and the initialization run.
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run(m.runner.Start))
}

func (m progressModel) run(fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return runDoneMsg{err: fn(ctx)}
	}
}

// Update handles messages.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.styles = m.styles.WithWidth(msg.Width)
		m.bar.Width = clamp(msg.Width-16, 10, 60)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case StateMsg:
		m.state = msg.State
		return m, nil

	case LogMsg:
		m.logs = append(m.logs, msg.Entry)
		if len(m.logs) > m.opts.LogLines {
			m.logs = m.logs[len(m.logs)-m.opts.LogLines:]
		}
		return m, nil

	case runDoneMsg:
		return m.handleRunDone(msg)

	case pickRequest:
		m.pick = &msg
		m.input.Reset()
		m.input.Placeholder = msg.defaultPath
		return m, m.input.Focus()

	case confirmRequest:
		m.confirm = &msg
		m.confirmIdx = 0
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.pick != nil {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m progressModel) handleRunDone(msg runDoneMsg) (tea.Model, tea.Cmd) {
	m.running = false
	m.state = m.runner.State()

	var stepErr *setup.StepError
	switch {
	case msg.err == nil && m.state.IsCompleted:
		m.done = true
		if !m.opts.StayOpen {
			return m, tea.Quit
		}
	case errors.As(msg.err, &stepErr):
		m.failure = stepErr
	case msg.err != nil:
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Cancel) {
		m.answerPending()
		m.cancelled = !m.done
		return m, tea.Quit
	}

	if m.pick != nil {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			path := strings.TrimSpace(m.input.Value())
			if path == "" {
				path = m.pick.defaultPath
			}
			m.pick.reply <- ports.DirectoryChoice{Path: path}
			m.pick = nil
			m.input.Blur()
			return m, nil
		case key.Matches(msg, m.keys.Back):
			m.pick.reply <- ports.DirectoryChoice{Cancelled: true}
			m.pick = nil
			m.input.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	if m.confirm != nil {
		n := len(m.confirm.buttons)
		switch {
		case key.Matches(msg, m.keys.Left):
			m.confirmIdx = (m.confirmIdx + n - 1) % n
		case key.Matches(msg, m.keys.Right):
			m.confirmIdx = (m.confirmIdx + 1) % n
		case key.Matches(msg, m.keys.Confirm):
			m.confirm.reply <- m.confirmIdx
			m.confirm = nil
		case key.Matches(msg, m.keys.Back):
			m.confirm.reply <- n - 1
			m.confirm = nil
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Retry) && m.failure != nil && !m.running:
		m.failure = nil
		m.running = true
		return m, m.run(m.runner.RetryCurrentStep)
	case key.Matches(msg, m.keys.Quit) && !m.running:
		return m, tea.Quit
	}
	return m, nil
}

// answerPending releases a prompt that is waiting on the view.
func (m *progressModel) answerPending() {
	if m.pick != nil {
		m.pick.reply <- ports.DirectoryChoice{Cancelled: true}
		m.pick = nil
	}
	if m.confirm != nil {
		m.confirm.reply <- len(m.confirm.buttons) - 1
		m.confirm = nil
	}
}

// View renders the model.
func (m progressModel) View() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("EchoSoul setup"))
	b.WriteString("\n\n")
	b.WriteString(m.bar.ViewAs(float64(m.state.OverallProgress) / 100))
	b.WriteString("\n\n")

	for _, rec := range m.state.Ordered() {
		b.WriteString(m.stepLine(rec))
		b.WriteString("\n")
	}

	switch {
	case m.pick != nil:
		b.WriteString("\n")
		b.WriteString(m.styles.Subtitle.Render("Directory"))
		b.WriteString("\n")
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(helpLine(m.styles, m.keys.Confirm, m.keys.Back))
		b.WriteString("\n")
	case m.confirm != nil:
		b.WriteString("\n")
		b.WriteString(m.styles.Subtitle.Render(m.confirm.message))
		b.WriteString("\n")
		for i, label := range m.confirm.buttons {
			style := m.styles.Button
			if i == m.confirmIdx {
				style = m.styles.ButtonActive
			}
			b.WriteString(style.Render(label))
		}
		b.WriteString("\n")
	}

	if len(m.logs) > 0 {
		b.WriteString("\n")
		for _, e := range m.logs {
			b.WriteString(m.styles.Help.Render(fmt.Sprintf("%s %s", strings.ToLower(e.Level), e.Message)))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m progressModel) stepLine(rec setup.StepRecord) string {
	var icon, detail string
	switch rec.Status {
	case setup.StatusSuccess:
		icon = m.styles.Success.Render("✓")
		detail = m.styles.StepDetail.Render(rec.Description)
	case setup.StatusInProgress:
		icon = m.spinner.View()
		if rec.UserAction != "" {
			detail = m.styles.Info.Render(rec.UserAction)
		}
	case setup.StatusWaitingUserInput:
		icon = m.styles.Warning.Render("?")
		detail = m.styles.Warning.Render(rec.UserAction)
	case setup.StatusError:
		icon = m.styles.Error.Render("✗")
		detail = m.styles.Error.Render(rec.Error)
		if rec.UserAction != "" {
			detail += m.styles.Help.Render(" (" + rec.UserAction + ")")
		}
	default:
		icon = m.styles.Help.Render("○")
	}
	return fmt.Sprintf(" %s %s %s", icon, m.styles.StepTitle.Render(rec.Title), detail)
}

func (m progressModel) footer() string {
	switch {
	case m.done:
		return m.styles.Success.Render("Setup complete. The local service is running.") + "\n" +
			helpLine(m.styles, m.keys.Quit)
	case m.failure != nil:
		return helpLine(m.styles, m.keys.Retry, m.keys.Quit)
	default:
		return helpLine(m.styles, m.keys.Cancel)
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
