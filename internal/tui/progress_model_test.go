package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/domain/setup"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

// fakeRunner is a scripted Runner.
type fakeRunner struct {
	mu       sync.Mutex
	state    setup.State
	startErr error
	retryErr error
	starts   int
	retries  int
}

func newFakeRunner() *fakeRunner {
	st := setup.State{CurrentStep: setup.StepCheckPrerequisite, Steps: map[setup.Step]setup.StepRecord{}}
	for _, s := range setup.Steps() {
		st.Steps[s] = setup.StepRecord{Step: s, Status: setup.StatusPending, Title: s.Title()}
	}
	return &fakeRunner{state: st}
}

func (f *fakeRunner) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return f.startErr
}

func (f *fakeRunner) RetryCurrentStep(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retries++
	return f.retryErr
}

func (f *fakeRunner) State() setup.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.Clone()
}

func (f *fakeRunner) Subscribe(setup.Listener) func() { return func() {} }

func (f *fakeRunner) setStatus(step setup.Step, status setup.StepStatus, errMsg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.state.Steps[step]
	rec.Status = status
	rec.Error = errMsg
	f.state.Steps[step] = rec
	f.state.OverallProgress = setup.ComputeProgress(f.state.Steps)
}

func (f *fakeRunner) complete() {
	for _, s := range setup.Steps() {
		f.setStatus(s, setup.StatusSuccess, "")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.IsCompleted = true
	f.state.CurrentStep = setup.StepCompleted
}

func update(t *testing.T, m progressModel, msg tea.Msg) (progressModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	pm, ok := next.(progressModel)
	require.True(t, ok)
	return pm, cmd
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestProgressModel_Init(t *testing.T) {
	t.Parallel()

	m := newProgressModel(context.Background(), newFakeRunner(), ProgressOptions{})

	assert.NotNil(t, m.Init())
	assert.True(t, m.running)
	assert.Equal(t, defaultLogLines, m.opts.LogLines)
}

func TestProgressModel_RunCommandCallsStart(t *testing.T) {
	t.Parallel()
	r := newFakeRunner()
	r.startErr = errors.New("boom")
	m := newProgressModel(context.Background(), r, ProgressOptions{})

	msg := m.run(r.Start)()

	assert.Equal(t, runDoneMsg{err: r.startErr}, msg)
	assert.Equal(t, 1, r.starts)
}

func TestProgressModel_ViewListsSteps(t *testing.T) {
	t.Parallel()
	r := newFakeRunner()
	r.setStatus(setup.StepCheckPrerequisite, setup.StatusError, setup.MsgPrerequisiteNotRunning)
	m := newProgressModel(context.Background(), r, ProgressOptions{})

	view := m.View()

	assert.Contains(t, view, "EchoSoul setup")
	for _, s := range setup.Steps() {
		assert.Contains(t, view, s.Title())
	}
	assert.Contains(t, view, setup.MsgPrerequisiteNotRunning)
}

func TestProgressModel_StateAndLogs(t *testing.T) {
	t.Parallel()
	r := newFakeRunner()
	m := newProgressModel(context.Background(), r, ProgressOptions{LogLines: 2})

	st := r.State()
	st.OverallProgress = 42
	m, _ = update(t, m, StateMsg{State: st})
	assert.Equal(t, 42, m.state.OverallProgress)

	for _, text := range []string{"one", "two", "three"} {
		m, _ = update(t, m, LogMsg{Entry: setup.LogEntry{Level: "INFO", Message: text}})
	}
	require.Len(t, m.logs, 2)
	assert.Equal(t, "two", m.logs[0].Message)
	assert.Contains(t, m.View(), "info three")
}

func TestProgressModel_CompletionQuits(t *testing.T) {
	t.Parallel()
	r := newFakeRunner()
	r.complete()
	m := newProgressModel(context.Background(), r, ProgressOptions{})

	m, cmd := update(t, m, runDoneMsg{})

	assert.True(t, m.done)
	assert.False(t, m.running)
	assert.True(t, isQuit(cmd))
	assert.Contains(t, m.View(), "Setup complete")
}

func TestProgressModel_CompletionStaysOpen(t *testing.T) {
	t.Parallel()
	r := newFakeRunner()
	r.complete()
	m := newProgressModel(context.Background(), r, ProgressOptions{StayOpen: true})

	m, cmd := update(t, m, runDoneMsg{})
	assert.True(t, m.done)
	assert.Nil(t, cmd)

	_, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.True(t, isQuit(cmd))
}

func TestProgressModel_FailureThenRetry(t *testing.T) {
	t.Parallel()
	r := newFakeRunner()
	r.setStatus(setup.StepObtainKey, setup.StatusError, "permission denied")
	m := newProgressModel(context.Background(), r, ProgressOptions{})

	stepErr := &setup.StepError{Step: setup.StepObtainKey, Kind: setup.KindKeyExtractionFailed, Message: "permission denied"}
	m, cmd := update(t, m, runDoneMsg{err: stepErr})
	require.Nil(t, cmd)
	require.NotNil(t, m.failure)
	assert.Contains(t, m.View(), "retry")

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	assert.True(t, m.running)
	assert.Nil(t, m.failure)

	assert.Equal(t, runDoneMsg{}, cmd())
	assert.Equal(t, 1, r.retries)
}

func TestProgressModel_QuitIgnoredWhileRunning(t *testing.T) {
	t.Parallel()
	m := newProgressModel(context.Background(), newFakeRunner(), ProgressOptions{})

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.False(t, isQuit(cmd))

	m, cmd = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, isQuit(cmd))
	assert.True(t, m.cancelled)
}

func TestProgressModel_UnexpectedErrorQuits(t *testing.T) {
	t.Parallel()
	m := newProgressModel(context.Background(), newFakeRunner(), ProgressOptions{})

	m, cmd := update(t, m, runDoneMsg{err: setup.ErrClosed})

	assert.True(t, isQuit(cmd))
	assert.ErrorIs(t, m.err, setup.ErrClosed)
}

func TestProgressModel_PickDirectory(t *testing.T) {
	t.Parallel()
	m := newProgressModel(context.Background(), newFakeRunner(), ProgressOptions{})

	reply := make(chan ports.DirectoryChoice, 1)
	m, _ = update(t, m, pickRequest{defaultPath: "/default", reply: reply})
	assert.Contains(t, m.View(), "Directory")

	for _, r := range "/srv/data" {
		m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, ports.DirectoryChoice{Path: "/srv/data"}, <-reply)
	assert.Nil(t, m.pick)
}

func TestProgressModel_PickDirectoryDefaultAndCancel(t *testing.T) {
	t.Parallel()
	m := newProgressModel(context.Background(), newFakeRunner(), ProgressOptions{})

	reply := make(chan ports.DirectoryChoice, 1)
	m, _ = update(t, m, pickRequest{defaultPath: "/default", reply: reply})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, ports.DirectoryChoice{Path: "/default"}, <-reply)

	m, _ = update(t, m, pickRequest{defaultPath: "/default", reply: reply})
	_, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ports.DirectoryChoice{Cancelled: true}, <-reply)
}

func TestProgressModel_Confirm(t *testing.T) {
	t.Parallel()
	m := newProgressModel(context.Background(), newFakeRunner(), ProgressOptions{})

	reply := make(chan int, 1)
	m, _ = update(t, m, confirmRequest{message: "Retry?", buttons: []string{"Retry", "Quit"}, reply: reply})
	assert.Contains(t, m.View(), "Retry?")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, 1, <-reply)
	assert.Nil(t, m.confirm)
}

func TestProgressModel_CancelAnswersPendingPrompt(t *testing.T) {
	t.Parallel()
	m := newProgressModel(context.Background(), newFakeRunner(), ProgressOptions{})

	reply := make(chan ports.DirectoryChoice, 1)
	m, _ = update(t, m, pickRequest{defaultPath: "/default", reply: reply})
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})

	assert.True(t, isQuit(cmd))
	assert.True(t, (<-reply).Cancelled)
}

func TestProgressModel_WindowResize(t *testing.T) {
	t.Parallel()
	m := newProgressModel(context.Background(), newFakeRunner(), ProgressOptions{})

	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Equal(t, 120, m.width)
	assert.Equal(t, 60, m.bar.Width)
}
