package setup

import (
	"sync"
	"testing"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/testutil/mocks"
)

const agentPath = "/opt/echosoul/agent"

type fixture struct {
	settings *mocks.SettingsStore
	sup      *mocks.Supervisor
	health   *mocks.HealthChecker
	prompter *mocks.Prompter
	procs    *mocks.ProcessLister
	env      Env
}

func newFixture(t *testing.T, saved map[string]string) *fixture {
	t.Helper()

	f := &fixture{
		settings: mocks.NewSettingsStore(saved),
		sup:      mocks.NewSupervisor(),
		health:   mocks.NewHealthChecker(),
		prompter: mocks.NewPrompter("/dst"),
		procs:    mocks.NewProcessLister("launchd", "WeChat"),
	}
	f.env = Env{
		Settings:   f.settings,
		Supervisor: f.sup,
		Health:     f.health,
		Prompter:   f.prompter,
		Processes:  f.procs,
		Agent: AgentConfig{
			Path:           agentPath,
			DataDir:        "/src",
			DefaultWorkDir: "/home/me/Documents/EchoSoul/data",
		}.withDefaults(),
		Logger: ports.Discard,
	}
	return f
}

// happyPath registers agent results for a full successful run.
func (f *fixture) happyPath() {
	f.sup.AddResult(agentPath, []string{"key"}, ports.CommandResult{Stdout: "ABC123\n"})
	f.sup.AddResult(agentPath, decryptArgs("/src", "/dst", "ABC123"), ports.CommandResult{})
}

func decryptArgs(dataDir, workDir, key string) []string {
	return []string{"decrypt", "--data-dir", dataDir, "--work-dir", workDir, "--key", key}
}

func (f *fixture) orchestrator(t *testing.T, opts ...Option) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(f.env, opts...)
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return o
}

// recorder captures listener events.
type recorder struct {
	mu        sync.Mutex
	states    []State
	completed int
	errs      []StepError
	logs      []LogEntry
}

func (r *recorder) OnStateChanged(st State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, st)
}

func (r *recorder) OnCompleted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
}

func (r *recorder) OnError(err StepError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) OnLog(entry LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, entry)
}

func (r *recorder) snapshot() ([]State, int, []StepError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...), r.completed, append([]StepError(nil), r.errs...)
}

// sawStatus reports whether step was ever observed with status.
func (r *recorder) sawStatus(step Step, status StepStatus) bool {
	states, _, _ := r.snapshot()
	for _, st := range states {
		if st.Steps[step].Status == status {
			return true
		}
	}
	return false
}

// reportLog records Reporter calls.
type reportLog struct {
	mu       sync.Mutex
	calls    []string
	actions  []string
	progress []int
}

func (r *reportLog) AwaitInput(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "await")
	r.actions = append(r.actions, action)
}

func (r *reportLog) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "resume")
}

func (r *reportLog) SetUserAction(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "action")
	r.actions = append(r.actions, action)
}

func (r *reportLog) SetProgress(percent int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, percent)
}
