package setup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/domain/health"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/domain/process"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

// Executor performs one step. It must not panic and must not touch
// orchestrator state; everything it learns goes into the returned Outcome.
type Executor func(ctx context.Context, env *Env, r Reporter) Outcome

// Executors maps each step to its default executor.
func Executors() map[Step]Executor {
	return map[Step]Executor{
		StepCheckPrerequisite: CheckPrerequisite,
		StepObtainKey:         ObtainKey,
		StepSelectDirectory:   SelectDirectory,
		StepDecryptStore:      DecryptStore,
		StepStartServer:       StartServer,
	}
}

// safeExecute runs exec and converts a panic into an unknown-error outcome.
func safeExecute(ctx context.Context, exec Executor, env *Env, r Reporter) (out Outcome) {
	defer func() {
		if rec := recover(); rec != nil {
			out = Fail(KindUnknown, fmt.Sprintf("%s: %v", MsgUnknownError, rec))
		}
	}()
	out = exec(ctx, env, r)
	if !out.Success {
		out = Fail(out.Kind, out.Message).WithUserAction(out.UserAction).WithErr(out.Err)
	}
	return out
}

// CheckPrerequisite succeeds when the host application is running.
func CheckPrerequisite(ctx context.Context, env *Env, r Reporter) Outcome {
	if ports.SettingEnabled(env.Settings, ports.SettingSkipPrerequisite) {
		return Succeed("prerequisite check skipped", PrerequisiteFound{Skipped: true})
	}

	names, err := env.Processes.ProcessNames(ctx)
	if err != nil {
		return Fail(KindUnknown, fmt.Sprintf("list processes: %v", err)).WithErr(err)
	}
	r.SetProgress(50)

	found := matchProcesses(names, env.Agent.PrerequisiteProcesses)
	if len(found) == 0 {
		return Fail(KindPrerequisiteNotRunning, MsgPrerequisiteNotRunning).
			WithUserAction(ActionStartPrerequisite)
	}
	return Succeed("found "+strings.Join(found, ", "), PrerequisiteFound{Processes: found})
}

// ObtainKey reuses a saved key or asks the agent to extract one.
func ObtainKey(ctx context.Context, env *Env, _ Reporter) Outcome {
	if key, ok := env.Settings.Get(ports.SettingSecretKey); ok {
		return Succeed("using saved key", KeyObtained{Key: key, Cached: true})
	}

	res, err := env.Supervisor.Run(ctx, env.Agent.Path, agentCmdKey)
	if err != nil {
		return invocationFailure(err)
	}
	if !res.Success() {
		return Fail(KindKeyExtractionFailed, res.FailureMessage())
	}

	key := lastLine(res.Stdout)
	if key == "" {
		return Fail(KindKeyExtractionFailed, "agent returned an empty key")
	}
	if err := env.Settings.Set(ports.SettingSecretKey, key); err != nil {
		return Fail(KindSettings, fmt.Sprintf("save key: %v", err)).WithErr(err)
	}
	return Succeed("key obtained", KeyObtained{Key: key})
}

// SelectDirectory reuses a saved storage directory or asks the user for one.
func SelectDirectory(ctx context.Context, env *Env, r Reporter) Outcome {
	if dir, ok := env.Settings.Get(ports.SettingWorkDir); ok {
		return Succeed("using saved directory", DirectorySelected{Path: dir, Cached: true})
	}

	r.AwaitInput(ActionPickDirectory)
	choice, err := env.Prompter.PickDirectory(ctx, env.Agent.DefaultWorkDir)
	r.Resume()
	if err != nil {
		return Fail(KindUnknown, fmt.Sprintf("directory picker: %v", err)).WithErr(err)
	}

	path := strings.TrimSpace(choice.Path)
	if choice.Cancelled || path == "" {
		return Fail(KindDirectorySelectionCancelled, MsgUserCancelled).
			WithUserAction(ActionPickDirectory)
	}
	if err := env.Settings.Set(ports.SettingWorkDir, path); err != nil {
		return Fail(KindSettings, fmt.Sprintf("save directory: %v", err)).WithErr(err)
	}
	return Succeed("directory selected", DirectorySelected{Path: path})
}

// DecryptStore decrypts the source data into the storage directory.
func DecryptStore(ctx context.Context, env *Env, r Reporter) Outcome {
	key, ok := env.Settings.Get(ports.SettingSecretKey)
	if !ok {
		return Fail(KindKeyMissing, MsgKeyMissing)
	}
	workDir, ok := env.Settings.Get(ports.SettingWorkDir)
	if !ok {
		return Fail(KindDecryptionFailed, "no storage directory selected")
	}
	dataDir, out, ok := sourceDir(ctx, env, r)
	if !ok {
		return out
	}

	r.SetUserAction(ActionDecryptSlow)
	res, err := env.Supervisor.Run(ctx, env.Agent.Path, agentCmdDecrypt,
		"--data-dir", dataDir,
		"--work-dir", workDir,
		"--key", key,
	)
	if err != nil {
		return invocationFailure(err)
	}
	if !res.Success() {
		return Fail(KindDecryptionFailed, res.FailureMessage())
	}
	return Succeed("data decrypted", DataDecrypted{DataDir: dataDir, WorkDir: workDir})
}

// StartServer makes sure a healthy agent server is listening.
// A healthy server that is already reachable is reused even when this
// process did not spawn it.
func StartServer(ctx context.Context, env *Env, r Reporter) Outcome {
	addr := env.Agent.Address
	reused := ServerStarted{Address: addr, Reused: true}

	if env.Supervisor.Running() {
		if env.Health.CheckHealth(ctx, env.Agent.HealthPath, health.DefaultHealthTimeout) {
			return Succeed("service already running", reused)
		}
		env.Logger.Warn(ctx, "agent server is running but unhealthy, restarting")
		if err := env.Supervisor.Shutdown(ctx); err != nil {
			env.Logger.Warn(ctx, "stop unhealthy agent server", ports.Err(err))
		}
	} else if env.Health.CheckHealth(ctx, env.Agent.HealthPath, health.DefaultHealthTimeout) {
		return Succeed("service already reachable", reused)
	}

	workDir, ok := env.Settings.Get(ports.SettingWorkDir)
	if !ok {
		return Fail(KindSettings, "no storage directory selected")
	}

	r.SetProgress(10)
	err := env.Supervisor.Launch(ctx, env.Agent.Path, agentCmdServer,
		"--work-dir", workDir,
		"--addr", addr,
	)
	if err != nil {
		return invocationFailure(err)
	}
	r.SetProgress(50)

	if err := env.Health.PollUntilReady(ctx, env.Agent.HealthPath, env.Agent.ReadinessAttempts, env.Agent.ReadinessInterval); err != nil {
		if stopErr := env.Supervisor.Shutdown(context.WithoutCancel(ctx)); stopErr != nil {
			env.Logger.Warn(ctx, "stop agent server after failed start", ports.Err(stopErr))
		}
		if errors.Is(err, health.ErrReadinessTimeout) {
			return Fail(KindReadinessTimeout, MsgServerNotReady).WithErr(err)
		}
		return Fail(KindUnknown, err.Error()).WithErr(err)
	}
	return Succeed("service ready at "+addr, ServerStarted{Address: addr})
}

func invocationFailure(err error) Outcome {
	if errors.Is(err, process.ErrSpawn) {
		return Fail(KindSpawn, err.Error()).WithErr(err)
	}
	return Fail(KindUnknown, err.Error()).WithErr(err)
}

// sourceDir resolves the encrypted source directory: the saved setting, then
// the configured one, then the user's pick, which is saved for later runs.
func sourceDir(ctx context.Context, env *Env, r Reporter) (string, Outcome, bool) {
	if dir, ok := env.Settings.Get(ports.SettingDataDir); ok && dir != "" {
		return dir, Outcome{}, true
	}
	if dir := strings.TrimSpace(env.Agent.DataDir); dir != "" {
		return dir, Outcome{}, true
	}

	r.AwaitInput(ActionPickDataDir)
	choice, err := env.Prompter.PickDirectory(ctx, env.Agent.DefaultDataDir)
	r.Resume()
	if err != nil {
		return "", Fail(KindUnknown, fmt.Sprintf("directory picker: %v", err)).WithErr(err), false
	}

	dir := strings.TrimSpace(choice.Path)
	if choice.Cancelled || dir == "" {
		return "", Fail(KindDecryptionFailed, "no source data directory selected").
			WithUserAction(ActionPickDataDir), false
	}
	if err := env.Settings.Set(ports.SettingDataDir, dir); err != nil {
		return "", Fail(KindSettings, fmt.Sprintf("save data directory: %v", err)).WithErr(err), false
	}
	return dir, Outcome{}, true
}

func matchProcesses(running, wanted []string) []string {
	want := make(map[string]struct{}, len(wanted))
	for _, name := range wanted {
		want[normalizeProcessName(name)] = struct{}{}
	}

	var found []string
	seen := make(map[string]struct{})
	for _, name := range running {
		key := normalizeProcessName(name)
		if _, ok := want[key]; !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		found = append(found, strings.TrimSpace(name))
	}
	return found
}

func normalizeProcessName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(name, ".exe")
}

// lastLine returns the last non-empty line of s, trimmed.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
