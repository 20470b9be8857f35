package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/adapters/logging"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/adapters/prompt"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/app"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/domain/setup"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/tui"
)

// shutdownTimeout bounds how long stopping the local service may take.
const shutdownTimeout = 15 * time.Second

var errInitCancelled = errors.New("initialization cancelled")

var (
	initNoTUI       bool
	initKeepRunning bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Prepare the local data service",
	Long: `Init runs every setup step that has not completed yet and starts the local
service. When a saved key and storage directory exist, it starts the service
directly and falls back to the full sequence only if that fails.

On failure you can retry the failed step; earlier steps are not repeated.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initNoTUI, "no-tui", false, "print plain progress lines instead of the interactive view")
	initCmd.Flags().BoolVar(&initKeepRunning, "keep-running", false, "keep the service running until interrupted")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return explain(err)
	}

	useTUI := !initNoTUI && isTerminal(os.Stdin) && isTerminal(os.Stdout)

	var (
		view     *tui.Prompter
		terminal *prompt.Terminal
		opts     []app.Option
	)
	if useTUI {
		view = tui.NewPrompter()
		// The view shows relayed log lines; console output would tear it.
		opts = append(opts, app.WithPrompter(view), app.WithLogger(logging.NewNopLogger()))
	} else {
		terminal = prompt.NewTerminal(cmd.InOrStdin(), cmd.ErrOrStderr())
		opts = append(opts, app.WithPrompter(terminal))
	}

	a, err := app.New(cfg, opts...)
	if err != nil {
		return explain(err)
	}
	defer closeApp(a)

	if useTUI {
		err = initWithView(ctx, a, view)
	} else {
		err = initPlain(ctx, cmd.OutOrStdout(), a, terminal)
	}
	if err != nil {
		return explain(err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Local service ready at %s\n", cfg.BaseURL())
	if !initKeepRunning {
		return nil
	}

	printStatus(out, cfg, a.Status(ctx))
	_, _ = fmt.Fprintln(out, "Press Ctrl+C to stop it.")
	<-ctx.Done()
	_, _ = fmt.Fprintln(out, "Stopping local service...")
	return nil
}

func initWithView(ctx context.Context, a *app.App, view *tui.Prompter) error {
	res, err := tui.RunProgress(ctx, a.Orchestrator(), tui.ProgressOptions{Prompter: view})
	if err != nil {
		return err
	}
	switch {
	case res.Completed:
		return nil
	case res.Failure != nil:
		return res.Failure
	default:
		return errInitCancelled
	}
}

// initPlain runs the orchestrator with line output, offering a retry of the
// failed step until it succeeds or the user quits.
func initPlain(ctx context.Context, out io.Writer, a *app.App, p ports.Prompter) error {
	orch := a.Orchestrator()

	printer := newStepPrinter(out)
	unsubscribe := orch.Subscribe(setup.ListenerFuncs{StateChanged: printer.print})
	defer unsubscribe()

	err := orch.Start(ctx)
	for {
		var stepErr *setup.StepError
		if !errors.As(err, &stepErr) || yesFlag {
			return err
		}
		choice, perr := p.Confirm(ctx, stepErr.Message, []string{"Retry", "Quit"})
		if perr != nil || choice != 0 {
			return err
		}
		err = orch.RetryCurrentStep(ctx)
	}
}

func closeApp(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		a.Logger().Warn(ctx, "shutdown incomplete", ports.Err(err))
	}
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}

var (
	okMark   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Render("✓")
	failMark = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Render("✗")
	waitMark = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Render("?")
	runMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Render("→")
)

// stepPrinter writes one line per step status change.
type stepPrinter struct {
	mu   sync.Mutex
	out  io.Writer
	seen map[setup.Step]setup.StepStatus
}

func newStepPrinter(out io.Writer) *stepPrinter {
	return &stepPrinter{out: out, seen: map[setup.Step]setup.StepStatus{}}
}

func (p *stepPrinter) print(st setup.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, rec := range st.Ordered() {
		if p.seen[rec.Step] == rec.Status {
			continue
		}
		p.seen[rec.Step] = rec.Status

		var line string
		switch rec.Status {
		case setup.StatusInProgress:
			line = fmt.Sprintf("%s %s", runMark, rec.Title)
		case setup.StatusWaitingUserInput:
			line = fmt.Sprintf("%s %s: %s", waitMark, rec.Title, rec.UserAction)
		case setup.StatusSuccess:
			line = fmt.Sprintf("%s %s: %s", okMark, rec.Title, rec.Description)
		case setup.StatusError:
			line = fmt.Sprintf("%s %s: %s", failMark, rec.Title, rec.Error)
		default:
			continue
		}
		_, _ = fmt.Fprintf(p.out, "[%3d%%] %s\n", st.OverallProgress, line)
	}
}
