package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/adapters/logging"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/adapters/prompt"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/app"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the saved key and storage directory",
	Long: `Reset clears the persisted settings so the next 'echosoul init' runs every
step again. Decrypted data already written to the storage directory is kept.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	cfg, err := loadConfig()
	if err != nil {
		return explain(err)
	}

	a, err := app.New(cfg, app.WithLogger(logging.NewNopLogger()))
	if err != nil {
		return explain(err)
	}
	defer closeApp(a)

	if !yesFlag {
		term := prompt.NewTerminal(cmd.InOrStdin(), cmd.ErrOrStderr())
		choice, err := term.Confirm(ctx, "Clear the saved key and storage directory?", []string{"Cancel", "Reset"})
		if err != nil {
			return err
		}
		if choice != 1 {
			_, _ = fmt.Fprintln(out, "Reset cancelled.")
			return nil
		}
	}

	if err := a.Orchestrator().Reset(ctx); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Cleared %s\n", a.Settings().Path())
	return nil
}
