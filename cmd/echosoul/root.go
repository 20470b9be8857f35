package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/app"
)

var (
	// Global flags
	cfgFile          string
	verbose          bool
	logJSON          bool
	agentPath        string
	agentAddr        string
	dataDir          string
	settingsPath     string
	skipPrerequisite bool
	yesFlag          bool
)

var rootCmd = &cobra.Command{
	Use:   "echosoul",
	Short: "Prepare the local EchoSoul data service",
	Long: `EchoSoul prepares the local data service it reads chat history from.

Initialization runs in order:
  Check host application → Obtain data key → Choose storage directory →
  Decrypt data → Start local service

Completed steps are saved, so later runs go straight to starting the service.`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: "+app.DefaultConfigPath()+")")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.BoolVar(&logJSON, "log-json", false, "write logs as JSON")
	flags.StringVar(&agentPath, "agent", "", "path to the agent executable")
	flags.StringVar(&agentAddr, "addr", "", "host:port the local service listens on")
	flags.StringVar(&dataDir, "data-dir", "", "source data directory passed to the agent")
	flags.StringVar(&settingsPath, "settings", "", "settings file (.yaml or .toml)")
	flags.BoolVar(&skipPrerequisite, "skip-prerequisite", false, "skip the host application check")
	flags.BoolVarP(&yesFlag, "yes", "y", false, "auto-confirm all prompts")

	registerFlagCompletions()

	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig() (app.Config, error) {
	cfg, err := app.LoadConfig(cfgFile)
	if err != nil {
		return app.Config{}, err
	}

	if agentPath != "" {
		cfg.Agent.Path = agentPath
	}
	if agentAddr != "" {
		cfg.Agent.Address = agentAddr
	}
	if dataDir != "" {
		cfg.Agent.DataDir = dataDir
	}
	if settingsPath != "" {
		cfg.SettingsPath = settingsPath
	}
	if skipPrerequisite {
		cfg.SkipPrerequisite = true
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	if logJSON {
		cfg.Log.JSON = true
	}

	return cfg, cfg.Validate()
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the user message and suggestion.
// With verbose=true: also shows the underlying technical error.
func formatError(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		msg := userErr.Message
		if userErr.Context != "" {
			msg += fmt.Sprintf(" (at %s)", userErr.Context)
		}
		if userErr.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", userErr.Suggestion)
		}
		if verbose && userErr.Underlying != nil {
			msg += fmt.Sprintf("\n\nTechnical details: %v", userErr.Underlying)
		}
		return msg
	}
	return err.Error()
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}

// registerFlagCompletions sets up custom completions for global flags.
func registerFlagCompletions() {
	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	})

	_ = rootCmd.RegisterFlagCompletionFunc("settings", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml", "toml"}, cobra.ShellCompDirectiveFilterFileExt
	})

	_ = rootCmd.RegisterFlagCompletionFunc("data-dir", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveFilterDirs
	})
}
