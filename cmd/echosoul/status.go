package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/adapters/logging"
	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/app"
)

var labelStyle = lipgloss.NewStyle().Bold(true)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show saved settings and whether the local service responds",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return explain(err)
	}

	a, err := app.New(cfg, app.WithLogger(logging.NewNopLogger()))
	if err != nil {
		return explain(err)
	}
	defer closeApp(a)

	printStatus(cmd.OutOrStdout(), cfg, a.Status(cmd.Context()))
	return nil
}

func printStatus(w io.Writer, cfg app.Config, st app.Status) {
	row := func(label, value string) {
		_, _ = fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-13s", label+":")), value)
	}

	row("Settings", st.SettingsPath)
	row("Data key", orDefault(st.Key, "not saved"))
	row("Storage", orDefault(st.WorkDir, "not selected"))
	row("Source data", orDefault(st.DataDir, "not configured"))

	service := cfg.BaseURL() + " (not responding)"
	if st.Healthy {
		service = cfg.BaseURL() + " (healthy)"
	}
	row("Service", service)
	if st.Server != nil {
		row("Server", fmt.Sprintf("pid %d, up %s", st.Server.PID, st.Server.Uptime(time.Now())))
		row("Command", st.Server.Command)
	}

	initialized := "no, run 'echosoul init'"
	if st.Initialized() {
		initialized = "yes"
	}
	row("Initialized", initialized)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
