package command

import (
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

// ProcessLister lists running process names by shelling out to the
// platform's process table tool.
type ProcessLister struct {
	runner ports.CommandRunner
	goos   string
}

// NewProcessLister creates a ProcessLister for the current platform.
func NewProcessLister(runner ports.CommandRunner) *ProcessLister {
	return &ProcessLister{runner: runner, goos: runtime.GOOS}
}

// ProcessNames returns the executable base names of all visible processes.
func (l *ProcessLister) ProcessNames(ctx context.Context) ([]string, error) {
	if l.goos == "windows" {
		return l.windowsNames(ctx)
	}
	return l.unixNames(ctx)
}

func (l *ProcessLister) unixNames(ctx context.Context) ([]string, error) {
	res, err := l.runner.Run(ctx, "ps", "-A", "-o", "comm=")
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	if !res.Success() {
		return nil, fmt.Errorf("list processes: %s", res.FailureMessage())
	}

	var names []string
	for _, line := range strings.Split(res.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		names = append(names, filepath.Base(line))
	}
	return names, nil
}

func (l *ProcessLister) windowsNames(ctx context.Context) ([]string, error) {
	res, err := l.runner.Run(ctx, "tasklist", "/FO", "CSV", "/NH")
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	if !res.Success() {
		return nil, fmt.Errorf("list processes: %s", res.FailureMessage())
	}

	r := csv.NewReader(strings.NewReader(res.Stdout))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse tasklist output: %w", err)
	}

	names := make([]string, 0, len(records))
	for _, rec := range records {
		if len(rec) == 0 || rec[0] == "" {
			continue
		}
		names = append(names, rec[0])
	}
	return names, nil
}

var _ ports.ProcessLister = (*ProcessLister)(nil)
