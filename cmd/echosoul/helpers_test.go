package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/adapters/settings"
)

// resetGlobals restores flag variables between command runs and points the
// config directory at a temp dir.
func resetGlobals(t *testing.T) {
	t.Helper()
	cfgFile, verbose, logJSON = "", false, false
	agentPath, agentAddr, dataDir, settingsPath = "", "", "", ""
	skipPrerequisite, yesFlag = false, false
	initNoTUI, initKeepRunning = false, false
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}

// savedSettings writes values to a fresh settings file and returns its path.
func savedSettings(t *testing.T, values map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	store, err := settings.Open(path)
	require.NoError(t, err)
	for k, v := range values {
		require.NoError(t, store.Set(k, v))
	}
	return path
}
