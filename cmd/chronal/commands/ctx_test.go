package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/cognitivitydev/Chronal-sub002/pkg/cli"
	"github.com/cognitivitydev/Chronal-sub002/pkg/preset"
)

// setupTestEnv points the config at a temp dir and swaps in a shared
// in-memory preset store.
func setupTestEnv(t *testing.T) (dir string, store *preset.Memory) {
	t.Helper()
	dir = t.TempDir()
	t.Setenv(cli.EnvConfigDir, dir)
	store = preset.NewMemory()
	testPresetOverride = store
	t.Cleanup(func() { testPresetOverride = nil })
	return dir, store
}

func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()
	return runCmdIn(t, "", args...)
}

func runCmdIn(t *testing.T, stdin string, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer
	verbose = false
	outputFormat = ""
	configFile = ""
	globalConfig = nil

	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&outBuf)
	rootCmd.SetErr(&errBuf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	stdout = outBuf.String()
	stderr = errBuf.String()
	if err != nil {
		exitCode = 1
		stderr += err.Error()
	}

	resetFlags(rootCmd)
	rootCmd.SetIn(nil)
	rootCmd.SetOut(nil)
	rootCmd.SetErr(nil)
	return
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Changed = false
		f.Value.Set(f.DefValue)
	})
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}
