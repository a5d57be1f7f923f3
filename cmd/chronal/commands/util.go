package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognitivitydev/Chronal-sub002/pkg/cli"
	"github.com/cognitivitydev/Chronal-sub002/pkg/preset"
	"github.com/cognitivitydev/Chronal-sub002/pkg/rhythm"
)

// testPresetOverride replaces the configured preset store in tests.
var testPresetOverride preset.Store

// openPresets opens the configured preset store. The returned function
// closes it.
func openPresets() (preset.Store, func(), error) {
	if testPresetOverride != nil {
		return testPresetOverride, func() {}, nil
	}
	cfg, err := GetConfig()
	if err != nil {
		return nil, nil, err
	}
	s, err := cfg.OpenPresets()
	if err != nil {
		return nil, nil, fmt.Errorf("open presets: %w", err)
	}
	return s, func() { s.Close() }, nil
}

// readNotation returns arg, or standard input when arg is "-".
func readNotation(cmd *cobra.Command, arg string) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// parseNotation reads and strictly parses a notation argument.
func parseNotation(cmd *cobra.Command, arg string) (rhythm.Rhythm, error) {
	text, err := readNotation(cmd, arg)
	if err != nil {
		return rhythm.Rhythm{}, err
	}
	return rhythm.ParseStrict(text)
}

// output writes result in the --output format, or def when none was given.
func output(cmd *cobra.Command, result any, def cli.OutputFormat) error {
	f := cli.OutputFormat(outputFormat)
	if f == "" {
		f = def
	}
	return cli.Output(cmd.OutOrStdout(), result, f)
}

// rawOutput reports whether the command should print its human-readable
// form.
func rawOutput(def cli.OutputFormat) bool {
	f := cli.OutputFormat(outputFormat)
	if f == "" {
		f = def
	}
	return f == cli.FormatRaw
}

func parseIndex(s, what string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", what, s)
	}
	return n, nil
}

// parseTimeSignature parses "n/d".
func parseTimeSignature(s string) (rhythm.TimeSignature, error) {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return rhythm.TimeSignature{}, fmt.Errorf("time signature must look like 3/4, got %q", s)
	}
	n, err1 := strconv.Atoi(num)
	d, err2 := strconv.Atoi(den)
	ts := rhythm.TimeSignature{Numerator: n, Denominator: d}
	if err1 != nil || err2 != nil || !ts.Valid() {
		return rhythm.TimeSignature{}, fmt.Errorf("%w: %q", rhythm.ErrTimeSignature, s)
	}
	return ts, nil
}
