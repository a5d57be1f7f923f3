package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cognitivitydev/Chronal-sub002/pkg/cli"
)

var (
	// Global flags
	verbose      bool
	outputFormat string
	configFile   string

	// globalConfig is loaded on first use.
	globalConfig *cli.Config
)

var rootCmd = &cobra.Command{
	Use:   "chronal",
	Short: "Rhythm notation tools and click-track metronome",
	Long: `chronal - edit rhythms in compact notation and render them as click tracks.

Notation:
  {4/4}Q;q;!q;3:2[E:e:e];|{2/4}h;

  {n/d}     time signature, starts a measure
  w h q e   whole, half, quarter, eighth (then s t x o u v m)
  UPPER     accented note, lower case is unaccented
  !         rest
  . ,       one or two dots
  3:2[...]  tuplet: three notes in the time of two, atoms separated by ':'
  |         measure separator

Configuration is read from $CHRONAL_CONFIG_DIR/config.yaml or the OS
config directory (chronal/config.yaml). Use 'chronal config' to change it.

Examples:
  chronal fmt "{4/4}Q;q;q;q;"
  chronal beats "{6/8}E;e;e;E;e;e;"
  chronal edit tuplet "{4/4}Q;q;q;q;" 0 3
  chronal render "{4/4}Q;q;q;q;" --tempo 96 -f click.wav
  chronal preset save groove "{4/4}Q;q;!q;q;" --tempo 110
  chronal serve --addr :8080 --preset groove`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogging(cmd)
		_, err := cli.ParseOutputFormat(outputFormat)
		return err
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "", "output format: yaml, json or raw")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $CHRONAL_CONFIG_DIR/config.yaml)")
}

func setupLogging(cmd *cobra.Command) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
}

// GetConfig returns the configuration, loading it on first use.
func GetConfig() (*cli.Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}
	var (
		cfg *cli.Config
		err error
	)
	if configFile != "" {
		cfg, err = cli.LoadConfigFrom(configFile)
	} else {
		cfg, err = cli.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("config not available: %w", err)
	}
	globalConfig = cfg
	return cfg, nil
}

// IsVerbose returns whether verbose mode is enabled.
func IsVerbose() bool {
	return verbose
}
