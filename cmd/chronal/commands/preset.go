package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cognitivitydev/Chronal-sub002/pkg/cli"
	"github.com/cognitivitydev/Chronal-sub002/pkg/preset"
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage saved rhythms",
	Long: `Save, list, inspect, delete, export and import presets.

A preset is a named rhythm with its tempo and lead-in. Presets are stored in
a Badger database under the config directory unless presets.driver is set to
memory. Commands that take a preset accept its ID or its name.`,
}

var presetSaveFlags struct {
	tempo  float64
	leadIn float64
	id     string
}

var presetSaveCmd = &cobra.Command{
	Use:   "save <name> <notation|->",
	Short: "Save a rhythm as a preset",
	Long: `Save a rhythm as a preset. Passing --id updates an existing preset.

Examples:
  chronal preset save groove "{4/4}Q;q;!q;q;" --tempo 110
  chronal preset save groove "{4/4}Q;q;q;q;" --id 6f1c...`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readNotation(cmd, args[1])
		if err != nil {
			return err
		}
		tempo := presetSaveFlags.tempo
		if !cmd.Flags().Changed("tempo") {
			if cfg, err := GetConfig(); err == nil {
				tempo = cfg.Tempo
			}
		}
		store, closeFn, err := openPresets()
		if err != nil {
			return err
		}
		defer closeFn()

		p := &preset.Preset{
			ID:       presetSaveFlags.id,
			Name:     args[0],
			Notation: text,
			Tempo:    tempo,
			LeadInMs: presetSaveFlags.leadIn,
		}
		if p.ID != "" {
			if _, err := store.Get(cmd.Context(), p.ID); err != nil {
				return fmt.Errorf("preset %s: %w", p.ID, err)
			}
		}
		if r, err := p.Rhythm(); err == nil {
			p.Notation = r.String()
		}
		if err := store.Put(cmd.Context(), p); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.ErrOrStderr(), "saved %s (%s)", p.Name, p.ID)
		return output(cmd, p.ID, cli.FormatRaw)
	},
}

var presetListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List presets",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := openPresets()
		if err != nil {
			return err
		}
		defer closeFn()
		presets, err := preset.Collect(store.List(cmd.Context()))
		if err != nil {
			return err
		}
		if !rawOutput(cli.FormatRaw) {
			return output(cmd, presets, cli.FormatRaw)
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tTEMPO\tNOTATION")
		for _, p := range presets {
			fmt.Fprintf(tw, "%s\t%s\t%g\t%s\n", p.ID, p.Name, p.Tempo, p.Notation)
		}
		return tw.Flush()
	},
}

var presetGetCmd = &cobra.Command{
	Use:   "get <id|name>",
	Short: "Show a preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := findPreset(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return output(cmd, p, cli.FormatYAML)
	},
}

var presetDeleteCmd = &cobra.Command{
	Use:     "delete <id|name>",
	Aliases: []string{"rm"},
	Short:   "Delete a preset",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := openPresets()
		if err != nil {
			return err
		}
		defer closeFn()
		p, err := preset.Find(cmd.Context(), store, args[0])
		if err != nil {
			return fmt.Errorf("preset %q: %w", args[0], err)
		}
		if err := store.Delete(cmd.Context(), p.ID); err != nil {
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "deleted %s (%s)", p.Name, p.ID)
		return nil
	},
}

var presetExportFlags struct {
	file   string
	format string
}

var presetExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all presets as JSON or YAML",
	Long: `Export all presets as a JSON (default) or YAML bundle.

Examples:
  chronal preset export -f presets.json
  chronal preset export --format yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeFn, err := openPresets()
		if err != nil {
			return err
		}
		defer closeFn()
		presets, err := preset.Collect(store.List(cmd.Context()))
		if err != nil {
			return err
		}

		var w io.Writer = cmd.OutOrStdout()
		if f := presetExportFlags.file; f != "" && f != "-" {
			file, err := os.Create(f)
			if err != nil {
				return err
			}
			defer file.Close()
			w = file
		}
		switch presetExportFlags.format {
		case "json":
			return preset.ExportJSON(w, presets)
		case "yaml":
			return preset.ExportYAML(w, presets)
		}
		return fmt.Errorf("unsupported export format: %s", presetExportFlags.format)
	},
}

var presetImportCmd = &cobra.Command{
	Use:   "import <file|->",
	Short: "Import presets from a JSON export",
	Long: `Import presets from a JSON bundle written by 'chronal preset export'.
Presets keep their IDs, so importing the same file twice updates in place.
Nothing is imported when any preset in the file is invalid.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}
		store, closeFn, err := openPresets()
		if err != nil {
			return err
		}
		defer closeFn()
		n, err := preset.ImportInto(cmd.Context(), store, r)
		if err != nil {
			if errors.Is(err, preset.ErrInvalid) {
				return fmt.Errorf("import rejected: %w", err)
			}
			return err
		}
		cli.PrintSuccess(cmd.OutOrStdout(), "imported %d presets", n)
		return nil
	},
}

func init() {
	presetSaveCmd.Flags().Float64VarP(&presetSaveFlags.tempo, "tempo", "t", 120, "tempo in beats per minute (default from config)")
	presetSaveCmd.Flags().Float64Var(&presetSaveFlags.leadIn, "lead-in", 0, "silence before the first click, in ms")
	presetSaveCmd.Flags().StringVar(&presetSaveFlags.id, "id", "", "update the preset with this ID")

	presetExportCmd.Flags().StringVarP(&presetExportFlags.file, "file", "f", "", "output file (default stdout)")
	presetExportCmd.Flags().StringVar(&presetExportFlags.format, "format", "json", "export format: json or yaml")

	presetCmd.AddCommand(presetSaveCmd, presetListCmd, presetGetCmd, presetDeleteCmd, presetExportCmd, presetImportCmd)
	rootCmd.AddCommand(presetCmd)
}
