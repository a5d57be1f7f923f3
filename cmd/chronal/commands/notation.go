package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognitivitydev/Chronal-sub002/pkg/cli"
	"github.com/cognitivitydev/Chronal-sub002/pkg/rhythm"
)

// summary is the structured form of fmt output.
type summary struct {
	Notation string   `json:"notation" yaml:"notation"`
	Measures int      `json:"measures" yaml:"measures"`
	Atoms    int      `json:"atoms" yaml:"atoms"`
	Duration float64  `json:"duration" yaml:"duration"`
	Problems []string `json:"problems,omitempty" yaml:"problems,omitempty"`
}

var fmtCheck bool

var fmtCmd = &cobra.Command{
	Use:   "fmt <notation|->",
	Short: "Parse notation and print it in canonical form",
	Long: `Parse notation and print it in canonical form.

With --check the command fails when a measure does not add up to its time
signature.

Examples:
  chronal fmt "{4/4}Q;q;q;q;"
  echo "{3/4}H.;" | chronal fmt -
  chronal fmt "{4/4}Q;q;" --check -o json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := parseNotation(cmd, args[0])
		if err != nil {
			return err
		}
		verr := rhythm.Validate(r)
		if rawOutput(cli.FormatRaw) {
			if err := output(cmd, r.String(), cli.FormatRaw); err != nil {
				return err
			}
		} else {
			s := summary{
				Notation: r.String(),
				Measures: len(r.Measures),
				Atoms:    r.AtomCount(),
				Duration: r.Duration(),
			}
			if verr != nil {
				s.Problems = []string{verr.Error()}
			}
			if err := output(cmd, s, cli.FormatRaw); err != nil {
				return err
			}
		}
		if fmtCheck && verr != nil {
			return verr
		}
		return nil
	},
}

// atomRow is one line of atoms output.
type atomRow struct {
	Index    int     `json:"index" yaml:"index"`
	Glyph    string  `json:"glyph" yaml:"glyph"`
	Measure  int     `json:"measure" yaml:"measure"`
	Element  int     `json:"element" yaml:"element"`
	Inner    int     `json:"inner" yaml:"inner"`
	Duration float64 `json:"duration" yaml:"duration"`
	Rest     bool    `json:"rest,omitempty" yaml:"rest,omitempty"`
	Tuplet   string  `json:"tuplet,omitempty" yaml:"tuplet,omitempty"`
}

var atomsCmd = &cobra.Command{
	Use:   "atoms <notation|->",
	Short: "List the atoms of a rhythm with their positions",
	Long: `List every note and rest in order with its global index, position and
duration in whole notes. The index is what the edit commands take.

Examples:
  chronal atoms "{4/4}Q;3:2[E:e:e];h;"
  chronal atoms "{4/4}Q;3:2[E:e:e];h;" -o raw`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := parseNotation(cmd, args[0])
		if err != nil {
			return err
		}
		rows := make([]atomRow, 0, r.AtomCount())
		for i, pos := range r.Positions() {
			a, _ := r.At(pos)
			row := atomRow{
				Index:    i,
				Glyph:    a.Glyph(),
				Measure:  pos.Measure,
				Element:  pos.Element,
				Inner:    pos.Inner,
				Duration: a.Duration(),
				Rest:     a.IsRest(),
			}
			if ratio := a.TupletRatio(); !ratio.IsZero() {
				row.Tuplet = ratio.String()
			}
			rows = append(rows, row)
		}
		if !rawOutput(cli.FormatYAML) {
			return output(cmd, rows, cli.FormatYAML)
		}
		out := cmd.OutOrStdout()
		for _, row := range rows {
			pos := fmt.Sprintf("%d.%d", row.Measure+1, row.Element+1)
			if row.Inner >= 0 {
				pos += fmt.Sprintf(".%d", row.Inner+1)
			}
			fmt.Fprintf(out, "%4d  %-4s %-8s %.6g\n", row.Index, row.Glyph, pos, row.Duration)
		}
		return nil
	},
}

var beatsCmd = &cobra.Command{
	Use:   "beats <notation|->",
	Short: "Draw beat markers for a rhythm",
	Long: `Draw one line per measure: accented notes, plain notes, sustain and rests,
one cell per sixteenth note. With -o yaml or -o json the beat list is printed
instead.

Examples:
  chronal beats "{4/4}Q;q;!q;q;|{3/4}H.;"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := parseNotation(cmd, args[0])
		if err != nil {
			return err
		}
		if !rawOutput(cli.FormatRaw) {
			return output(cmd, rhythm.Beats(r), cli.FormatRaw)
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.RenderBeats(r, cli.NewStyles(cli.DefaultTheme)))
		return nil
	},
}

func init() {
	fmtCmd.Flags().BoolVar(&fmtCheck, "check", false, "fail when a measure is unbalanced")
	rootCmd.AddCommand(fmtCmd, atomsCmd, beatsCmd)
}
