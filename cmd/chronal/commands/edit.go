package commands

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cognitivitydev/Chronal-sub002/pkg/cli"
	"github.com/cognitivitydev/Chronal-sub002/pkg/rhythm"
)

var editScaled bool

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit a rhythm and print the result",
	Long: `Edit a rhythm and print the resulting notation.

Edits keep every measure balanced: shortening a note fills the gap with
rests, lengthening it consumes the following atoms. An edit that cannot be
applied leaves the rhythm unchanged and logs a warning.

Use 'chronal atoms' to find atom indexes.`,
}

var editReplaceCmd = &cobra.Command{
	Use:   "replace <notation|-> <index> <element>",
	Short: "Replace the atom at index with a note, rest or tuplet",
	Long: `Replace the atom at index with an element written in notation form.

Inside a tuplet the new element is written at its printed value; pass
--scaled when the element already carries the tuplet ratio.

Examples:
  chronal edit replace "{4/4}Q;q;q;q;" 1 e
  chronal edit replace "{4/4}Q;q;q;q;" 1 "!h"
  chronal edit replace "{4/4}Q;q;q;q;" 2 "3:2[E:e:e]" --scaled`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := parseNotation(cmd, args[0])
		if err != nil {
			return err
		}
		index, err := parseIndex(args[1], "index")
		if err != nil {
			return err
		}
		e, err := rhythm.ParseElement(args[2])
		if err != nil {
			return err
		}
		return printEdit(cmd, r, rhythm.ReplaceNote(r, index, e, editScaled))
	},
}

var editTimesigCmd = &cobra.Command{
	Use:   "timesig <notation|-> <measure> <n/d>",
	Short: "Change the time signature of a measure",
	Long: `Change the time signature of the measure at the given zero-based index.

The measure is trimmed or padded with rests to fit the new signature.

Examples:
  chronal edit timesig "{4/4}Q;q;q;q;" 0 3/4
  chronal edit timesig "{4/4}Q;q;q;q;" 0 7/8`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := parseNotation(cmd, args[0])
		if err != nil {
			return err
		}
		measure, err := parseIndex(args[1], "measure")
		if err != nil {
			return err
		}
		ts, err := parseTimeSignature(args[2])
		if err != nil {
			return err
		}
		return printEdit(cmd, r, rhythm.SetTimeSignature(r, measure, ts))
	},
}

var editTupletCmd = &cobra.Command{
	Use:   "tuplet <notation|-> <index> <count>",
	Short: "Split the atom at index into a tuplet of count notes",
	Long: `Split the atom at index into count equal notes that together last as
long as the original atom.

Examples:
  chronal edit tuplet "{4/4}Q;q;q;q;" 0 3
  chronal edit tuplet "{6/8}Q.;q.;" 1 2`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := parseNotation(cmd, args[0])
		if err != nil {
			return err
		}
		index, err := parseIndex(args[1], "index")
		if err != nil {
			return err
		}
		count, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("count: %w", err)
		}
		tp, ok := rhythm.CreateTupletAt(r, index, count)
		if !ok {
			return fmt.Errorf("%w: cannot split atom %d into %d", rhythm.ErrTuplet, index, count)
		}
		return printEdit(cmd, r, rhythm.ReplaceNote(r, index, tp, true))
	},
}

var editResizeCmd = &cobra.Command{
	Use:   "resize <notation|-> <index> <count>",
	Short: "Change the note count of the tuplet containing index",
	Long: `Rebuild the tuplet containing the atom at index with count notes over the
same span.

Examples:
  chronal edit resize "{4/4}3:2[E:e:e];h.;" 0 5`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := parseNotation(cmd, args[0])
		if err != nil {
			return err
		}
		index, err := parseIndex(args[1], "index")
		if err != nil {
			return err
		}
		count, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("count: %w", err)
		}
		return printEdit(cmd, r, rhythm.SetTupletCount(r, index, count))
	},
}

func printEdit(cmd *cobra.Command, before, after rhythm.Rhythm) error {
	if after.Equal(before) {
		slog.Warn("edit not applied; rhythm unchanged")
	}
	return output(cmd, after.String(), cli.FormatRaw)
}

func init() {
	editReplaceCmd.Flags().BoolVar(&editScaled, "scaled", false, "element already carries the tuplet ratio")
	editCmd.AddCommand(editReplaceCmd, editTimesigCmd, editTupletCmd, editResizeCmd)
	rootCmd.AddCommand(editCmd)
}
