package cmd

import (
	"github.com/spf13/cobra"
)

var combineCmd = &cobra.Command{
	Use:   "combine <dir>",
	Short: "Stitch every <prefix>_LU/RU/LD/RD group into one frame",
	Long: `Combine scans a folder for quadrant tiles, groups them by prefix and writes
<prefix>_combined<ext> into a "combined" subfolder.

Groups with a missing corner or tiles of different sizes are reported and
skipped; the remaining groups are still written.

Examples:
  quadfuse combine ./captures
  quadfuse combine --tile-ext .png --output-ext .png ./captures`,
	Args: cobra.ExactArgs(1),
	RunE: runCombine,
}

func init() {
	rootCmd.AddCommand(combineCmd)
}

func runCombine(cmd *cobra.Command, args []string) error {
	p, err := newProcessor(cmd)
	if err != nil {
		return err
	}
	rep, err := p.Combine(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printReport(cmd.ErrOrStderr(), rep)
	return rep.Err()
}
