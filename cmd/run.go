package cmd

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run <dir>",
	Short: "Combine, map and overlay a folder of quadrant tiles",
	Long: `Run executes the whole pipeline: quadrant groups are stitched into
<dir>/combined, each frame is mapped to red and green under
combined/red_pseudo and combined/green_pseudo, and every pair is composited
into combined/overlay.

Examples:
  quadfuse run ./captures
  quadfuse run --threshold 45 --workers 4 ./captures`,
	Args: cobra.ExactArgs(1),
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
}
