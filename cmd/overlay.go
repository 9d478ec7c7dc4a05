package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var overlayCmd = &cobra.Command{
	Use:   "overlay <red-dir> <green-dir>",
	Short: "Composite matching red and green pseudo-color frames",
	Long: `Overlay pairs <name>_red and <name>_green files from the two folders and writes
one thresholded, enhanced composite per pair as <red>_<green>_overlay<ext>.

The composite controls come from --alpha, --brightness, --contrast,
--saturation and --threshold, the QUADFUSE_OVERLAY_* environment or the
overlay section of the config file.

Examples:
  quadfuse overlay ./combined/red_pseudo ./combined/green_pseudo
  quadfuse overlay --brightness 0.8 --output-ext .png -o ./out ./red ./green`,
	Args: cobra.ExactArgs(2),
	RunE: runOverlay,
}

func init() {
	rootCmd.AddCommand(overlayCmd)

	overlayCmd.Flags().StringP("out", "o", "", "output folder (default: overlay next to <red-dir>)")
	viper.BindPFlag("overlay.out", overlayCmd.Flags().Lookup("out"))
}

func runOverlay(cmd *cobra.Command, args []string) error {
	p, err := newProcessor(cmd)
	if err != nil {
		return err
	}
	rep, err := p.Overlay(cmd.Context(), args[0], args[1], viper.GetString("overlay.out"))
	if err != nil {
		return err
	}
	printReport(cmd.ErrOrStderr(), rep)
	return rep.Err()
}
