package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/quadfuse/internal/pseudo"
)

var pseudoCmd = &cobra.Command{
	Use:   "pseudo <dir>",
	Short: "Map grayscale frames onto the red or green channel",
	Long: `Pseudo converts every image in a folder to its luminance and places it in a
single color channel. Results are written as <name>_<channel><ext> into
<dir>/<channel>_pseudo unless --out is given.

Examples:
  quadfuse pseudo --channel red ./captures/combined
  quadfuse pseudo -c green --out ./green ./captures/combined`,
	Args: cobra.ExactArgs(1),
	RunE: runPseudo,
}

func init() {
	rootCmd.AddCommand(pseudoCmd)

	pseudoCmd.Flags().StringP("channel", "c", "red", "target channel (red|green)")
	pseudoCmd.Flags().StringP("out", "o", "", "output folder (default: <dir>/<channel>_pseudo)")

	viper.BindPFlag("pseudo.channel", pseudoCmd.Flags().Lookup("channel"))
	viper.BindPFlag("pseudo.out", pseudoCmd.Flags().Lookup("out"))
}

func runPseudo(cmd *cobra.Command, args []string) error {
	channel, err := pseudo.ParseChannel(viper.GetString("pseudo.channel"))
	if err != nil {
		return err
	}
	p, err := newProcessor(cmd)
	if err != nil {
		return err
	}
	rep, err := p.Pseudo(cmd.Context(), args[0], channel, viper.GetString("pseudo.out"))
	if err != nil {
		return err
	}
	printReport(cmd.ErrOrStderr(), rep)
	return rep.Err()
}
