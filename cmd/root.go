package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/quadfuse/internal/batch"
	"github.com/kiesman99/quadfuse/internal/overlay"
	"github.com/kiesman99/quadfuse/pkg/raster"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quadfuse",
	Short: "Reassemble quadrant tiles and fuse red/green pseudo-color overlays",
	Long: `quadfuse turns folders of microscope quadrant captures into dual-channel overlays.

Every acquisition is stored as four tiles named <prefix>_LU, <prefix>_RU,
<prefix>_LD and <prefix>_RD. quadfuse stitches each group into one frame,
maps frames onto the red or green channel and blends a red and a green frame
into a thresholded, enhanced composite.

Examples:
  # Run the whole pipeline on a folder of .bmp tiles
  quadfuse run ./captures

  # Only stitch the quadrant groups
  quadfuse combine ./captures

  # Map combined frames onto the green channel
  quadfuse pseudo --channel green ./captures/combined

  # Composite red and green folders with custom enhancement
  quadfuse overlay --contrast 1.8 --threshold 40 ./combined/red_pseudo ./combined/green_pseudo

  # Start HTTP server
  quadfuse serve --port 8080`,
	Args: cobra.MaximumNArgs(1),
	// If no subcommand is specified and we have args, run the full pipeline
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runPipeline(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Interrupting a batch cancels the remaining files.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.quadfuse.yaml)")
	flags.BoolP("verbose", "v", false, "log every written file")
	flags.IntP("workers", "j", runtime.GOMAXPROCS(0), "number of files processed in parallel")

	// Input and output
	flags.String("tile-ext", ".bmp", "extension of the quadrant tiles to combine")
	flags.String("output-ext", "", "extension of written files (default: same as input)")
	flags.String("background", "#000000", "color transparent pixels are flattened onto for formats without alpha")

	// Composite controls
	flags.Float64("alpha", overlay.DefaultAlpha, "blend factor of the inverted channel scaling")
	flags.Float64("brightness", overlay.DefaultBrightness, "brightness factor (0.1-3.0)")
	flags.Float64("contrast", overlay.DefaultContrast, "contrast factor (0.1-3.0)")
	flags.Float64("saturation", overlay.DefaultSaturation, "saturation factor (0.1-3.0)")
	flags.Int("threshold", overlay.DefaultThreshold, "pixels with both channels below this value become transparent (0-255)")

	// Bind flags to viper
	viper.BindPFlag("verbose", flags.Lookup("verbose"))
	viper.BindPFlag("workers", flags.Lookup("workers"))
	viper.BindPFlag("input.ext", flags.Lookup("tile-ext"))
	viper.BindPFlag("output.ext", flags.Lookup("output-ext"))
	viper.BindPFlag("output.background", flags.Lookup("background"))
	viper.BindPFlag("overlay.alpha", flags.Lookup("alpha"))
	viper.BindPFlag("overlay.brightness", flags.Lookup("brightness"))
	viper.BindPFlag("overlay.contrast", flags.Lookup("contrast"))
	viper.BindPFlag("overlay.saturation", flags.Lookup("saturation"))
	viper.BindPFlag("overlay.threshold", flags.Lookup("threshold"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".quadfuse" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".quadfuse")
	}

	// QUADFUSE_OVERLAY_CONTRAST overrides overlay.contrast, and so on.
	viper.SetEnvPrefix("quadfuse")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// overlayParams reads the composite controls from flags, env and config.
func overlayParams() (overlay.Params, error) {
	p := overlay.Params{
		Alpha:      viper.GetFloat64("overlay.alpha"),
		Brightness: viper.GetFloat64("overlay.brightness"),
		Contrast:   viper.GetFloat64("overlay.contrast"),
		Saturation: viper.GetFloat64("overlay.saturation"),
		Threshold:  viper.GetInt("overlay.threshold"),
	}
	if err := p.Validate(); err != nil {
		return overlay.Params{}, err
	}
	return p, nil
}

// newProcessor builds a batch processor logging to the command's stderr.
func newProcessor(cmd *cobra.Command) (*batch.Processor, error) {
	params, err := overlayParams()
	if err != nil {
		return nil, err
	}
	bg, err := raster.ParseBackground(viper.GetString("output.background"))
	if err != nil {
		return nil, err
	}

	opts := batch.DefaultOptions()
	opts.TileExt = viper.GetString("input.ext")
	opts.OutputExt = viper.GetString("output.ext")
	opts.Background = bg
	opts.Params = params
	if n := viper.GetInt("workers"); n > 0 {
		opts.Workers = n
	}
	opts.Logger = log.New(cmd.ErrOrStderr(), "", log.LstdFlags)
	opts.Verbose = viper.GetBool("verbose")
	return batch.New(opts), nil
}

// printReport writes a one-line summary of a batch stage plus its failures.
func printReport(w io.Writer, rep *batch.Report) {
	fmt.Fprintf(w, "%s: %d/%d succeeded -> %s\n", rep.Stage, rep.Succeeded, rep.Total, rep.OutputDir)
	for _, f := range rep.Failures {
		fmt.Fprintf(w, "  failed %s: %v\n", f.Name, f.Err)
	}
	if len(rep.Ignored) > 0 {
		fmt.Fprintf(w, "  ignored %d file(s) without a position suffix\n", len(rep.Ignored))
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	p, err := newProcessor(cmd)
	if err != nil {
		return err
	}
	reports, err := p.Run(cmd.Context(), args[0])
	for _, rep := range reports {
		printReport(cmd.ErrOrStderr(), rep)
	}
	return err
}
