package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/panostitch/internal/stitch"
	"github.com/kiesman99/panostitch/internal/stitcher"
	"github.com/kiesman99/panostitch/pkg/pano"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "panostitch [flags] IMAGE...",
	Short: "Stitch overlapping photos of a room into a cropped panorama",
	Long: `panostitch aligns and blends a set of overlapping photographs into one
wide-angle panorama and crops away the black canvas left by warping.

Input images may be JPEG, PNG, TIFF, BMP or WebP, in any order. Images that
cannot be decoded are skipped; at least two usable images are required. The
panorama is written as JPEG, or PNG when the output file ends in .png.

Examples:
  # Stitch three photos of the kitchen
  panostitch -o kitchen.jpg kitchen-1.jpg kitchen-2.jpg kitchen-3.jpg

  # Lossless output and the viewer bounds for the result
  panostitch --bounds -o hall.png hall/*.jpg

  # Limit input resolution to speed up large photo sets
  panostitch --max-input-dim 2000 -o lounge.jpg lounge/*.jpg > /dev/null

  # Write to stdout
  panostitch bedroom/*.jpg > bedroom.jpg

  # Compute view bounds for an existing panorama
  panostitch bounds bedroom.jpg`,
	Args: cobra.ArbitraryArgs,
	// If no subcommand is specified and we have args, run the stitch command
	RunE: func(cmd *cobra.Command, args []string) error {
		// If no args, show help
		if len(args) == 0 {
			return cmd.Help()
		}
		return runStitch(cmd, args)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.panostitch.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log pipeline details to stderr")

	// Output options
	rootCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	rootCmd.Flags().IntP("quality", "q", pano.DefaultJPEGQuality, "JPEG quality (1-100)")
	rootCmd.Flags().BoolP("bounds", "b", false, "also compute view bounds for the panorama")

	// Stitching options
	defaults := stitcher.DefaultOptions()
	rootCmd.Flags().String("mode", defaults.Mode.String(), "stitch mode (panorama|scans)")
	rootCmd.Flags().Int64("max-pixels", defaults.MaxPixels, "largest accepted panorama in pixels (0 = unlimited)")
	rootCmd.Flags().Int("max-input-dim", 0, "downscale inputs whose longest side exceeds this (0 = keep)")
	rootCmd.Flags().Float32("crop-threshold", defaults.CropThreshold, "gray level above which pixels count as content when cropping")

	// Temporary files
	rootCmd.Flags().String("name", "room", "name used to label temporary files")
	rootCmd.Flags().String("temp-dir", "", "directory for temporary files (default: system temp dir)")

	// Bind flags to viper for root command
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("quality", rootCmd.Flags().Lookup("quality"))
	viper.BindPFlag("bounds", rootCmd.Flags().Lookup("bounds"))
	viper.BindPFlag("mode", rootCmd.Flags().Lookup("mode"))
	viper.BindPFlag("max-pixels", rootCmd.Flags().Lookup("max-pixels"))
	viper.BindPFlag("max-input-dim", rootCmd.Flags().Lookup("max-input-dim"))
	viper.BindPFlag("crop-threshold", rootCmd.Flags().Lookup("crop-threshold"))
	viper.BindPFlag("name", rootCmd.Flags().Lookup("name"))
	viper.BindPFlag("temp-dir", rootCmd.Flags().Lookup("temp-dir"))
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

		// Search config in home directory with name ".panostitch" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".panostitch")
	}

	// PANOSTITCH_MAX_INPUT_DIM and friends
	viper.SetEnvPrefix("panostitch")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger returns the pipeline logger: stderr when verbose, silent otherwise.
func newLogger(w io.Writer) *log.Logger {
	if !viper.GetBool("verbose") {
		return log.New(io.Discard, "", 0)
	}
	return log.New(w, "panostitch: ", log.LstdFlags|log.Lmicroseconds)
}

func runStitch(cmd *cobra.Command, args []string) error {
	mode, err := stitcher.ParseMode(viper.GetString("mode"))
	if err != nil {
		return err
	}

	quality := viper.GetInt("quality")
	if quality < 1 || quality > 100 {
		return fmt.Errorf("quality must be between 1 and 100, got %d", quality)
	}

	output := viper.GetString("output")

	// Check if output is to terminal
	if output == "" {
		if stat, _ := os.Stdout.Stat(); stat != nil && (stat.Mode()&os.ModeCharDevice) != 0 {
			return fmt.Errorf("didn't specify output file and standard output is a terminal")
		}
	}

	opts := &stitch.Options{
		Output:  output,
		Name:    viper.GetString("name"),
		TempDir: viper.GetString("temp-dir"),
		Bounds:  viper.GetBool("bounds"),
		Stitch: stitcher.Options{
			Mode:          mode,
			MaxPixels:     viper.GetInt64("max-pixels"),
			MaxInputDim:   viper.GetInt("max-input-dim"),
			CropThreshold: float32(viper.GetFloat64("crop-threshold")),
			JPEGQuality:   quality,
		},
	}

	runner := stitch.NewRunner(opts, cmd.OutOrStdout(), cmd.ErrOrStderr(), newLogger(cmd.ErrOrStderr()))

	report, err := runner.Run(cmd.Context(), args)
	if err != nil {
		return fmt.Errorf("stitching failed: %w", err)
	}

	if report.Constraints != nil {
		return writeConstraints(cmd.ErrOrStderr(), *report.Constraints)
	}
	return nil
}
