package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/panostitch/internal/contour"
	"github.com/kiesman99/panostitch/internal/viewbounds"
	"github.com/kiesman99/panostitch/pkg/pano"
)

var boundsCmd = &cobra.Command{
	Use:   "bounds IMAGE",
	Short: "Print the yaw/pitch viewing window of a stitched panorama",
	Long: `Compute the angular window (min/max yaw, min/max pitch, in radians) that
keeps a panorama viewer inside the non-black content of an image.

When the image has no usable content the full sphere is printed:
yaw 0..2π, pitch -π/2..π/2.

Examples:
  # Print bounds as JSON
  panostitch bounds kitchen.jpg

  # Stricter noise suppression for ragged edges
  panostitch bounds --threshold 20 --iterations 3 kitchen.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runBounds,
}

func init() {
	rootCmd.AddCommand(boundsCmd)

	noisy := contour.NoisyOptions()
	boundsCmd.Flags().Float32("threshold", noisy.Threshold, "gray level above which pixels count as content")
	boundsCmd.Flags().Int("iterations", noisy.Iterations, "erosion/dilation iterations for speckle removal")

	// Bind flags to viper
	viper.BindPFlag("view.threshold", boundsCmd.Flags().Lookup("threshold"))
	viper.BindPFlag("view.iterations", boundsCmd.Flags().Lookup("iterations"))
}

func runBounds(cmd *cobra.Command, args []string) error {
	img, err := pano.LoadImage(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	estimator := viewbounds.New(newLogger(cmd.ErrOrStderr()))
	estimator.Options = &contour.Options{
		Threshold:  float32(viper.GetFloat64("view.threshold")),
		Iterations: viper.GetInt("view.iterations"),
	}

	return writeConstraints(cmd.OutOrStdout(), estimator.Compute(img))
}

func writeConstraints(w io.Writer, vc pano.ViewConstraints) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(vc)
}
