package stitch

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/kiesman99/panostitch/internal/stitcher"
	"github.com/kiesman99/panostitch/internal/viewbounds"
	"github.com/kiesman99/panostitch/pkg/pano"
)

// Options contains all configuration for a stitching run
type Options struct {
	// Output is the destination file. Empty means the panorama is written to
	// a temporary file and then copied to stdout.
	Output string

	// Name labels the run (typically a room name) and prefixes temp files.
	Name string

	// TempDir holds temporary output; defaults to os.TempDir().
	TempDir string

	// Bounds also computes view constraints for the stitched panorama.
	Bounds bool

	Stitch stitcher.Options
}

// Report summarises a successful run.
type Report struct {
	Output      string
	Width       int
	Height      int
	Used        []string
	Dropped     []string
	Constraints *pano.ViewConstraints
}

// Runner handles one stitching job end to end for the command line
type Runner struct {
	options   *Options
	stitcher  *stitcher.Stitcher
	estimator *viewbounds.Estimator
	stdout    io.Writer
	stderr    io.Writer
}

// NewRunner creates a new runner instance. Progress is written to stderr;
// stdout only receives image data when no output file is configured. A nil
// logger keeps the pipeline quiet.
func NewRunner(opts *Options, stdout, stderr io.Writer, logger *log.Logger) *Runner {
	return &Runner{
		options:   opts,
		stitcher:  stitcher.New(opts.Stitch, nil, logger),
		estimator: viewbounds.New(logger),
		stdout:    stdout,
		stderr:    stderr,
	}
}

// WithAligner replaces the aligner used for stitching.
func (r *Runner) WithAligner(a stitcher.Aligner, logger *log.Logger) *Runner {
	r.stitcher = stitcher.New(r.options.Stitch, a, logger)
	return r
}

// Run stitches the images at paths.
func (r *Runner) Run(ctx context.Context, paths []string) (*Report, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no input images provided")
	}

	output := r.options.Output
	toStdout := output == ""
	if toStdout {
		dir := r.options.TempDir
		if dir == "" {
			dir = os.TempDir()
		}
		output = filepath.Join(dir, TempOutputName(r.options.Name))
	}

	fmt.Fprintf(r.stderr, "==Inputs: %d images\n", len(paths))
	fmt.Fprintf(r.stderr, "==Mode: %s\n", r.options.Stitch.Mode)

	result, err := r.stitcher.Stitch(ctx, paths, output)
	if result != nil {
		for _, p := range result.Dropped {
			fmt.Fprintf(r.stderr, "Can't decode image %s, skipping\n", p)
		}
	}
	if err != nil {
		// WriteImage never leaves partial files; only our own temp output
		// can exist here
		if toStdout {
			removeIfExists(output)
		}
		return nil, err
	}

	fmt.Fprintf(r.stderr, "==Composite Size: %dx%d\n", result.CompositeWidth, result.CompositeHeight)
	fmt.Fprintf(r.stderr, "==Crop: x:%d y:%d\n", result.Crop.Min.X, result.Crop.Min.Y)
	fmt.Fprintf(r.stderr, "==Raster Size: %dx%d\n", result.Crop.Dx(), result.Crop.Dy())

	report := &Report{
		Output:  output,
		Width:   result.Image.Bounds().Dx(),
		Height:  result.Image.Bounds().Dy(),
		Used:    result.Used,
		Dropped: result.Dropped,
	}

	if r.options.Bounds {
		vc := r.estimator.Compute(result.Image)
		report.Constraints = &vc
		fmt.Fprintf(r.stderr, "==View Bounds: yaw %.6f..%.6f pitch %.6f..%.6f\n",
			vc.MinYaw, vc.MaxYaw, vc.MinPitch, vc.MaxPitch)
	}

	if toStdout {
		defer removeIfExists(output)
		if err := copyFile(r.stdout, output); err != nil {
			return nil, fmt.Errorf("failed to write panorama to stdout: %w", err)
		}
		fmt.Fprintf(r.stderr, "Output: stdout\n")
		report.Output = ""
	} else {
		fmt.Fprintf(r.stderr, "Output: %s\n", output)
	}

	return report, nil
}

// TempOutputName returns a collision-free name for a temporary panorama of
// the named room: <name>_panorama_temp_<uuid>.jpg.
func TempOutputName(name string) string {
	name = sanitize(name)
	if name == "" {
		name = "room"
	}
	return pano.TempName(name+"_panorama_temp", ".jpg")
}

// sanitize keeps a name safe for use as a file name.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(name))
}

func copyFile(w io.Writer, filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(w, file)
	return err
}

func removeIfExists(filename string) {
	if err := os.Remove(filename); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove temporary file %s: %v", filename, err)
	}
}
