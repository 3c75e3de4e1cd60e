package stitcher

import (
	"context"
	"fmt"
	"image"
	"io"
	"log"

	"gocv.io/x/gocv"

	"github.com/kiesman99/panostitch/internal/contour"
	"github.com/kiesman99/panostitch/pkg/pano"
)

// Options contains all stitching parameters
type Options struct {
	Mode Mode

	// MaxPixels caps the composite size; larger panoramas are treated as an
	// alignment failure. Zero disables the check.
	MaxPixels int64

	// MaxInputDim downscales inputs whose longest side exceeds it before
	// alignment. Zero keeps the original resolution.
	MaxInputDim int

	// CropThreshold is the gray level a pixel must exceed to survive border
	// removal.
	CropThreshold float32

	// JPEGQuality is used when the output path is not a .png file.
	JPEGQuality int
}

// DefaultOptions returns default stitching options.
func DefaultOptions() Options {
	return Options{
		Mode:          ModePanorama,
		MaxPixels:     10000 * 10000,
		CropThreshold: contour.CropOptions().Threshold,
		JPEGQuality:   pano.DefaultJPEGQuality,
	}
}

// Result contains the stitching result
type Result struct {
	// Image is the cropped composite. When Output is set it is the decoded
	// content of that file.
	Image *image.RGBA

	// Output is the path the composite was written to, empty if none.
	Output string

	// Crop is the kept region within the uncropped composite.
	Crop image.Rectangle

	// CompositeWidth and CompositeHeight are the dimensions before cropping.
	CompositeWidth  int
	CompositeHeight int

	// Used and Dropped list the input paths that did or did not decode.
	Used    []string
	Dropped []string
}

// Stitcher performs panorama stitching operations
type Stitcher struct {
	aligner Aligner
	opts    Options
	logger  *log.Logger
}

// New creates a new stitcher instance. A nil aligner selects OpenCV's
// stitcher in the configured mode; a nil logger discards log output.
func New(opts Options, aligner Aligner, logger *log.Logger) *Stitcher {
	if aligner == nil {
		aligner = OpenCVAligner{Mode: opts.Mode}
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Stitcher{
		aligner: aligner,
		opts:    opts,
		logger:  logger,
	}
}

// Stitch decodes the images at paths and stitches them into output. Paths that
// fail to decode are dropped; the call fails with KindPrecondition only if
// fewer than two images remain.
func (s *Stitcher) Stitch(ctx context.Context, paths []string, output string) (*Result, error) {
	var (
		images  []image.Image
		used    []string
		dropped []string
	)
	for _, path := range paths {
		if path == "" {
			continue
		}
		img, err := pano.LoadImage(path)
		if err != nil {
			s.logger.Printf("Dropping %s: %v", path, err)
			dropped = append(dropped, path)
			continue
		}
		images = append(images, img)
		used = append(used, path)
	}

	result, err := s.StitchImages(ctx, images, output)
	if result != nil {
		result.Used = used
		result.Dropped = dropped
	}
	if err != nil && len(dropped) > 0 && IsKind(err, KindPrecondition) {
		err.(*Error).Reason += fmt.Sprintf(" (%d of %d inputs could not be decoded)", len(dropped), len(paths))
	}
	return result, err
}

// StitchImages stitches already decoded images into output. An empty output
// skips the write and only returns the in-memory composite.
//
// On KindEncoding failures the returned Result is still valid.
func (s *Stitcher) StitchImages(ctx context.Context, images []image.Image, output string) (*Result, error) {
	var valid []image.Image
	for _, img := range images {
		if img != nil && !img.Bounds().Empty() {
			valid = append(valid, img)
		}
	}
	if len(valid) < 2 {
		return nil, &Error{
			Kind:   KindPrecondition,
			Reason: fmt.Sprintf("need at least 2 images to stitch, got %d", len(valid)),
		}
	}

	mats := make([]gocv.Mat, 0, len(valid))
	defer func() {
		for _, m := range mats {
			m.Close()
		}
	}()
	for i, img := range valid {
		m, err := pano.ToMat(img)
		if err != nil {
			return nil, &Error{Kind: KindPrecondition, Reason: fmt.Sprintf("image %d", i), Err: err}
		}
		mats = append(mats, s.downscale(m))
	}

	return s.StitchMats(ctx, mats, output)
}

// StitchMats is the core pipeline: align, crop the black canvas, encode.
// The inputs are BGR Mats and remain owned by the caller.
func (s *Stitcher) StitchMats(ctx context.Context, mats []gocv.Mat, output string) (*Result, error) {
	if len(mats) < 2 {
		return nil, &Error{
			Kind:   KindPrecondition,
			Reason: fmt.Sprintf("need at least 2 images to stitch, got %d", len(mats)),
		}
	}

	// Check context cancellation
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	s.logger.Printf("Stitching %d images (mode %s)", len(mats), s.opts.Mode)

	composite := gocv.NewMat()
	defer composite.Close()

	status, err := s.align(mats, &composite)
	if err != nil {
		return nil, &Error{Kind: KindAlignment, Status: status, Reason: "aligner panicked", Err: err}
	}
	if status != StatusOK {
		s.logger.Printf("Stitching failed with status %d: %s", int(status), status)
		return nil, &Error{Kind: KindAlignment, Status: status, Reason: status.String()}
	}
	if composite.Empty() {
		return nil, &Error{Kind: KindAlignment, Status: status, Reason: "aligner returned an empty composite"}
	}

	// Check size limits
	dim := int64(composite.Cols()) * int64(composite.Rows())
	if s.opts.MaxPixels > 0 && dim > s.opts.MaxPixels {
		return nil, &Error{
			Kind:   KindAlignment,
			Status: status,
			Reason: fmt.Sprintf("panorama too large: %dx%d", composite.Cols(), composite.Rows()),
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	cropped, rect, err := CropBorders(composite, s.opts.CropThreshold)
	if err != nil {
		return nil, &Error{Kind: KindAlignment, Reason: "border removal", Err: err}
	}
	defer cropped.Close()

	img, err := pano.FromMat(cropped)
	if err != nil {
		return nil, &Error{Kind: KindEncoding, Reason: "convert composite", Err: err}
	}

	s.logger.Printf("Composite %dx%d, cropped to (%d,%d) %dx%d",
		composite.Cols(), composite.Rows(), rect.Min.X, rect.Min.Y, rect.Dx(), rect.Dy())

	result := &Result{
		Image:           img,
		Crop:            rect,
		CompositeWidth:  composite.Cols(),
		CompositeHeight: composite.Rows(),
	}

	if output == "" {
		return result, nil
	}

	// The returned raster is decoded from the exact bytes written, so lossy
	// output formats still match the file pixel for pixel
	data, err := pano.EncodeImage(output, img, s.opts.JPEGQuality)
	if err != nil {
		return result, &Error{Kind: KindEncoding, Reason: fmt.Sprintf("encode %s", output), Err: err}
	}
	encoded, err := pano.DecodeImage(data)
	if err != nil {
		return result, &Error{Kind: KindEncoding, Reason: fmt.Sprintf("decode %s", output), Err: err}
	}
	result.Image = encoded

	if err := pano.WriteFile(output, data); err != nil {
		return result, &Error{Kind: KindEncoding, Reason: fmt.Sprintf("write %s", output), Err: err}
	}
	result.Output = output
	s.logger.Printf("Panorama written to '%s'", output)

	return result, nil
}

// align calls the aligner, turning a panic into an error.
func (s *Stitcher) align(mats []gocv.Mat, composite *gocv.Mat) (status Status, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return s.aligner.Align(mats, composite), nil
}

// downscale resizes m when its longest side exceeds MaxInputDim. m is closed
// if a resized copy is returned.
func (s *Stitcher) downscale(m gocv.Mat) gocv.Mat {
	longest := max(m.Cols(), m.Rows())
	if s.opts.MaxInputDim <= 0 || longest <= s.opts.MaxInputDim {
		return m
	}

	scale := float64(s.opts.MaxInputDim) / float64(longest)
	resized := gocv.NewMat()
	gocv.Resize(m, &resized, image.Point{}, scale, scale, gocv.InterpolationArea)
	m.Close()
	return resized
}

// CropBorders removes the black canvas around a composite by cropping to the
// bounding rectangle of its largest non-black region. If there is no such
// region the composite is returned unchanged. The returned Mat is a
// continuous copy owned by the caller.
func CropBorders(composite gocv.Mat, threshold float32) (gocv.Mat, image.Rectangle, error) {
	full := image.Rect(0, 0, composite.Cols(), composite.Rows())

	region, found, err := contour.LargestForeground(composite, contour.Options{Threshold: threshold})
	if err != nil {
		return gocv.NewMat(), full, err
	}
	if !found {
		return composite.Clone(), full, nil
	}
	region.Close()

	rect := region.Rect.Intersect(full)
	if rect.Empty() {
		return composite.Clone(), full, nil
	}

	roi := composite.Region(rect)
	cropped := roi.Clone()
	roi.Close()
	return cropped, rect, nil
}
