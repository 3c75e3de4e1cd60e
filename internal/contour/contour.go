// Package contour finds the largest region of meaningful (non-black) content
// in an image.
package contour

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Options controls how the foreground mask is built.
type Options struct {
	// Threshold is the intensity a pixel must exceed to count as foreground.
	Threshold float32
	// Iterations of 3x3 erosion followed by the same number of dilations.
	// Zero skips the opening step.
	Iterations int
}

// CropOptions is used on a finished composite: anything above pure black is
// content and no speckle suppression is needed.
func CropOptions() Options {
	return Options{Threshold: 0}
}

// NoisyOptions suppresses speckle from partial overlap near panorama edges
// before contours are extracted.
func NoisyOptions() Options {
	return Options{Threshold: 10, Iterations: 2}
}

// Region is the largest external foreground contour of an image.
type Region struct {
	// Rect is the axis-aligned bounding rectangle of the contour.
	Rect image.Rectangle
	// Area is the contour area as reported by OpenCV.
	Area float64
	// Mask is a single-channel image with the contour filled at 255.
	Mask gocv.Mat
}

// Close releases the mask.
func (r *Region) Close() error {
	return r.Mask.Close()
}

// LargestForeground thresholds img and returns the external contour with the
// largest area. The boolean is false when img has no foreground at all; the
// returned Region is then empty and needs no Close.
func LargestForeground(img gocv.Mat, opts Options) (Region, bool, error) {
	if img.Empty() {
		return Region{}, false, fmt.Errorf("empty input image")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	switch img.Channels() {
	case 1:
		img.CopyTo(&gray)
	case 3:
		gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(img, &gray, gocv.ColorBGRAToGray)
	default:
		return Region{}, false, fmt.Errorf("unsupported channel count: %d", img.Channels())
	}

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(gray, &binary, opts.Threshold, 255, gocv.ThresholdBinary)

	if opts.Iterations > 0 {
		kernel := gocv.GetStructuringElement(gocv.MorphRect, image.Point{3, 3})
		defer kernel.Close()
		for i := 0; i < opts.Iterations; i++ {
			gocv.Erode(binary, &binary, kernel)
		}
		for i := 0; i < opts.Iterations; i++ {
			gocv.Dilate(binary, &binary, kernel)
		}
	}

	contours := gocv.FindContours(binary, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		return Region{}, false, nil
	}

	// Pick the largest contour. A single foreground pixel has zero area, so
	// start below zero to always select something.
	bestIdx := -1
	bestArea := -1.0
	for i := 0; i < contours.Size(); i++ {
		area := gocv.ContourArea(contours.At(i))
		if area > bestArea {
			bestArea = area
			bestIdx = i
		}
	}

	mask := gocv.Zeros(binary.Rows(), binary.Cols(), gocv.MatTypeCV8UC1)
	gocv.DrawContours(&mask, contours, bestIdx, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

	return Region{
		Rect: gocv.BoundingRect(contours.At(bestIdx)),
		Area: bestArea,
		Mask: mask,
	}, true, nil
}
