// Package viewbounds derives the yaw/pitch window a panorama viewer may pan
// within without showing empty canvas.
package viewbounds

import (
	"image"
	"log"
	"math"

	"gocv.io/x/gocv"
	"gonum.org/v1/gonum/floats"

	"github.com/kiesman99/panostitch/internal/contour"
	"github.com/kiesman99/panostitch/pkg/pano"
)

// Angles holds the raw arctangent terms of the bounding heuristic. Yaw terms
// measure horizontal offset from centre against the vertical centre as depth;
// pitch terms put the horizontal centre first and the vertical offset second.
type Angles struct {
	Left, Right float64
	Top, Bottom float64
}

// Project maps a foreground envelope of a width x height image to raw angles.
// This is a bounding heuristic, not an equirectangular inverse projection.
func Project(ext pano.Extent, width, height int) Angles {
	cx := float64(width) / 2
	cy := float64(height) / 2
	return Angles{
		Left:   math.Atan2(float64(ext.MinX)-cx, cy),
		Right:  math.Atan2(float64(ext.MaxX)-cx, cy),
		Top:    math.Atan2(cx, float64(ext.MinY)-cy),
		Bottom: math.Atan2(cx, float64(ext.MaxY)-cy),
	}
}

// Constraints turns raw angles into viewer constraints. Yaw is used as is.
// The pitch terms are measured from the vertical axis, so they are taken
// relative to the horizon (π/2 - θ) and then sign flipped with top and bottom
// swapped: MinPitch comes from the bottom edge, MaxPitch from the top edge.
func (a Angles) Constraints() pano.ViewConstraints {
	return pano.ViewConstraints{
		MinYaw:   a.Left,
		MaxYaw:   a.Right,
		MinPitch: -(math.Pi/2 - a.Bottom),
		MaxPitch: -(math.Pi/2 - a.Top),
	}
}

// Estimator computes view constraints. The zero value is ready to use.
type Estimator struct {
	// Options overrides the speckle-suppressing contour.NoisyOptions when
	// set. Zero threshold and iterations are honoured as given.
	Options *contour.Options
	Logger  *log.Logger
}

// New returns an Estimator using the speckle-suppressing contour options.
func New(logger *log.Logger) *Estimator {
	return &Estimator{Logger: logger}
}

// Compute returns the view constraints for img, or the full sphere when img is
// nil or has no usable content.
func Compute(img image.Image) pano.ViewConstraints {
	return New(nil).Compute(img)
}

// Compute returns the view constraints for img. See the package-level Compute.
func (e *Estimator) Compute(img image.Image) pano.ViewConstraints {
	if img == nil || img.Bounds().Empty() {
		return pano.FullSphere()
	}

	mat, err := pano.ToMat(img)
	if err != nil {
		e.logf("view bounds: convert image: %v", err)
		return pano.FullSphere()
	}
	defer mat.Close()

	return e.ComputeMat(mat)
}

// ComputeMat is Compute for an already converted BGR Mat.
func (e *Estimator) ComputeMat(img gocv.Mat) pano.ViewConstraints {
	if img.Empty() {
		return pano.FullSphere()
	}

	opts := contour.NoisyOptions()
	if e.Options != nil {
		opts = *e.Options
	}

	region, found, err := contour.LargestForeground(img, opts)
	if err != nil {
		e.logf("view bounds: %v", err)
		return pano.FullSphere()
	}
	if !found {
		e.logf("view bounds: no foreground, using full sphere")
		return pano.FullSphere()
	}
	defer region.Close()

	ext, ok := MaskExtent(region.Mask)
	if !ok {
		return pano.FullSphere()
	}

	vc := Project(ext, img.Cols(), img.Rows()).Constraints()
	e.logf("view bounds: extent x=[%d,%d] y=[%d,%d] yaw=[%.4f,%.4f] pitch=[%.4f,%.4f]",
		ext.MinX, ext.MaxX, ext.MinY, ext.MaxY, vc.MinYaw, vc.MaxYaw, vc.MinPitch, vc.MaxPitch)
	return vc
}

// MaskExtent returns the envelope of all non-zero pixels of a single-channel
// mask. ok is false when the mask is empty.
func MaskExtent(mask gocv.Mat) (pano.Extent, bool) {
	cols, rows := mask.Cols(), mask.Rows()
	if cols == 0 || rows == 0 {
		return pano.Extent{}, false
	}
	data := mask.ToBytes()

	// Leftmost and rightmost foreground column of every occupied row.
	var lefts, rights []float64
	minY, maxY := -1, -1
	for y := 0; y < rows; y++ {
		row := data[y*cols : (y+1)*cols]
		first, last := -1, -1
		for x, v := range row {
			if v == 0 {
				continue
			}
			if first < 0 {
				first = x
			}
			last = x
		}
		if first < 0 {
			continue
		}
		if minY < 0 {
			minY = y
		}
		maxY = y
		lefts = append(lefts, float64(first))
		rights = append(rights, float64(last))
	}

	if len(lefts) == 0 {
		return pano.Extent{}, false
	}
	return pano.Extent{
		MinX: int(floats.Min(lefts)),
		MaxX: int(floats.Max(rights)),
		MinY: minY,
		MaxY: maxY,
	}, true
}

func (e *Estimator) logf(format string, args ...interface{}) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}
