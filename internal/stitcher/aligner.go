package stitcher

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Status is the outcome reported by an Aligner. The values follow
// cv::Stitcher::Status.
type Status int

const (
	StatusOK Status = iota
	StatusNeedMoreImages
	StatusHomographyEstFail
	StatusCameraParamsAdjustFail
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNeedMoreImages:
		return "need more images"
	case StatusHomographyEstFail:
		return "homography estimation failed"
	case StatusCameraParamsAdjustFail:
		return "camera parameter adjustment failed"
	default:
		return fmt.Sprintf("stitcher status %d", int(s))
	}
}

// Mode selects the warping model of the OpenCV stitcher.
type Mode int

const (
	// ModePanorama uses spherical warping with bundle-adjusted rotations.
	ModePanorama Mode = iota
	// ModeScans uses affine transforms, for flat subjects.
	ModeScans
)

func (m Mode) String() string {
	switch m {
	case ModePanorama:
		return "panorama"
	case ModeScans:
		return "scans"
	default:
		return "unknown"
	}
}

// ParseMode converts a mode name to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "panorama":
		return ModePanorama, nil
	case "scans":
		return ModeScans, nil
	default:
		return 0, fmt.Errorf("unknown stitch mode: %s", s)
	}
}

// Aligner blends a set of overlapping BGR images into one composite.
// Feature detection, matching, homography estimation, warping and blending
// all happen behind this interface.
type Aligner interface {
	Align(images []gocv.Mat, pano *gocv.Mat) Status
}

// OpenCVAligner is the Aligner backed by cv::Stitcher.
type OpenCVAligner struct {
	Mode Mode
}

// Align runs the OpenCV stitching pipeline. A fresh cv::Stitcher is created
// per call so concurrent callers share no state.
func (a OpenCVAligner) Align(images []gocv.Mat, pano *gocv.Mat) Status {
	st := gocv.NewStitcher(gocv.StitcherMode(a.Mode))
	defer st.Close()

	return Status(int(st.Stitch(images, pano)))
}
