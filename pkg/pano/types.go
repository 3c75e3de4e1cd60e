package pano

import "math"

// Output format constants
const (
	OUTFMT_JPEG = iota
	OUTFMT_PNG
)

// DefaultJPEGQuality is used when no quality is configured.
const DefaultJPEGQuality = 95

// ViewConstraints bounds the angles a viewer may pan to, in radians.
type ViewConstraints struct {
	MinYaw   float64 `json:"minYaw"`
	MaxYaw   float64 `json:"maxYaw"`
	MinPitch float64 `json:"minPitch"`
	MaxPitch float64 `json:"maxPitch"`
}

// FullSphere returns the unconstrained view: yaw 0..2π, pitch -π/2..π/2.
func FullSphere() ViewConstraints {
	return ViewConstraints{
		MinYaw:   0,
		MaxYaw:   2 * math.Pi,
		MinPitch: -math.Pi / 2,
		MaxPitch: math.Pi / 2,
	}
}

// Valid reports whether both angle ranges are ordered.
func (v ViewConstraints) Valid() bool {
	return v.MinYaw <= v.MaxYaw && v.MinPitch <= v.MaxPitch
}

// Extent is the inclusive pixel envelope of foreground content.
type Extent struct {
	MinX, MaxX int
	MinY, MaxY int
}
