package contour

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/kiesman99/panostitch/internal/testimg"
	"github.com/kiesman99/panostitch/pkg/pano"
)

func toMat(t *testing.T, img image.Image) gocv.Mat {
	t.Helper()
	m, err := pano.ToMat(img)
	require.NoError(t, err)
	return m
}

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

func TestLargestForegroundNone(t *testing.T) {
	m := toMat(t, testimg.Black(40, 30))
	defer m.Close()

	for _, opts := range []Options{CropOptions(), NoisyOptions()} {
		_, found, err := LargestForeground(m, opts)
		require.NoError(t, err)
		assert.False(t, found)
	}
}

func TestLargestForegroundPicksLargest(t *testing.T) {
	img := testimg.Framed(100, 80, image.Rect(5, 5, 15, 15), white)
	draw.Draw(img, image.Rect(40, 20, 90, 70), &image.Uniform{color.RGBA{R: 90, G: 60, B: 30, A: 255}}, image.Point{}, draw.Src)

	m := toMat(t, img)
	defer m.Close()

	region, found, err := LargestForeground(m, CropOptions())
	require.NoError(t, err)
	require.True(t, found)
	defer region.Close()

	assert.Equal(t, image.Rect(40, 20, 90, 70), region.Rect)
	assert.Greater(t, region.Area, 100.0)

	// The mask is filled inside the contour and empty elsewhere
	assert.Equal(t, 80, region.Mask.Rows())
	assert.Equal(t, 100, region.Mask.Cols())
	assert.Equal(t, uint8(255), region.Mask.GetUCharAt(45, 65))
	assert.Equal(t, uint8(0), region.Mask.GetUCharAt(10, 10))
}

func TestLargestForegroundIgnoresHoles(t *testing.T) {
	img := testimg.Framed(60, 60, image.Rect(10, 10, 50, 50), white)
	draw.Draw(img, image.Rect(20, 20, 40, 40), &image.Uniform{color.RGBA{A: 255}}, image.Point{}, draw.Src)

	m := toMat(t, img)
	defer m.Close()

	region, found, err := LargestForeground(m, CropOptions())
	require.NoError(t, err)
	require.True(t, found)
	defer region.Close()

	assert.Equal(t, image.Rect(10, 10, 50, 50), region.Rect)
	// External contour filled: the hole is part of the mask
	assert.Equal(t, uint8(255), region.Mask.GetUCharAt(30, 30))
}

func TestThresholds(t *testing.T) {
	// Gray level 5 is content for cropping but below the noisy threshold
	img := testimg.Framed(50, 50, image.Rect(10, 10, 40, 40), color.RGBA{R: 5, G: 5, B: 5, A: 255})
	m := toMat(t, img)
	defer m.Close()

	region, found, err := LargestForeground(m, CropOptions())
	require.NoError(t, err)
	require.True(t, found)
	region.Close()

	_, found, err = LargestForeground(m, NoisyOptions())
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNoisyOptionsRemoveSpeckle(t *testing.T) {
	img := testimg.Black(60, 60)
	// Isolated bright pixels and a thin line are opened away
	img.SetRGBA(5, 5, white)
	img.SetRGBA(50, 8, white)
	draw.Draw(img, image.Rect(2, 55, 58, 57), &image.Uniform{white}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(20, 15, 40, 35), &image.Uniform{white}, image.Point{}, draw.Src)

	m := toMat(t, img)
	defer m.Close()

	region, found, err := LargestForeground(m, NoisyOptions())
	require.NoError(t, err)
	require.True(t, found)
	defer region.Close()

	assert.Equal(t, image.Rect(20, 15, 40, 35), region.Rect)
	assert.Equal(t, uint8(0), region.Mask.GetUCharAt(5, 5))
	assert.Equal(t, uint8(0), region.Mask.GetUCharAt(56, 30))
}

func TestLargestForegroundSinglePixel(t *testing.T) {
	img := testimg.Black(10, 10)
	img.SetRGBA(3, 4, white)

	m := toMat(t, img)
	defer m.Close()

	region, found, err := LargestForeground(m, CropOptions())
	require.NoError(t, err)
	require.True(t, found)
	defer region.Close()

	assert.Equal(t, image.Rect(3, 4, 4, 5), region.Rect)
}

func TestLargestForegroundEmpty(t *testing.T) {
	m := gocv.NewMat()
	defer m.Close()

	_, _, err := LargestForeground(m, CropOptions())
	assert.Error(t, err)
}
