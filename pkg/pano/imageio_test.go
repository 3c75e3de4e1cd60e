package pano

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/kiesman99/panostitch/internal/testimg"
)

func TestDecodeImage(t *testing.T) {
	src := testimg.Textured(64, 48, 1)

	t.Run("png", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, src))

		img, err := DecodeImage(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, src.Pix, img.Pix)
	})

	t.Run("jpeg", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, src, nil))

		img, err := DecodeImage(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, src.Bounds(), img.Bounds())
	})

	t.Run("tiff", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, tiff.Encode(&buf, src, nil))

		img, err := DecodeImage(buf.Bytes())
		require.NoError(t, err)
		assert.Equal(t, src.Pix, img.Pix)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := DecodeImage([]byte("definitely not an image"))
		assert.EqualError(t, err, "unrecognized image format")
	})

	t.Run("truncated png", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, src))

		_, err := DecodeImage(buf.Bytes()[:32])
		assert.Error(t, err)
	})
}

func TestDecodeImageDropsAlpha(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 200, A: 255})
	src.SetNRGBA(1, 1, color.NRGBA{G: 200, A: 0})

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))

	img, err := DecodeImage(buf.Bytes())
	require.NoError(t, err)
	for i := 3; i < len(img.Pix); i += 4 {
		assert.Equal(t, uint8(255), img.Pix[i])
	}
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, OUTFMT_PNG, FormatForPath("pano.png"))
	assert.Equal(t, OUTFMT_PNG, FormatForPath("/tmp/PANO.PNG"))
	assert.Equal(t, OUTFMT_JPEG, FormatForPath("pano.jpg"))
	assert.Equal(t, OUTFMT_JPEG, FormatForPath("pano"))
}

func TestWriteImageRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := testimg.Textured(80, 40, 7)

	out := filepath.Join(dir, "pano.png")
	require.NoError(t, WriteImage(out, src, 0))

	got, err := LoadImage(out)
	require.NoError(t, err)
	assert.Equal(t, src.Pix, got.Pix)

	// No temporary siblings are left behind
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteImageJPEG(t *testing.T) {
	dir := t.TempDir()
	src := testimg.Solid(32, 16, color.RGBA{R: 200, G: 100, B: 50, A: 255})

	out := filepath.Join(dir, "pano.jpg")
	require.NoError(t, WriteImage(out, src, 100))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, data[:2])

	got, err := DecodeImage(data)
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), got.Bounds())
	c := got.RGBAAt(16, 8)
	assert.InDelta(t, 200, float64(c.R), 3)
	assert.InDelta(t, 100, float64(c.G), 3)
	assert.InDelta(t, 50, float64(c.B), 3)
}

func TestWriteImageMissingDir(t *testing.T) {
	err := WriteImage(filepath.Join(t.TempDir(), "missing", "pano.jpg"), testimg.Black(4, 4), 0)
	assert.Error(t, err)
}

func TestTempName(t *testing.T) {
	a := TempName("kitchen_panorama_temp", ".jpg")
	b := TempName("kitchen_panorama_temp", ".jpg")

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "kitchen_panorama_temp_"))
	assert.True(t, strings.HasSuffix(a, ".jpg"))
}

func TestFullSphere(t *testing.T) {
	vc := FullSphere()
	assert.Equal(t, ViewConstraints{MinYaw: 0, MaxYaw: 2 * math.Pi, MinPitch: -math.Pi / 2, MaxPitch: math.Pi / 2}, vc)
	assert.True(t, vc.Valid())
	assert.False(t, ViewConstraints{MinPitch: 1, MaxPitch: -1}.Valid())
}

func TestWriteFileMatchesEncodedBytes(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "pano.jpg")
	src := testimg.Textured(40, 30, 5)

	data, err := EncodeImage(out, src, 60)
	require.NoError(t, err)
	require.NoError(t, WriteFile(out, data))

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, data, written)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
