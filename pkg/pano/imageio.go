package pano

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// LoadImage reads and decodes a single image file.
func LoadImage(filename string) (*image.RGBA, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return DecodeImage(data)
}

// DecodeImage detects image format and decodes
func DecodeImage(data []byte) (*image.RGBA, error) {
	if len(data) >= 4 && bytes.Equal(data[:4], []byte{0x89, 0x50, 0x4E, 0x47}) {
		return readPNG(data)
	} else if len(data) >= 2 && bytes.Equal(data[:2], []byte{0xFF, 0xD8}) {
		return readJPEG(data)
	}

	// TIFF, BMP and WebP are registered with the image package
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if err == image.ErrFormat {
			return nil, fmt.Errorf("unrecognized image format")
		}
		return nil, err
	}
	return toRGBA(img), nil
}

// readJPEG decodes JPEG image
func readJPEG(data []byte) (*image.RGBA, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return toRGBA(img), nil
}

// readPNG decodes PNG image
func readPNG(data []byte) (*image.RGBA, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return toRGBA(img), nil
}

// toRGBA copies img into a zero-origin RGBA raster. Alpha is discarded: the
// stitching pipeline works on opaque 3-channel data.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		opaque(rgba)
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	opaque(rgba)
	return rgba
}

func opaque(img *image.RGBA) {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
}

// FormatForPath picks the output encoding from the file extension. Anything
// that is not .png is written as JPEG.
func FormatForPath(filename string) int {
	if strings.EqualFold(filepath.Ext(filename), ".png") {
		return OUTFMT_PNG
	}
	return OUTFMT_JPEG
}

// Encode writes img to w in the given format.
func Encode(w io.Writer, img image.Image, format, quality int) error {
	switch format {
	case OUTFMT_PNG:
		return png.Encode(w, img)
	case OUTFMT_JPEG:
		if quality <= 0 || quality > 100 {
			quality = DefaultJPEGQuality
		}
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	default:
		return fmt.Errorf("unknown output format: %d", format)
	}
}

// TempName returns a per-invocation unique file name of the form
// <prefix>_<uuid><ext>.
func TempName(prefix, ext string) string {
	return fmt.Sprintf("%s_%s%s", prefix, uuid.NewString(), ext)
}

// EncodeImage encodes img in the format implied by filename's extension.
func EncodeImage(filename string, img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, FormatForPath(filename), quality); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteImage encodes img to filename. See WriteFile.
func WriteImage(filename string, img image.Image, quality int) error {
	data, err := EncodeImage(filename, img, quality)
	if err != nil {
		return err
	}
	return WriteFile(filename, data)
}

// WriteFile stores already encoded data at filename. The data is written to a
// uniquely named sibling file first and renamed into place, so concurrent
// writers never see each other's partial output.
func WriteFile(filename string, data []byte) error {
	dir, base := filepath.Split(filename)
	if dir == "" {
		dir = "."
	}
	tmp := filepath.Join(dir, TempName("."+base, ".tmp"))

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, filename); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
