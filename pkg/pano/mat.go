package pano

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// ToMat converts an image to a BGR Mat (OpenCV default). The caller owns the
// returned Mat and must Close it.
func ToMat(img image.Image) (gocv.Mat, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return gocv.NewMat(), fmt.Errorf("empty image")
	}

	buf := make([]byte, width*height*3)
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < height; y++ {
			row := rgba.Pix[(y+bounds.Min.Y-rgba.Rect.Min.Y)*rgba.Stride+(bounds.Min.X-rgba.Rect.Min.X)*4:]
			for x := 0; x < width; x++ {
				dst := (y*width + x) * 3
				buf[dst] = row[x*4+2]
				buf[dst+1] = row[x*4+1]
				buf[dst+2] = row[x*4]
			}
		}
	} else {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				dst := (y*width + x) * 3
				buf[dst] = byte(b >> 8)
				buf[dst+1] = byte(g >> 8)
				buf[dst+2] = byte(r >> 8)
			}
		}
	}

	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, buf)
	if err != nil {
		return gocv.NewMat(), err
	}
	// NewMatFromBytes shares buf; clone so the Mat owns its pixels
	owned := mat.Clone()
	mat.Close()
	return owned, nil
}

// FromMat converts a continuous 8-bit BGR or grayscale Mat to RGBA.
func FromMat(m gocv.Mat) (*image.RGBA, error) {
	if m.Empty() {
		return nil, fmt.Errorf("empty mat")
	}

	width, height, channels := m.Cols(), m.Rows(), m.Channels()
	if channels != 1 && channels != 3 {
		return nil, fmt.Errorf("unsupported channel count: %d", channels)
	}

	data := m.ToBytes()
	if len(data) < width*height*channels {
		return nil, fmt.Errorf("mat data too short: got %d bytes for %dx%dx%d", len(data), width, height, channels)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height; i++ {
		dst := i * 4
		if channels == 1 {
			v := data[i]
			img.Pix[dst], img.Pix[dst+1], img.Pix[dst+2] = v, v, v
		} else {
			src := i * 3
			img.Pix[dst] = data[src+2]
			img.Pix[dst+1] = data[src+1]
			img.Pix[dst+2] = data[src]
		}
		img.Pix[dst+3] = 255
	}
	return img, nil
}
