// Package testimg builds synthetic rasters for tests.
package testimg

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand"
)

// Solid returns a w x h image filled with c.
func Solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}

// Black returns an all-black opaque image.
func Black(w, h int) *image.RGBA {
	return Solid(w, h, color.RGBA{A: 255})
}

// Textured returns an image covered in random, non-black rectangles, which
// gives feature detectors plenty of corners to match.
func Textured(w, h int, seed int64) *image.RGBA {
	rng := rand.New(rand.NewSource(seed))
	img := Solid(w, h, color.RGBA{R: 128, G: 128, B: 128, A: 255})
	for i := 0; i < w*h/200; i++ {
		x, y := rng.Intn(w), rng.Intn(h)
		rw, rh := 4+rng.Intn(24), 4+rng.Intn(24)
		c := color.RGBA{
			R: uint8(30 + rng.Intn(220)),
			G: uint8(30 + rng.Intn(220)),
			B: uint8(30 + rng.Intn(220)),
			A: 255,
		}
		draw.Draw(img, image.Rect(x, y, x+rw, y+rh), &image.Uniform{c}, image.Point{}, draw.Src)
	}
	return img
}

// Framed returns a w x h black canvas with a solid non-black rectangle at r.
func Framed(w, h int, r image.Rectangle, c color.RGBA) *image.RGBA {
	img := Black(w, h)
	draw.Draw(img, r, &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}
