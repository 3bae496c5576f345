package gui

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math"
)

const iconSize = 44

var (
	iconIdle []byte
	iconRec  []byte
)

func init() {
	iconIdle = renderIcon(iconSize, color.RGBA{R: 150, G: 150, B: 150, A: 255})
	iconRec = renderIcon(iconSize, color.RGBA{R: 255, G: 59, B: 48, A: 255})
}

// renderIcon draws a dark disc with a coloured pupil and encodes it as PNG.
func renderIcon(size int, pupil color.RGBA) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	c := float64(size) / 2
	outer := c - 1
	inner := float64(size) / 6.5
	for y := range size {
		for x := range size {
			d := math.Hypot(float64(x)+0.5-c, float64(y)+0.5-c)
			switch {
			case d <= inner:
				img.Set(x, y, pupil)
			case d <= outer:
				img.Set(x, y, color.Black)
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic("gui: encode icon: " + err.Error())
	}
	return buf.Bytes()
}
