package gui

import (
	"math"

	"murmur/session"
)

const (
	eyeWidth    = 44
	eyeHeight   = 15
	pixelHeight = eyeHeight * 2

	// rings at or beyond this index form the casing and never scale
	casingRing = 9
)

type ring struct {
	radius     float64
	breatheAmt float64
	colorIdx   int
}

var rings = []ring{
	{0.6, 0.30, 1},
	{1.3, 0.35, 2},
	{2.0, 0.30, 3},
	{2.8, 0.20, 4},
	{3.5, 0.18, 5},
	{4.2, 0.15, 6},
	{5.0, 0.12, 7},
	{5.8, 0.08, 8},
	{6.5, 0.03, 9},
	{7.2, 0.0, 10},
	{8.0, 0.0, 11},
	{10.0, 0.0, 12},
	{12.0, 0.0, 13},
}

type spot struct {
	ox, oy float64
	radius float64
	color  int
}

// Glass reflections
var spots = []spot{
	{-9.0 * 0.707, -9.0 * 0.707, 0.7, 14},
	{-7.2 * 0.707, -7.2 * 0.707, 0.4, 15},
	{0, -10.0, 0.8, 14},
	{0, -8.2, 0.6, 15},
	{9.0 * 0.707, -9.0 * 0.707, 0.7, 14},
	{7.2 * 0.707, -7.2 * 0.707, 0.4, 15},
	{0, -2.0, 0.6, 14},
}

// computePixels generates the eye pixel grid for one frame. The overlay
// progress opens the iris and the input level makes it breathe.
func computePixels(tick int, f session.Frame) [][]int {
	centerX := float64(eyeWidth) / 2
	centerY := float64(pixelHeight) / 2

	var breathe float64
	switch f.Phase {
	case session.PhaseRecording:
		breathe = math.Sin(float64(tick)*0.15)*0.08 + f.Level*0.9
	case session.PhaseTranscribing:
		breathe = math.Sin(float64(tick)*0.30) * 0.10
	default:
		breathe = math.Sin(float64(tick)*0.10) * 0.05
	}
	open := 0.3 + 0.7*math.Max(0, math.Min(1, f.Progress))

	pixels := make([][]int, pixelHeight)
	for i := range pixels {
		pixels[i] = make([]int, eyeWidth)
	}

	for y := 0; y < pixelHeight; y++ {
		for x := 0; x < eyeWidth; x++ {
			dx := float64(x) - centerX
			dy := float64(y) - centerY
			dist := math.Sqrt(dx*dx + dy*dy)
			for i, r := range rings {
				radius := r.radius + breathe*r.breatheAmt*20
				if i < casingRing {
					radius = math.Min(radius, 7.0) * open
				}
				if dist < radius {
					pixels[y][x] = r.colorIdx
					break
				}
			}
		}
	}

	for y := 0; y < pixelHeight; y++ {
		for x := 0; x < eyeWidth; x++ {
			px := float64(x) - centerX
			py := float64(y) - centerY
			for _, s := range spots {
				dx := px - s.ox
				dy := py - s.oy
				rLen := math.Sqrt(s.ox*s.ox + s.oy*s.oy)
				tx, ty := -s.oy/rLen, s.ox/rLen
				dt := dx*tx + dy*ty
				dn := dx*(-ty) + dy*tx
				if (dt*dt)/9.0+dn*dn < s.radius*s.radius {
					pixels[y][x] = s.color
				}
			}
		}
	}

	return pixels
}
