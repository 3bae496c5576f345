//go:build gui

package gui

import (
	"image/color"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"murmur/session"
)

// Palettes, indexed by the values computePixels emits.
var (
	colorsRec = palette(
		color.RGBA{255, 255, 0, 255}, color.RGBA{255, 215, 0, 255}, color.RGBA{255, 175, 0, 255},
		color.RGBA{255, 135, 0, 255}, color.RGBA{255, 0, 0, 255}, color.RGBA{215, 0, 0, 255},
		color.RGBA{175, 0, 0, 255}, color.RGBA{135, 0, 0, 255}, color.RGBA{95, 0, 0, 255},
	)
	colorsBusy = palette(
		color.RGBA{235, 245, 255, 255}, color.RGBA{175, 215, 255, 255}, color.RGBA{135, 175, 255, 255},
		color.RGBA{95, 135, 255, 255}, color.RGBA{0, 95, 255, 255}, color.RGBA{0, 75, 215, 255},
		color.RGBA{0, 55, 175, 255}, color.RGBA{0, 35, 135, 255}, color.RGBA{0, 20, 95, 255},
	)
	colorsIdle = palette(
		color.RGBA{255, 255, 255, 255}, color.RGBA{255, 215, 215, 255}, color.RGBA{255, 175, 175, 255},
		color.RGBA{255, 135, 135, 255}, color.RGBA{215, 0, 0, 255}, color.RGBA{175, 0, 0, 255},
		color.RGBA{135, 0, 0, 255}, color.RGBA{95, 0, 0, 255}, color.RGBA{48, 48, 48, 255},
	)
)

// palette builds a full 16-entry table from the nine iris colours. The
// casing and the glass highlights are shared.
func palette(iris ...color.Color) []color.Color {
	casing := color.RGBA{48, 48, 48, 255}
	p := []color.Color{color.RGBA{0, 0, 0, 255}}
	p = append(p, iris...)
	for len(p) < 14 {
		p = append(p, casing)
	}
	return append(p, color.RGBA{255, 255, 255, 255}, color.RGBA{180, 180, 180, 255})
}

func colorsFor(p session.Phase) []color.Color {
	switch p {
	case session.PhaseRecording:
		return colorsRec
	case session.PhaseTranscribing:
		return colorsBusy
	}
	return colorsIdle
}

type EyeWidget struct {
	widget.BaseWidget
	mu     sync.Mutex
	tick   int
	frame  session.Frame
	stopCh chan struct{}
}

func NewEyeWidget() *EyeWidget {
	e := &EyeWidget{stopCh: make(chan struct{})}
	e.ExtendBaseWidget(e)
	go e.animate()
	return e
}

func (e *EyeWidget) SetFrame(f session.Frame) {
	e.mu.Lock()
	e.frame = f
	e.mu.Unlock()
}

func (e *EyeWidget) Stop() {
	select {
	case <-e.stopCh:
	default:
		close(e.stopCh)
	}
}

func (e *EyeWidget) animate() {
	ticker := time.NewTicker(33 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ticker.C:
			e.mu.Lock()
			e.tick++
			e.mu.Unlock()
			fyne.Do(e.Refresh)
		}
	}
}

func (e *EyeWidget) MinSize() fyne.Size {
	return fyne.NewSize(float32(eyeWidth*8), float32(eyeHeight*16))
}

func (e *EyeWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &eyeRenderer{eye: e}
	r.rects = make([][]*canvas.Rectangle, eyeHeight)
	for y := range eyeHeight {
		r.rects[y] = make([]*canvas.Rectangle, eyeWidth)
		for x := range eyeWidth {
			r.rects[y][x] = canvas.NewRectangle(color.Black)
		}
	}
	return r
}

type eyeRenderer struct {
	eye   *EyeWidget
	rects [][]*canvas.Rectangle
}

func (r *eyeRenderer) Layout(size fyne.Size) {
	cellW := size.Width / float32(eyeWidth)
	cellH := size.Height / float32(eyeHeight)
	for y := range eyeHeight {
		for x := range eyeWidth {
			r.rects[y][x].Move(fyne.NewPos(float32(x)*cellW, float32(y)*cellH))
			r.rects[y][x].Resize(fyne.NewSize(cellW, cellH))
		}
	}
}

func (r *eyeRenderer) MinSize() fyne.Size {
	return r.eye.MinSize()
}

func (r *eyeRenderer) Refresh() {
	r.eye.mu.Lock()
	tick, frame := r.eye.tick, r.eye.frame
	r.eye.mu.Unlock()

	pixels := computePixels(tick, frame)
	colors := colorsFor(frame.Phase)

	// each cell covers two pixel rows
	for cy := range eyeHeight {
		top, bot := pixels[cy*2], pixels[cy*2+1]
		for cx := range eyeWidth {
			r.rects[cy][cx].FillColor = blendColors(colors[top[cx]], colors[bot[cx]])
			r.rects[cy][cx].Refresh()
		}
	}
}

func blendColors(top, bot color.Color) color.Color {
	tr, tg, tb, _ := top.RGBA()
	br, bg, bb, _ := bot.RGBA()
	return color.RGBA{
		R: uint8((tr + br) / 512),
		G: uint8((tg + bg) / 512),
		B: uint8((tb + bb) / 512),
		A: 255,
	}
}

func (r *eyeRenderer) Objects() []fyne.CanvasObject {
	objs := make([]fyne.CanvasObject, 0, eyeWidth*eyeHeight)
	for _, row := range r.rects {
		for _, rect := range row {
			objs = append(objs, rect)
		}
	}
	return objs
}

func (r *eyeRenderer) Destroy() {
	r.eye.Stop()
}
