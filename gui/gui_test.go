package gui

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
	"unicode/utf8"

	"murmur/session"
)

func TestMenuLabel(t *testing.T) {
	if got := menuLabel("  hello\n\tthere  "); got != "hello there" {
		t.Errorf("menuLabel = %q", got)
	}
	long := strings.Repeat("word ", 20)
	got := menuLabel(long)
	if utf8.RuneCountInString(got) > maxLabel {
		t.Errorf("label too long: %d runes", utf8.RuneCountInString(got))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("label %q not marked as truncated", got)
	}
}

func TestIconsDecode(t *testing.T) {
	for name, data := range map[string][]byte{"idle": iconIdle, "rec": iconRec} {
		img, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if b := img.Bounds(); b.Dx() != iconSize || b.Dy() != iconSize {
			t.Errorf("%s bounds = %v", name, b)
		}
	}
}

func lit(pixels [][]int) int {
	n := 0
	for _, row := range pixels {
		for _, p := range row {
			if p >= 1 && p < casingRing {
				n++
			}
		}
	}
	return n
}

func TestProgressOpensTheEye(t *testing.T) {
	closed := computePixels(0, session.Frame{Phase: session.PhaseRecording})
	open := computePixels(0, session.Frame{Phase: session.PhaseRecording, Progress: 1})
	if len(open) != pixelHeight || len(open[0]) != eyeWidth {
		t.Fatalf("grid is %dx%d", len(open[0]), len(open))
	}
	if lit(open) <= lit(closed) {
		t.Errorf("open iris has %d lit pixels, closed has %d", lit(open), lit(closed))
	}
}
