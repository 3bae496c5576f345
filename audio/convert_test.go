package audio

import (
	"encoding/binary"
	"math"
	"testing"
)

func pcm(samples ...int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b
}

func TestConverterPassthrough(t *testing.T) {
	f := Format{SampleRate: 16000, Channels: 1}
	c, err := NewConverter(f, f)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Passthrough() {
		t.Fatal("expected passthrough")
	}
	got := c.Convert(pcm(1, -2, 300))
	want := []int16{1, -2, 300}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestConverterDownmix(t *testing.T) {
	c, err := NewConverter(Format{SampleRate: 16000, Channels: 2}, Format{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	got := c.Convert(pcm(100, 300, -50, -150))
	if len(got) != 2 || got[0] != 200 || got[1] != -100 {
		t.Fatalf("got %v, want [200 -100]", got)
	}
}

func TestConverterDownsampleAcrossBuffers(t *testing.T) {
	c, err := NewConverter(Format{SampleRate: 48000, Channels: 1}, Format{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}

	in := make([]int16, 480)
	for i := range in {
		in[i] = int16(i)
	}

	var out []int16
	// odd chunk sizes so the fractional position has to carry over
	for pos := 0; pos < len(in); {
		end := min(pos+37, len(in))
		out = append(out, c.Convert(pcm(in[pos:end]...))...)
		pos = end
	}

	if len(out) != 160 {
		t.Fatalf("got %d samples, want 160", len(out))
	}
	for i, s := range out {
		if s != int16(i*3) {
			t.Fatalf("sample %d = %d, want %d", i, s, i*3)
		}
	}
}

func TestConverterUpsampleInterpolates(t *testing.T) {
	c, err := NewConverter(Format{SampleRate: 8000, Channels: 1}, Format{SampleRate: 16000, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	first := c.Convert(pcm(0, 100))
	second := c.Convert(pcm(200))
	got := append(first, second...)
	want := []int16{0, 50, 100, 150, 200}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestConverterRejectsZeroFormat(t *testing.T) {
	if _, err := NewConverter(Format{}, Format{SampleRate: 16000, Channels: 1}); err == nil {
		t.Fatal("expected error for zero source format")
	}
}

func TestAmplifySaturates(t *testing.T) {
	data := amplify([]int16{100, -100, 5000, -5000}, 8)
	want := []int16{800, -800, math.MaxInt16, math.MinInt16}
	for i, w := range want {
		if got := int16(binary.LittleEndian.Uint16(data[i*2:])); got != w {
			t.Errorf("sample %d = %d, want %d", i, got, w)
		}
	}
}
