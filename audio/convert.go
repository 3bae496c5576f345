package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Converter turns device buffers into the target format: channels are
// averaged down to mono and the rate is changed by linear interpolation.
// State carries across buffers so a stream can be fed in arbitrary chunks.
type Converter struct {
	from Format
	to   Format
	step float64
	pos  float64
	last int16
}

func NewConverter(from, to Format) (*Converter, error) {
	if !from.Valid() {
		return nil, fmt.Errorf("invalid source format %d Hz / %d ch", from.SampleRate, from.Channels)
	}
	if !to.Valid() {
		return nil, fmt.Errorf("invalid target format %d Hz / %d ch", to.SampleRate, to.Channels)
	}
	return &Converter{
		from: from,
		to:   to,
		step: float64(from.SampleRate) / float64(to.SampleRate),
	}, nil
}

func (c *Converter) Passthrough() bool {
	return c.from == c.to
}

// Convert returns interleaved samples in the target format.
func (c *Converter) Convert(data []byte) []int16 {
	if c.Passthrough() {
		out := make([]int16, len(data)/2)
		for i := range out {
			out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
		}
		return out
	}

	mono := c.downmix(data)
	if c.from.SampleRate != c.to.SampleRate {
		mono = c.resample(mono)
	}
	if c.to.Channels == 1 {
		return mono
	}

	out := make([]int16, len(mono)*int(c.to.Channels))
	for i, s := range mono {
		for ch := 0; ch < int(c.to.Channels); ch++ {
			out[i*int(c.to.Channels)+ch] = s
		}
	}
	return out
}

func (c *Converter) downmix(data []byte) []int16 {
	ch := int(c.from.Channels)
	frames := len(data) / 2 / ch
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int32
		for j := 0; j < ch; j++ {
			off := (i*ch + j) * 2
			sum += int32(int16(binary.LittleEndian.Uint16(data[off:])))
		}
		out[i] = int16(sum / int32(ch))
	}
	return out
}

func (c *Converter) resample(in []int16) []int16 {
	n := len(in)
	if n == 0 {
		return nil
	}

	// index -1 is the final sample of the previous buffer
	at := func(i int) float64 {
		if i < 0 {
			return float64(c.last)
		}
		return float64(in[i])
	}

	out := make([]int16, 0, int(float64(n)/c.step)+1)
	p := c.pos
	for p <= float64(n-1) {
		i := int(math.Floor(p))
		frac := p - float64(i)
		v := at(i)
		if frac > 0 {
			v += (at(i+1) - v) * frac
		}
		out = append(out, clampSample(math.Round(v)))
		p += c.step
	}
	c.pos = p - float64(n)
	c.last = in[n-1]
	return out
}

func clampSample(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// amplify scales samples by gain, saturating at the int16 range, and returns
// them as little-endian bytes.
func amplify(samples []int16, gain float64) []byte {
	data := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(clampSample(float64(s)*gain)))
	}
	return data
}
