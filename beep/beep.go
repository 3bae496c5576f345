// Package beep plays short feedback tones for recording start, stop and
// errors.
package beep

import (
	"math"
	"sync/atomic"
)

var disabled atomic.Bool

func Disable() { disabled.Store(true) }

func Enabled() bool { return !disabled.Load() }

const (
	sampleRate = 44100

	// Start beep: high pitch, short
	startFreq   = 1200
	startVolume = 0.5
	startDecay  = 60

	// End beep: medium pitch, slightly longer
	endFreq   = 900
	endVolume = 0.5
	endDecay  = 40

	// Error beep: low pitch double-beep
	errorFreq   = 350
	errorVolume = 0.6
	errorDecay  = 30
)

// tick renders a decaying sine with the sample repeated for each channel.
func tick(channels int, freq, duration, volume, decay float64) []int16 {
	n := int(sampleRate * duration)
	samples := make([]int16, n*channels)
	for i := 0; i < n; i++ {
		t := float64(i) / sampleRate
		envelope := math.Exp(-t * decay)
		s := int16(math.Sin(2*math.Pi*freq*t) * 32767 * volume * envelope)
		for c := 0; c < channels; c++ {
			samples[i*channels+c] = s
		}
	}
	return samples
}

func doubleBeep(channels int, freq, beepDur, gapDur, volume, decay float64) []int16 {
	one := tick(channels, freq, beepDur, volume, decay)
	gap := make([]int16, int(sampleRate*gapDur)*channels)
	result := make([]int16, 0, len(one)*2+len(gap))
	result = append(result, one...)
	result = append(result, gap...)
	result = append(result, one...)
	return result
}

func toBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		buf[i*2] = byte(s)
		buf[i*2+1] = byte(s >> 8)
	}
	return buf
}

// Player exposes the tones as methods so they can be injected.
type Player struct{}

func (Player) Start() { PlayStart() }
func (Player) Stop()  { PlayEnd() }
func (Player) Error() { PlayError() }
