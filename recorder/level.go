package recorder

import "math"

const (
	levelAttack = 0.7
	levelDecay  = 0.5
	levelGain   = 8.0
	levelCurve  = 0.6
)

// LevelMeter turns sample buffers into a 0..1 loudness for display.
// It is owned by the audio callback and is not safe for concurrent use.
type LevelMeter struct {
	value float64
}

func (m *LevelMeter) Update(samples []int16) float64 {
	if len(samples) == 0 {
		return m.value
	}

	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(samples)))

	raw := math.Min(1, math.Max(0, math.Pow(rms, levelCurve)*levelGain))
	k := levelDecay
	if raw > m.value {
		k = levelAttack
	}
	m.value += (raw - m.value) * k
	return m.value
}

func (m *LevelMeter) Value() float64 { return m.value }
