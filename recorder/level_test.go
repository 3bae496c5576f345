package recorder

import (
	"math"
	"testing"
)

func TestLevelMeterSilence(t *testing.T) {
	var m LevelMeter
	if got := m.Update(make([]int16, 256)); got != 0 {
		t.Errorf("silence level = %v, want 0", got)
	}
}

func TestLevelMeterAttackAndDecay(t *testing.T) {
	var m LevelMeter
	loud := make([]int16, 256)
	for i := range loud {
		loud[i] = 16384
	}

	// rms 0.5 boosts past the clamp, so the target is 1
	if got := m.Update(loud); math.Abs(got-0.7) > 1e-9 {
		t.Fatalf("first loud update = %v, want 0.7", got)
	}
	if got := m.Update(loud); math.Abs(got-0.91) > 1e-9 {
		t.Fatalf("second loud update = %v, want 0.91", got)
	}
	if got := m.Update(make([]int16, 256)); math.Abs(got-0.455) > 1e-9 {
		t.Fatalf("decay update = %v, want 0.455", got)
	}
}

func TestLevelMeterEmptyBufferKeepsValue(t *testing.T) {
	m := LevelMeter{value: 0.3}
	if got := m.Update(nil); got != 0.3 {
		t.Errorf("level = %v, want 0.3", got)
	}
}
