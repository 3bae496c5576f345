package recorder

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/wav"

	"murmur/audio"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	rec   *Recorder
	ctx   *audio.FakeContext
	clock *fakeClock
	dir   string
}

func newHarness(t *testing.T, mutate ...func(*Config)) *harness {
	t.Helper()
	h := &harness{
		ctx:   audio.NewManualContext(audio.Format{SampleRate: 16000, Channels: 1}),
		clock: newClock(),
		dir:   t.TempDir(),
	}
	cfg := DefaultConfig()
	cfg.TempDir = h.dir
	cfg.RetryInterval = 5 * time.Millisecond
	cfg.Now = h.clock.Now
	for _, m := range mutate {
		m(&cfg)
	}
	h.rec = New(h.ctx, cfg)
	t.Cleanup(h.rec.Close)
	return h
}

// speech returns n bytes of a loud square wave.
func speech(n int) []byte {
	b := make([]byte, n)
	for i := 0; i+1 < n; i += 2 {
		v := int16(8000)
		if (i/2)%20 < 10 {
			v = -8000
		}
		binary.LittleEndian.PutUint16(b[i:], uint16(v))
	}
	return b
}

func waitState(t *testing.T, r *Recorder, want State) {
	t.Helper()
	deadline := time.After(time.Second)
	for r.State() != want {
		select {
		case <-deadline:
			t.Fatalf("state = %s, want %s", r.State(), want)
		case <-time.After(time.Millisecond):
		}
	}
}

func waitOutcome(t *testing.T, r *Recorder) Outcome {
	t.Helper()
	select {
	case o := <-r.Outcomes():
		return o
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for outcome")
		return Outcome{}
	}
}

func expectNoOutcome(t *testing.T, r *Recorder) {
	t.Helper()
	select {
	case o := <-r.Outcomes():
		t.Fatalf("unexpected outcome %+v", o)
	case <-time.After(30 * time.Millisecond):
	}
}

func wavFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "dictation_*.wav"))
	if err != nil {
		t.Fatal(err)
	}
	return matches
}

func (h *harness) record(t *testing.T, session uint64, data []byte, d time.Duration) Outcome {
	t.Helper()
	h.rec.Start(session)
	waitState(t, h.rec, StateRecording)
	caps := h.ctx.Captures()
	caps[len(caps)-1].Feed(data)
	h.clock.Advance(d)
	h.rec.StopAndFinalize(session)
	return waitOutcome(t, h.rec)
}

func TestRecordProducesArtifact(t *testing.T) {
	h := newHarness(t)

	o := h.record(t, 1, speech(40000), 1200*time.Millisecond)
	if o.Kind != OutcomeReady {
		t.Fatalf("kind = %s (err %v), want ready", o.Kind, o.Err)
	}
	if o.Session != 1 {
		t.Errorf("session = %d, want 1", o.Session)
	}
	if o.Artifact.Duration != 1200*time.Millisecond {
		t.Errorf("duration = %s, want 1.2s", o.Artifact.Duration)
	}
	if o.Artifact.Size != 40000+audio.WAVHeaderSize {
		t.Errorf("size = %d, want %d", o.Artifact.Size, 40000+audio.WAVHeaderSize)
	}
	if _, err := os.Stat(o.Artifact.Path); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if h.rec.State() != StateIdle {
		t.Errorf("state = %s, want idle", h.rec.State())
	}
	if n := h.ctx.Open(); n != 0 {
		t.Errorf("%d capture devices left open", n)
	}
}

func TestArtifactIsTargetFormatWAV(t *testing.T) {
	h := newHarness(t)
	h.ctx.SetFormat(audio.Format{SampleRate: 48000, Channels: 2})

	// one second of 48 kHz stereo
	o := h.record(t, 1, speech(48000*2*2), time.Second)
	if o.Kind != OutcomeReady {
		t.Fatalf("kind = %s (err %v), want ready", o.Kind, o.Err)
	}

	f, err := os.Open(o.Artifact.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		t.Fatal("artifact is not a valid WAV file")
	}
	if dec.SampleRate != 16000 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Errorf("format = %d Hz / %d ch / %d bit, want 16000/1/16", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	if want := int64(16000*2 + audio.WAVHeaderSize); o.Artifact.Size != want {
		t.Errorf("size = %d, want %d", o.Artifact.Size, want)
	}
}

func TestStartSameSessionIsNoop(t *testing.T) {
	h := newHarness(t)

	h.rec.Start(1)
	waitState(t, h.rec, StateRecording)
	h.rec.Start(1)
	h.rec.flush()

	if h.rec.State() != StateRecording {
		t.Errorf("state = %s, want recording", h.rec.State())
	}
	if n := len(h.ctx.Captures()); n != 1 {
		t.Errorf("opened %d captures, want 1", n)
	}
	if n := len(wavFiles(t, h.dir)); n != 1 {
		t.Errorf("%d temp files, want 1", n)
	}
}

func TestShortAndSmallClipsAreDiscarded(t *testing.T) {
	tests := []struct {
		name   string
		bytes  int
		dur    time.Duration
		reason DiscardReason
	}{
		{"too short", 40000, 200 * time.Millisecond, DiscardTooShort},
		{"just under min duration", 40000, 499 * time.Millisecond, DiscardTooShort},
		{"too small", 1000, time.Second, DiscardTooSmall},
		{"header only", 0, time.Second, DiscardTooSmall},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			o := h.record(t, 3, speech(tt.bytes), tt.dur)
			if o.Kind != OutcomeDiscarded {
				t.Fatalf("kind = %s, want discarded", o.Kind)
			}
			if o.Reason != tt.reason {
				t.Errorf("reason = %s, want %s", o.Reason, tt.reason)
			}
			if o.Err != nil {
				t.Errorf("discard carried error %v", o.Err)
			}
			if files := wavFiles(t, h.dir); len(files) != 0 {
				t.Errorf("temp files left behind: %v", files)
			}
		})
	}
}

func TestStartWhileStartingLeavesOneSession(t *testing.T) {
	h := newHarness(t)
	gate := h.ctx.GateStart()

	h.rec.Start(1)
	// let the first engine start block inside the device
	deadline := time.After(time.Second)
	for len(h.ctx.Captures()) == 0 {
		select {
		case <-deadline:
			t.Fatal("first capture never opened")
		case <-time.After(time.Millisecond):
		}
	}
	h.rec.Start(2)
	close(gate)

	waitState(t, h.rec, StateRecording)
	h.rec.flush()

	if got := h.rec.ActiveSession(); got != 2 {
		t.Errorf("active session = %d, want 2", got)
	}
	if n := h.ctx.Running(); n != 1 {
		t.Errorf("%d engines running, want 1", n)
	}
	if n := h.ctx.Open(); n != 1 {
		t.Errorf("%d devices open, want 1", n)
	}
	if n := len(wavFiles(t, h.dir)); n != 1 {
		t.Errorf("%d temp files, want 1", n)
	}
	expectNoOutcome(t, h.rec)
}

func TestStartWhileRecordingTearsDownPrevious(t *testing.T) {
	h := newHarness(t)

	h.rec.Start(1)
	waitState(t, h.rec, StateRecording)
	first := h.ctx.Captures()[0]

	h.rec.Start(2)
	if !first.Closed() {
		t.Error("previous device not closed synchronously")
	}
	waitState(t, h.rec, StateRecording)
	h.rec.flush()

	if n := len(wavFiles(t, h.dir)); n != 1 {
		t.Errorf("%d temp files, want 1", n)
	}
	if got := h.rec.ActiveSession(); got != 2 {
		t.Errorf("active session = %d, want 2", got)
	}
}

func TestStopWhileStartingRetries(t *testing.T) {
	h := newHarness(t)
	gate := h.ctx.GateStart()

	h.rec.Start(1)
	h.rec.StopAndFinalize(1)
	time.Sleep(20 * time.Millisecond)
	if h.rec.State() != StateStarting {
		t.Fatalf("state = %s, want starting", h.rec.State())
	}
	close(gate)

	o := waitOutcome(t, h.rec)
	if o.Kind != OutcomeDiscarded || o.Reason != DiscardTooShort {
		t.Fatalf("outcome = %s/%s, want discarded/too_short", o.Kind, o.Reason)
	}
	waitState(t, h.rec, StateIdle)
}

func TestStopWhileStartingTimesOut(t *testing.T) {
	h := newHarness(t)
	gate := h.ctx.GateStart()

	h.rec.Start(1)
	h.rec.StopAndFinalize(1)
	h.clock.Advance(3 * time.Second)

	o := waitOutcome(t, h.rec)
	if o.Kind != OutcomeFailed || !errors.Is(o.Err, ErrStartTimeout) {
		t.Fatalf("outcome = %s (%v), want failed with ErrStartTimeout", o.Kind, o.Err)
	}
	if h.rec.State() != StateIdle {
		t.Errorf("state = %s, want idle", h.rec.State())
	}

	close(gate)
	h.rec.flush()
	if n := h.ctx.Open(); n != 0 {
		t.Errorf("%d devices open after late start", n)
	}
	if files := wavFiles(t, h.dir); len(files) != 0 {
		t.Errorf("temp files left behind: %v", files)
	}
}

func TestStopWhenIdleReconciles(t *testing.T) {
	h := newHarness(t)

	h.rec.StopAndFinalize(9)
	o := waitOutcome(t, h.rec)
	if o.Kind != OutcomeIdle || o.Session != 9 {
		t.Fatalf("outcome = %+v, want idle for session 9", o)
	}
}

func TestStopForOtherSessionIgnored(t *testing.T) {
	h := newHarness(t)

	h.rec.Start(2)
	waitState(t, h.rec, StateRecording)
	h.rec.StopAndFinalize(1)

	expectNoOutcome(t, h.rec)
	if h.rec.State() != StateRecording {
		t.Errorf("state = %s, want recording", h.rec.State())
	}
}

func TestInvalidDeviceFormatFails(t *testing.T) {
	h := newHarness(t)
	h.ctx.SetFormat(audio.Format{})

	h.rec.Start(1)
	o := waitOutcome(t, h.rec)
	if o.Kind != OutcomeFailed || !errors.Is(o.Err, ErrInvalidFormat) {
		t.Fatalf("outcome = %s (%v), want failed with ErrInvalidFormat", o.Kind, o.Err)
	}
	if h.rec.State() != StateIdle {
		t.Errorf("state = %s, want idle", h.rec.State())
	}
	if n := h.ctx.Open(); n != 0 {
		t.Errorf("%d devices open", n)
	}
}

func TestEngineStartErrorFails(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("device busy")
	h.ctx.FailStart(boom)

	h.rec.Start(1)
	o := waitOutcome(t, h.rec)
	if o.Kind != OutcomeFailed || !errors.Is(o.Err, boom) {
		t.Fatalf("outcome = %s (%v), want failed wrapping %v", o.Kind, o.Err, boom)
	}
	if files := wavFiles(t, h.dir); len(files) != 0 {
		t.Errorf("temp files left behind: %v", files)
	}
}

func TestDeviceOverrideRestored(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.Device = &audio.DeviceInfo{ID: "usb", Name: "USB Microphone"}
	})

	h.rec.Start(1)
	waitState(t, h.rec, StateRecording)
	if src, _ := h.ctx.DefaultSource(); src != "usb" {
		t.Fatalf("default source during recording = %q, want usb", src)
	}

	h.clock.Advance(time.Second)
	h.rec.StopAndFinalize(1)
	waitOutcome(t, h.rec)
	if src, _ := h.ctx.DefaultSource(); src != "builtin" {
		t.Errorf("default source after stop = %q, want builtin", src)
	}
}

func TestForceResetFromAnyState(t *testing.T) {
	device := func(c *Config) { c.Device = &audio.DeviceInfo{ID: "usb", Name: "USB Microphone"} }

	t.Run("recording", func(t *testing.T) {
		h := newHarness(t, device)
		h.rec.Start(1)
		waitState(t, h.rec, StateRecording)
		h.ctx.Captures()[0].Feed(speech(20000))

		h.rec.ForceReset()
		h.assertClean(t)
	})

	t.Run("starting", func(t *testing.T) {
		h := newHarness(t, device)
		gate := h.ctx.GateStart()
		h.rec.Start(1)

		h.rec.ForceReset()
		if h.rec.State() != StateIdle {
			t.Fatalf("state = %s, want idle", h.rec.State())
		}
		close(gate)
		h.rec.flush()
		h.assertClean(t)
	})

	t.Run("stopping", func(t *testing.T) {
		h := newHarness(t, device)
		h.rec.Start(1)
		waitState(t, h.rec, StateRecording)
		h.ctx.Captures()[0].Feed(speech(40000))
		h.clock.Advance(time.Second)

		release := h.blockQueue()
		h.rec.StopAndFinalize(1)
		h.rec.ForceReset()
		h.assertClean(t)

		close(release)
		h.rec.flush()
		expectNoOutcome(t, h.rec)
		h.assertClean(t)
	})

	t.Run("idle", func(t *testing.T) {
		h := newHarness(t, device)
		h.rec.ForceReset()
		h.assertClean(t)
	})
}

// blockQueue parks the control goroutine until the returned channel is
// closed.
func (h *harness) blockQueue() chan struct{} {
	release := make(chan struct{})
	parked := make(chan struct{})
	h.rec.enqueue(func() {
		close(parked)
		<-release
	})
	<-parked
	return release
}

func TestCloseReleasesStoppingCapture(t *testing.T) {
	h := newHarness(t)
	h.rec.Start(1)
	waitState(t, h.rec, StateRecording)
	h.ctx.Captures()[0].Feed(speech(40000))
	h.clock.Advance(time.Second)

	release := h.blockQueue()
	h.rec.StopAndFinalize(1)
	closed := make(chan struct{})
	go func() {
		h.rec.Close()
		close(closed)
	}()
	close(release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not return")
	}

	if n := h.ctx.Running(); n != 0 {
		t.Errorf("%d engines running", n)
	}
	if n := h.ctx.Open(); n != 0 {
		t.Errorf("%d devices open", n)
	}
	if files := wavFiles(t, h.dir); len(files) != 0 {
		t.Errorf("temp files left behind: %v", files)
	}
}

func TestCloseRemovesUndeliveredArtifact(t *testing.T) {
	h := newHarness(t)
	h.rec.Start(1)
	waitState(t, h.rec, StateRecording)
	h.ctx.Captures()[0].Feed(speech(40000))
	h.clock.Advance(time.Second)
	h.rec.StopAndFinalize(1)
	h.rec.flush()
	if files := wavFiles(t, h.dir); len(files) != 1 {
		t.Fatalf("temp files = %v, want the finished clip", files)
	}

	h.rec.Close()
	if files := wavFiles(t, h.dir); len(files) != 0 {
		t.Errorf("temp files left behind: %v", files)
	}
}

func TestDurationEndsAtStop(t *testing.T) {
	h := newHarness(t)
	h.rec.Start(1)
	waitState(t, h.rec, StateRecording)
	h.ctx.Captures()[0].Feed(speech(40000))
	h.clock.Advance(300 * time.Millisecond)

	release := h.blockQueue()
	h.rec.StopAndFinalize(1)
	// a slow queue must not stretch the clip
	h.clock.Advance(time.Second)
	close(release)

	o := waitOutcome(t, h.rec)
	if o.Kind != OutcomeDiscarded || o.Reason != DiscardTooShort {
		t.Fatalf("outcome = %s/%s, want discarded/too_short", o.Kind, o.Reason)
	}
	if o.Artifact.Duration != 300*time.Millisecond {
		t.Errorf("duration = %v, want 300ms", o.Artifact.Duration)
	}
}

func (h *harness) assertClean(t *testing.T) {
	t.Helper()
	if s := h.rec.State(); s != StateIdle {
		t.Errorf("state = %s, want idle", s)
	}
	if n := h.ctx.Running(); n != 0 {
		t.Errorf("%d engines running", n)
	}
	if n := h.ctx.Open(); n != 0 {
		t.Errorf("%d devices open", n)
	}
	if files := wavFiles(t, h.dir); len(files) != 0 {
		t.Errorf("temp files left behind: %v", files)
	}
	if src, _ := h.ctx.DefaultSource(); src != "builtin" {
		t.Errorf("default source = %q, want builtin", src)
	}
	if lvl := h.rec.Level(); lvl != 0 {
		t.Errorf("level = %v, want 0", lvl)
	}
}

func TestLevelPublishedWhileRecording(t *testing.T) {
	h := newHarness(t)

	h.rec.Start(1)
	waitState(t, h.rec, StateRecording)
	h.ctx.Captures()[0].Feed(speech(3200))

	if lvl := h.rec.Level(); lvl <= 0 || lvl > 1 {
		t.Errorf("level = %v, want in (0,1]", lvl)
	}
}
