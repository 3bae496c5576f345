package overlay

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordingListener struct {
	mu     sync.Mutex
	frames []float64
	hidden int
}

func (l *recordingListener) OverlayFrame(p float64) {
	l.mu.Lock()
	l.frames = append(l.frames, p)
	l.mu.Unlock()
}

func (l *recordingListener) OverlayHidden() {
	l.mu.Lock()
	l.hidden++
	l.mu.Unlock()
}

func (l *recordingListener) counts() (int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.frames), l.hidden
}

func TestAnimatorHiddenFiresOnce(t *testing.T) {
	a := NewAnimator(DefaultTiming())
	l := &recordingListener{}
	a.SetListener(l)

	a.BeginAppear()
	for i := 0; i < 10; i++ {
		a.Tick(frame)
	}
	a.BeginDisappear()
	for i := 0; i < 40; i++ {
		a.Tick(frame)
	}

	frames, hidden := l.counts()
	if hidden != 1 {
		t.Fatalf("hidden fired %d times, want 1", hidden)
	}
	if l.frames[len(l.frames)-1] != 0 {
		t.Errorf("last frame = %v, want 0", l.frames[len(l.frames)-1])
	}

	// idle ticks stay quiet
	a.Tick(frame)
	if f, _ := l.counts(); f != frames {
		t.Errorf("idle tick emitted a frame")
	}
}

func TestAnimatorLockAndForceReset(t *testing.T) {
	a := NewAnimator(DefaultTiming())
	a.BeginAppear()
	a.Tick(100 * time.Millisecond)
	a.LockVisible()
	a.BeginDisappear()
	a.Tick(time.Second)
	if p := a.Progress(); p != 1 {
		t.Fatalf("progress while locked = %v, want 1", p)
	}

	a.ForceReset()
	s := a.State()
	if s.Progress != 0 || s.Locked || s.Held || s.Direction != None {
		t.Fatalf("state after force reset = %+v", s)
	}
}

func TestAnimatorRun(t *testing.T) {
	a := NewAnimator(Timing{Appear: 50 * time.Millisecond, Disappear: 50 * time.Millisecond})
	l := &recordingListener{}
	a.SetListener(l)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx, 200)
		close(done)
	}()

	a.BeginAppear()
	deadline := time.After(time.Second)
	for a.Progress() < 1 {
		select {
		case <-deadline:
			t.Fatalf("never fully shown, progress %v", a.Progress())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if f, _ := l.counts(); f == 0 {
		t.Error("no frames emitted")
	}
}
