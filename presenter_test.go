package main

import (
	"sync"
	"testing"
	"time"

	"murmur/session"
)

type recordingSurface struct {
	mu     sync.Mutex
	shows  int
	hides  int
	frames []session.Frame
}

func (s *recordingSurface) Show() {
	s.mu.Lock()
	s.shows++
	s.mu.Unlock()
}

func (s *recordingSurface) Hide() {
	s.mu.Lock()
	s.hides++
	s.mu.Unlock()
}

func (s *recordingSurface) Render(f session.Frame) {
	s.mu.Lock()
	s.frames = append(s.frames, f)
	s.mu.Unlock()
}

func (s *recordingSurface) counts() (shows, hides int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shows, s.hides
}

func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(time.Millisecond):
		}
	}
}

func TestPresenterDelaysHide(t *testing.T) {
	s := &recordingSurface{}
	p := newPresenter(30*time.Millisecond, s)

	p.Show()
	p.Hide()
	if _, hides := s.counts(); hides != 0 {
		t.Fatal("hid before the delay")
	}
	if !p.Visible() {
		t.Error("not visible during the delay")
	}
	waitUntil(t, "hide", func() bool {
		_, hides := s.counts()
		return hides == 1
	})
	if p.Visible() {
		t.Error("still visible after hide")
	}
}

func TestPresenterShowCancelsPendingHide(t *testing.T) {
	s := &recordingSurface{}
	p := newPresenter(30*time.Millisecond, s)

	p.Show()
	p.Hide()
	p.Show()
	time.Sleep(80 * time.Millisecond)

	shows, hides := s.counts()
	if shows != 2 || hides != 0 {
		t.Errorf("shows=%d hides=%d, want 2 and 0", shows, hides)
	}
	if !p.Visible() {
		t.Error("indicator hidden after re-show")
	}
}

func TestPresenterHideImmediately(t *testing.T) {
	s := &recordingSurface{}
	p := newPresenter(time.Hour, s)

	p.Show()
	p.Hide()
	p.HideImmediately()
	if _, hides := s.counts(); hides != 1 {
		t.Fatalf("hides = %d, want 1", hides)
	}
	if p.Visible() {
		t.Error("still visible")
	}
}

func TestPresenterRendersToEverySurface(t *testing.T) {
	a, b := &recordingSurface{}, &recordingSurface{}
	p := newPresenter(0, a, b)

	p.Render(session.Frame{Phase: session.PhaseRecording, Progress: 0.5, Level: 0.2})
	p.Hide()
	for _, s := range []*recordingSurface{a, b} {
		if len(s.frames) != 1 || s.frames[0].Progress != 0.5 {
			t.Errorf("frames = %+v", s.frames)
		}
		if _, hides := s.counts(); hides != 1 {
			t.Errorf("hides = %d, want 1 with no delay", hides)
		}
	}
}
