package main

import (
	"sync"
	"time"

	"murmur/session"
)

// surface is one place the indicator is drawn: the terminal UI or the
// desktop overlay.
type surface interface {
	Show()
	Hide()
	Render(session.Frame)
}

// presenter fans the controller's presentation calls out to every surface.
// Hide is delayed and dropped if a Show arrives in the meantime, so a quick
// re-trigger does not make the indicator flicker.
type presenter struct {
	delay    time.Duration
	surfaces []surface

	mu      sync.Mutex
	shows   uint64
	visible bool
	pending *time.Timer
}

func newPresenter(delay time.Duration, surfaces ...surface) *presenter {
	return &presenter{delay: delay, surfaces: surfaces}
}

func (p *presenter) Show() {
	p.mu.Lock()
	p.shows++
	p.visible = true
	p.stopPendingLocked()
	p.mu.Unlock()
	for _, s := range p.surfaces {
		s.Show()
	}
}

func (p *presenter) Hide() {
	if p.delay <= 0 {
		p.HideImmediately()
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopPendingLocked()
	n := p.shows
	p.pending = time.AfterFunc(p.delay, func() { p.hideIf(n) })
}

func (p *presenter) HideImmediately() {
	p.mu.Lock()
	p.shows++
	n := p.shows
	p.stopPendingLocked()
	p.mu.Unlock()
	p.hideIf(n)
}

// hideIf hides the surfaces unless a Show happened after generation n.
func (p *presenter) hideIf(n uint64) {
	p.mu.Lock()
	if p.shows != n {
		p.mu.Unlock()
		return
	}
	p.visible = false
	p.pending = nil
	p.mu.Unlock()
	for _, s := range p.surfaces {
		s.Hide()
	}
}

func (p *presenter) stopPendingLocked() {
	if p.pending != nil {
		p.pending.Stop()
		p.pending = nil
	}
}

func (p *presenter) Render(f session.Frame) {
	for _, s := range p.surfaces {
		s.Render(f)
	}
}

// Visible reports whether the last Show has not been followed by a hide.
func (p *presenter) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}
