package overlay

import (
	"context"
	"sync"
	"time"
)

const DefaultRate = 60

// Listener receives animation output. Calls are made without the
// animator's lock held.
type Listener interface {
	OverlayFrame(progress float64)
	OverlayHidden()
}

type Animator struct {
	timing Timing

	mu       sync.Mutex
	state    State
	listener Listener
	visible  bool
}

func NewAnimator(t Timing) *Animator {
	return &Animator{timing: t}
}

func (a *Animator) SetListener(l Listener) {
	a.mu.Lock()
	a.listener = l
	a.mu.Unlock()
}

func (a *Animator) update(f func(State) State) {
	a.mu.Lock()
	a.state = f(a.state)
	a.mu.Unlock()
}

func (a *Animator) BeginAppear()    { a.update(BeginAppear) }
func (a *Animator) BeginDisappear() { a.update(BeginDisappear) }
func (a *Animator) LockVisible()    { a.update(LockVisible) }
func (a *Animator) ForceReset()     { a.update(func(State) State { return Reset() }) }

func (a *Animator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Animator) Progress() float64 {
	return a.State().Progress
}

// Tick advances the animation by dt and notifies the listener.
func (a *Animator) Tick(dt time.Duration) {
	a.mu.Lock()
	var ev Event
	a.state, ev = Advance(a.state, dt, a.timing)
	s := a.state
	l := a.listener
	visible := s.Progress > 0 || s.Direction != None
	// one last frame at zero after the overlay goes away
	emit := visible || a.visible
	a.visible = visible
	a.mu.Unlock()

	if l == nil {
		return
	}
	if emit {
		l.OverlayFrame(s.Progress)
	}
	if ev == EventHidden {
		l.OverlayHidden()
	}
}

// Run ticks at rate Hz until ctx is done.
func (a *Animator) Run(ctx context.Context, rate int) {
	if rate <= 0 {
		rate = DefaultRate
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			a.Tick(now.Sub(last))
			last = now
		}
	}
}
