// Package overlay animates the visibility of the recording indicator.
//
// The animation is a pure function of State and elapsed time. Animator
// drives it from a ticker and reports frames to a Listener.
package overlay

import "time"

type Direction int

const (
	None Direction = iota
	Appearing
	Disappearing
)

func (d Direction) String() string {
	switch d {
	case Appearing:
		return "appearing"
	case Disappearing:
		return "disappearing"
	default:
		return "none"
	}
}

type Event int

const (
	EventNone Event = iota
	EventShown
	EventHidden
)

type Timing struct {
	Appear    time.Duration
	Disappear time.Duration
}

func DefaultTiming() Timing {
	return Timing{Appear: 700 * time.Millisecond, Disappear: 300 * time.Millisecond}
}

// State is the animation position. The zero value is hidden and idle.
type State struct {
	Progress  float64
	Direction Direction
	Locked    bool
	Held      bool

	from    float64
	elapsed time.Duration
}

// BeginAppear animates toward fully visible from wherever progress is now.
func BeginAppear(s State) State {
	if s.Locked {
		return s
	}
	s.Held = true
	return begin(s, Appearing)
}

// BeginDisappear animates toward hidden from wherever progress is now.
func BeginDisappear(s State) State {
	if s.Locked {
		return s
	}
	s.Held = false
	return begin(s, Disappearing)
}

func begin(s State, d Direction) State {
	s.Direction = d
	s.from = s.Progress
	s.elapsed = 0
	return s
}

// LockVisible pins progress at 1 until Reset.
func LockVisible(s State) State {
	s.Locked = true
	s.Progress = 1
	s.Direction = None
	s.elapsed = 0
	return s
}

func Reset() State {
	return State{}
}

// Advance moves the animation forward by dt. The time left for an animation
// is its full duration scaled by the distance left when it began, so the
// speed is the same whether it started from an endpoint or mid-flight.
func Advance(s State, dt time.Duration, t Timing) (State, Event) {
	switch s.Direction {
	case Appearing:
		s.elapsed += dt
		total := scale(t.Appear, 1-s.from)
		if total <= 0 || s.elapsed >= total {
			s.Progress = 1
			s.Direction = None
			return s, EventShown
		}
		s.Progress = s.from + (1-s.from)*fraction(s.elapsed, total)

	case Disappearing:
		s.elapsed += dt
		total := scale(t.Disappear, s.from)
		if total <= 0 || s.elapsed >= total {
			s.Progress = 0
			s.Direction = None
			return s, EventHidden
		}
		s.Progress = s.from * (1 - fraction(s.elapsed, total))
	}
	return s, EventNone
}

func scale(d time.Duration, distance float64) time.Duration {
	return time.Duration(float64(d) * distance)
}

func fraction(elapsed, total time.Duration) float64 {
	return float64(elapsed) / float64(total)
}
