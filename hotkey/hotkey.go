package hotkey

import "context"

// Edge is one transition of the trigger combination.
type Edge int

const (
	EdgeDown Edge = iota + 1
	EdgeUp
)

func (e Edge) String() string {
	switch e {
	case EdgeDown:
		return "down"
	case EdgeUp:
		return "up"
	default:
		return "unknown"
	}
}

type Hotkey interface {
	Register() error
	Unregister()
	// Edges delivers presses and releases in the order they happened.
	Edges() <-chan Edge
}

// Trigger receives push-to-talk edges.
type Trigger interface {
	TriggerDown()
	TriggerUp()
}

const edgeQueue = 16

// push queues e without blocking the device reader. Edges past a full
// queue are dropped.
func push(ch chan Edge, e Edge) {
	select {
	case ch <- e:
	default:
	}
}

// Pump forwards hotkey edges to t until ctx is cancelled.
func Pump(ctx context.Context, hk Hotkey, t Trigger) {
	edges := hk.Edges()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-edges:
			switch e {
			case EdgeDown:
				t.TriggerDown()
			case EdgeUp:
				t.TriggerUp()
			}
		}
	}
}
