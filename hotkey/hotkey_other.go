//go:build !linux

package hotkey

import (
	"sync"

	"golang.design/x/hotkey"
)

type xHotkey struct {
	hk    *hotkey.Hotkey
	edges chan Edge
	stop  chan struct{}
	once  sync.Once
}

func New() Hotkey {
	return &xHotkey{
		hk:    hotkey.New([]hotkey.Modifier{hotkey.ModCtrl, hotkey.ModShift}, hotkey.KeySpace),
		edges: make(chan Edge, edgeQueue),
		stop:  make(chan struct{}),
	}
}

func (h *xHotkey) Register() error {
	if err := h.hk.Register(); err != nil {
		return err
	}
	go h.forward()
	return nil
}

// forward reads both library channels on one goroutine so edges keep
// the order the event loop sent them in.
func (h *xHotkey) forward() {
	down, up := h.hk.Keydown(), h.hk.Keyup()
	for {
		select {
		case <-h.stop:
			return
		case <-down:
			push(h.edges, EdgeDown)
		case <-up:
			push(h.edges, EdgeUp)
		}
	}
}

func (h *xHotkey) Unregister() {
	h.once.Do(func() {
		close(h.stop)
		h.hk.Unregister()
	})
}

func (h *xHotkey) Edges() <-chan Edge {
	return h.edges
}

func Diagnose() (string, error) {
	return "hotkey support available (Ctrl+Shift+Space)", nil
}
