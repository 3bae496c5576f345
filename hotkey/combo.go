package hotkey

import "encoding/binary"

// evdev key codes and values from linux/input-event-codes.h
const (
	keyRelease = 0
	keyPress   = 1
	keyLCtrl   = 29
	keyRCtrl   = 97
	keyLShift  = 42
	keyRShift  = 54
	keySpace   = 57

	evKey = 1
	// size of struct input_event on 64-bit kernels
	inputEventSize = 24
)

// combo tracks Ctrl+Shift+Space from raw key events. Auto-repeat events
// are ignored.
type combo struct {
	ctrl, shift, space bool
}

// feed returns whether the event completed a press or a release of the
// combination.
func (c *combo) feed(code uint16, value int32) (down, up bool) {
	pressed := value == keyPress
	released := value == keyRelease

	switch code {
	case keyLCtrl, keyRCtrl:
		c.ctrl = pressed || (!released && c.ctrl)
	case keyLShift, keyRShift:
		c.shift = pressed || (!released && c.shift)
	case keySpace:
		if pressed && !c.space && c.ctrl && c.shift {
			c.space = true
			return true, false
		}
		if released && c.space {
			c.space = false
			return false, true
		}
	}
	return false, false
}

// feedEvents runs every key event in buf, a whole number of raw
// input_event records, through c.
func (c *combo) feedEvents(buf []byte, onDown, onUp func()) {
	for i := 0; i+inputEventSize <= len(buf); i += inputEventSize {
		ev := buf[i : i+inputEventSize]
		if binary.LittleEndian.Uint16(ev[16:]) != evKey {
			continue
		}
		down, up := c.feed(binary.LittleEndian.Uint16(ev[18:]), int32(binary.LittleEndian.Uint32(ev[20:])))
		if down {
			onDown()
		}
		if up {
			onUp()
		}
	}
}
