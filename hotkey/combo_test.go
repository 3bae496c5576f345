package hotkey

import (
	"encoding/binary"
	"testing"
)

const keyRepeat = 2

type keyEvent struct {
	code  uint16
	value int32
}

func feedAll(c *combo, events []keyEvent) (downs, ups int) {
	for _, ev := range events {
		d, u := c.feed(ev.code, ev.value)
		if d {
			downs++
		}
		if u {
			ups++
		}
	}
	return downs, ups
}

func TestComboPressRelease(t *testing.T) {
	tests := []struct {
		name       string
		events     []keyEvent
		downs, ups int
	}{
		{
			name: "full combo",
			events: []keyEvent{
				{keyLCtrl, keyPress}, {keyLShift, keyPress}, {keySpace, keyPress},
				{keySpace, keyRelease}, {keyLShift, keyRelease}, {keyLCtrl, keyRelease},
			},
			downs: 1, ups: 1,
		},
		{
			name: "right modifiers",
			events: []keyEvent{
				{keyRCtrl, keyPress}, {keyRShift, keyPress}, {keySpace, keyPress}, {keySpace, keyRelease},
			},
			downs: 1, ups: 1,
		},
		{
			name: "space without shift",
			events: []keyEvent{
				{keyLCtrl, keyPress}, {keySpace, keyPress}, {keySpace, keyRelease},
			},
		},
		{
			name: "auto-repeat ignored",
			events: []keyEvent{
				{keyLCtrl, keyPress}, {keyLShift, keyPress}, {keySpace, keyPress},
				{keySpace, keyRepeat}, {keySpace, keyRepeat}, {keySpace, keyRelease},
			},
			downs: 1, ups: 1,
		},
		{
			name: "modifiers released before space",
			events: []keyEvent{
				{keyLCtrl, keyPress}, {keyLShift, keyPress}, {keySpace, keyPress},
				{keyLCtrl, keyRelease}, {keyLShift, keyRelease}, {keySpace, keyRelease},
			},
			downs: 1, ups: 1,
		},
		{
			name: "modifier repeat keeps state",
			events: []keyEvent{
				{keyLCtrl, keyPress}, {keyLCtrl, keyRepeat}, {keyLShift, keyPress}, {keySpace, keyPress},
			},
			downs: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c combo
			downs, ups := feedAll(&c, tt.events)
			if downs != tt.downs || ups != tt.ups {
				t.Errorf("downs=%d ups=%d, want downs=%d ups=%d", downs, ups, tt.downs, tt.ups)
			}
		})
	}
}

func rawEvent(typ, code uint16, value int32) []byte {
	ev := make([]byte, inputEventSize)
	binary.LittleEndian.PutUint16(ev[16:], typ)
	binary.LittleEndian.PutUint16(ev[18:], code)
	binary.LittleEndian.PutUint32(ev[20:], uint32(value))
	return ev
}

func TestFeedEventsDecodesRawRecords(t *testing.T) {
	const evSyn = 0
	var buf []byte
	for _, ev := range []keyEvent{
		{keyLCtrl, keyPress}, {keyRShift, keyPress}, {keySpace, keyPress},
	} {
		buf = append(buf, rawEvent(evKey, ev.code, ev.value)...)
		buf = append(buf, rawEvent(evSyn, 0, 0)...)
	}
	buf = append(buf, rawEvent(evKey, keySpace, keyRelease)...)
	// a trailing partial record is ignored
	buf = append(buf, 1, 2, 3)

	var c combo
	downs, ups := 0, 0
	c.feedEvents(buf, func() { downs++ }, func() { ups++ })
	if downs != 1 || ups != 1 {
		t.Errorf("downs=%d ups=%d, want 1 and 1", downs, ups)
	}
}
