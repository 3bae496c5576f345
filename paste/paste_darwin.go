//go:build darwin

package paste

import (
	"time"

	"github.com/micmonay/keybd_event"
)

const (
	shortcut    = "Cmd+V"
	settleDelay = 0 * time.Millisecond
)

func setModifier(kb *keybd_event.KeyBonding) {
	kb.HasSuper(true)
}
