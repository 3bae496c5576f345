//go:build !darwin

package paste

import (
	"time"

	"github.com/micmonay/keybd_event"
)

const shortcut = "Ctrl+V"

// uinput devices are not visible to the compositor immediately.
const settleDelay = 2 * time.Second

func setModifier(kb *keybd_event.KeyBonding) {
	kb.HasCTRL(true)
}
