// Package notify raises desktop notifications for errors the user has to
// act on.
package notify

import (
	"github.com/gen2brain/beeep"

	"murmur/log"
)

type sendFunc func(title, message string) error

type Notifier struct {
	send sendFunc
}

// New returns a Notifier that shows alerts through the desktop
// notification service. With enabled false alerts are only logged.
func New(enabled bool) *Notifier {
	n := &Notifier{}
	if enabled {
		n.send = func(title, message string) error {
			return beeep.Alert(title, message, "")
		}
	}
	return n
}

func (n *Notifier) Alert(title, message string) {
	log.Warnf("alert: %s: %s", title, message)
	if n.send == nil {
		return
	}
	if err := n.send(title, message); err != nil {
		log.Errorf("notification failed: %v", err)
	}
}
