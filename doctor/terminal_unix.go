//go:build !windows

package doctor

import "os/exec"

// ResetTerminal restores cooked mode after a check that grabbed the
// keyboard.
func ResetTerminal() {
	exec.Command("stty", "sane").Run()
}
