//go:build windows

package doctor

func ResetTerminal() {
	// Not needed on Windows
}
