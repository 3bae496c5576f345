//go:build !linux

package main

import (
	"os"
	"runtime"

	"golang.design/x/hotkey/mainthread"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	if wantsGUI(os.Args[1:]) {
		// takes the main thread, runs execute on a goroutine
		os.Exit(startGUI())
	}
	// the hotkey backend needs the main thread's run loop
	code := 0
	mainthread.Init(func() { code = execute() })
	os.Exit(code)
}
