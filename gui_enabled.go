//go:build gui

package main

import (
	"fmt"
	"os"
	"runtime"

	"murmur/gui"
	"murmur/history"
)

var desktop *gui.App

// startGUI gives the main thread to the desktop event loop and runs the
// command line on another goroutine.
func startGUI() int {
	runtime.LockOSThread()

	code := 0
	desktop = gui.NewApp(func() {
		code = execute()
		desktop.Quit()
	})
	if err := gui.Run(desktop); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return code
}

func attachDesktop(hist *history.Store, copyText func(string) error, quit func()) surface {
	if desktop == nil {
		return nil
	}
	desktop.BindHistory(hist, copyText)
	desktop.OnQuit(quit)
	return desktop
}
