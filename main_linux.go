//go:build linux

package main

import "os"

func main() {
	if wantsGUI(os.Args[1:]) {
		os.Exit(startGUI())
	}
	os.Exit(execute())
}
