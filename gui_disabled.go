//go:build !gui

package main

import (
	"fmt"
	"os"

	"murmur/history"
)

func startGUI() int {
	fmt.Fprintln(os.Stderr, "murmur: built without GUI support (rebuild with -tags gui)")
	return 2
}

func attachDesktop(*history.Store, func(string) error, func()) surface {
	return nil
}
