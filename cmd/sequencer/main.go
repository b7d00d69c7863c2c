package main

import (
	"fmt"
	"os"
)

// osExit is a variable so tests can intercept process exit.
var osExit = os.Exit

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		osExit(1)
		return
	}
	osExit(0)
}
