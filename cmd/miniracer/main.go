// Command miniracer is a small host around the embedded engine: run a
// script file, poke at an interactive REPL, or dump heap statistics.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
