//go:build !testcoverage

package main

import (
	"os"

	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	undo, err := maxprocs.Set()
	defer undo()
	if err != nil {
		fatal(os.Stderr, "set GOMAXPROCS: %v", err)
	}

	if err := run(os.Args, DefaultConfig()); err != nil {
		fatal(os.Stderr, "%v", err)
	}
}
