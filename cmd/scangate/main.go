// Package main is the scangate CLI entry point.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/scangate/scangate/internal/cli"
	"github.com/scangate/scangate/internal/gate"
)

// Build info set at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.SetBuildInfo(version, commit, date)
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode separates invocation problems from gate outcomes: a malformed
// policy or finding, or input the process cannot read, exits 2 so pipelines
// can tell "the gate is broken" from "the gate said no".
func exitCode(err error) int {
	switch {
	case errors.Is(err, gate.ErrMalformedPolicy),
		errors.Is(err, gate.ErrMalformedFinding),
		errors.Is(err, fs.ErrNotExist),
		errors.Is(err, fs.ErrPermission):
		return 2
	}
	return 1
}
