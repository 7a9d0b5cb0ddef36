package main

import (
	"fmt"
	"os"
)

// Set at build time via ldflags.
var (
	Commit    = "unknown"
	BuildTime = "unknown"
)

func versionString() string {
	commit := Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("pendingsubs dev (commit: %s, built: %s)", commit, BuildTime)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
