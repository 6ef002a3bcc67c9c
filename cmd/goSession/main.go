// Package main is a command-line client that keeps one laundry storefront session on disk
// or in Redis.
package main

import (
	"fmt"
	"os"

	goSession "github.com/MrEthical07/goSession"
)

// Version information set at build time.
var (
	commit = "unknown"
	date   = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", goSession.Version, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
