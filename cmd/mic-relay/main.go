package main

import (
	"fmt"
	"os"

	"github.com/petems/mic-relay/cmd/mic-relay/commands"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	if err := commands.Execute(Version, Commit); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
