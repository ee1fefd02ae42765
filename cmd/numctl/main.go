// Package main is the numctl command line for serialgen.
package main

import (
	"os"

	"serialgen/internal/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
