// Package main provides the sqlscope command-line interface.
package main

import (
	"os"

	"github.com/sqlscope-dev/sqlscope/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
