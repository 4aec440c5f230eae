// Command doctrack is the command-line client for a change-tracked document store.
package main

import (
	"os"

	"github.com/kilupskalvis/doctrack/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
