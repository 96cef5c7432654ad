// Command edgectl validates, normalizes and compares product records from the shell.
package main

import (
	"fmt"
	"os"

	"github.com/competitiveedge/engine/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		if cli.IsValidationError(err) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
