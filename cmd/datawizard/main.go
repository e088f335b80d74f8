// Command datawizard runs the data analysis wizard: cleaning, exploratory
// analysis, analysis suggestion, a human choice of analysis type,
// preprocessing and the final analysis.
package main

import (
	"fmt"
	"os"
)

// version is set by goreleaser at build time.
var version = "dev"

func main() {
	if err := newRootCmd(newApp(os.Stdin, os.Stdout, os.Stderr)).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
