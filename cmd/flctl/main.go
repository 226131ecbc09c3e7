// ABOUTME: Entry point for the flctl CLI
// ABOUTME: Command-line client for the FastLearners BFF

package main

import (
	"fmt"
	"os"

	"github.com/travis-wayne/fastlearners-frontend-sub005/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
