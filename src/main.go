package main

import (
	"fmt"
	"os"

	"github.com/apimgr/sfind/src/cmd"
)

func main() {
	// Initialize the CLI environment before executing commands
	if err := InitCLI(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
