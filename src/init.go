// Package main provides CLI initialization functions
package main

import (
	"fmt"

	"github.com/apimgr/sfind/src/paths"
)

// InitCLI prepares the CLI environment: all directories must exist with
// correct permissions before any file operations. Logging is initialized
// later, once the configuration file has been read.
func InitCLI() error {
	if err := paths.EnsureDirs(); err != nil {
		return fmt.Errorf("init directories: %w", err)
	}
	return nil
}
