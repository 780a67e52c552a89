package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("%s v%s (%s) built %s\n", getBinaryName(), Version, CommitID, BuildDate)

		fmt.Printf("\nBuild Info:\n")
		fmt.Printf("  Go: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		fmt.Printf("  Commit: %s\n", CommitID)
		fmt.Printf("  Date: %s\n", BuildDate)

		return nil
	},
}
