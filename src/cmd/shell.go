package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Shell integration commands",
	Long:  `Shell integration for completions and init scripts.`,
}

var completionsCmd = &cobra.Command{
	Use:   "completions [bash|zsh|fish|powershell]",
	Short: "Generate shell completions",
	Long: `Generate shell completion script for the specified shell.
If no shell is specified, auto-detects from $SHELL environment variable.

Examples:
  # Auto-detect shell
  ` + getBinaryName() + ` shell completions > ~/.local/share/bash-completion/completions/` + getBinaryName() + `

  # Specific shell
  ` + getBinaryName() + ` shell completions bash > ~/.local/share/bash-completion/completions/` + getBinaryName() + `
  ` + getBinaryName() + ` shell completions zsh > ~/.zsh/completions/_` + getBinaryName() + `
  ` + getBinaryName() + ` shell completions fish > ~/.config/fish/completions/` + getBinaryName() + `.fish`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell", "pwsh"},
	RunE: func(cmd *cobra.Command, args []string) error {
		shell := detectShell()
		if len(args) > 0 {
			shell = args[0]
		}
		return printCompletions(shell)
	},
}

var shellInitCmd = &cobra.Command{
	Use:   "init [bash|zsh|fish|powershell]",
	Short: "Generate shell init command",
	Long: `Generate shell init command for eval.
If no shell is specified, auto-detects from $SHELL environment variable.

Add to your shell rc file:
  eval "$(` + getBinaryName() + ` shell init)"`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell", "pwsh"},
	RunE: func(cmd *cobra.Command, args []string) error {
		shell := detectShell()
		if len(args) > 0 {
			shell = args[0]
		}
		return printInit(shell)
	},
}

func init() {
	shellCmd.AddCommand(completionsCmd)
	shellCmd.AddCommand(shellInitCmd)
	rootCmd.AddCommand(shellCmd)
}

// detectShell auto-detects shell from $SHELL environment variable
func detectShell() string {
	shellPath := os.Getenv("SHELL")
	if shellPath == "" {
		return "bash"
	}
	// Handle both Unix forward slash and Windows backslash separators
	base := filepath.Base(shellPath)
	if idx := strings.LastIndex(base, "\\"); idx >= 0 {
		base = base[idx+1:]
	}
	return base
}

// printCompletions generates and prints shell completion script
func printCompletions(shell string) error {
	switch shell {
	case "bash":
		return rootCmd.GenBashCompletionV2(os.Stdout, true)
	case "zsh":
		return rootCmd.GenZshCompletion(os.Stdout)
	case "fish":
		return rootCmd.GenFishCompletion(os.Stdout, true)
	case "powershell", "pwsh":
		return rootCmd.GenPowerShellCompletionWithDesc(os.Stdout)
	default:
		return fmt.Errorf("unsupported shell: %s\nSupported: bash, zsh, fish, powershell", shell)
	}
}

// printInit generates shell init command for eval
func printInit(shell string) error {
	binaryName := getBinaryName()

	switch shell {
	case "bash":
		fmt.Printf("source <(%s shell completions bash)\n", binaryName)
	case "zsh":
		fmt.Printf("source <(%s shell completions zsh)\n", binaryName)
	case "fish":
		fmt.Printf("%s shell completions fish | source\n", binaryName)
	case "powershell", "pwsh":
		fmt.Printf("Invoke-Expression (& %s shell completions powershell)\n", binaryName)
	default:
		return fmt.Errorf("unsupported shell: %s\nSupported: bash, zsh, fish, powershell", shell)
	}
	return nil
}
