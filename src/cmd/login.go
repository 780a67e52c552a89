package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/apimgr/sfind/src/paths"
	"github.com/apimgr/sfind/src/salesforce"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and cache a session",
	Long: `Authenticate against Salesforce with the configured credentials and cache
the session for later invocations.

The password is prompted for when not configured and stdin is a terminal.

Examples:
  ` + getBinaryName() + ` login
  ` + getBinaryName() + ` login --sandbox`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runLogin(cmd.Context())
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the cached session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runLogout()
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

func runLogin(ctx context.Context) error {
	creds := buildCredentials()

	if creds.Password == "" {
		password, err := promptPassword(fmt.Sprintf("Password for %s: ", creds.Username))
		if err != nil {
			return err
		}
		creds.Password = password
	}

	client := newSalesforceClient()
	client.Creds = creds

	// Drop any stale session so login always exercises the credentials.
	if err := client.Logout(); err != nil {
		return fmt.Errorf("clear cached session: %w", err)
	}
	if err := client.Login(ctx); err != nil {
		return err
	}

	// A trivial query proves the session is usable, not just issued.
	if _, err := client.Query(ctx, "SELECT Id FROM Account LIMIT 1"); err != nil {
		return fmt.Errorf("session verification failed: %w", err)
	}

	sess := client.Session()
	fmt.Printf("Logged in to %s\n", sess.InstanceURL)
	fmt.Printf("Session cached at %s\n", paths.SessionFile())
	return nil
}

func runLogout() error {
	store := salesforce.NewSessionStore(paths.SessionFile())
	if _, ok := store.Load(); !ok {
		fmt.Println("No cached session found")
		return nil
	}
	if err := store.Clear(); err != nil {
		return fmt.Errorf("remove cached session: %w", err)
	}
	fmt.Println("Session removed")
	return nil
}

// promptPassword reads a password without echo on a terminal, or a plain
// line when stdin is a pipe.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	if term.IsTerminal(int(syscall.Stdin)) {
		raw, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(string(raw)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}
