package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check authentication and connectivity",
	Long: `Check that a session can be acquired and the query endpoint answers.
Exits with code 0 when healthy, non-zero otherwise.

Examples:
  ` + getBinaryName() + ` status
  ` + getBinaryName() + ` status --output json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runStatus(cmd)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command) error {
	client := newSalesforceClient()

	start := time.Now()
	_, err := client.Query(cmd.Context(), "SELECT Id FROM Account LIMIT 1")
	elapsed := time.Since(start)

	if err != nil {
		switch getOutputFormat() {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.Encode(map[string]any{
				"status":           "error",
				"error":            err.Error(),
				"response_time_ms": elapsed.Milliseconds(),
			})
		default:
			fmt.Printf("Status: ERROR\n")
			fmt.Printf("Error: %v\n", err)
			fmt.Printf("Response time: %dms\n", elapsed.Milliseconds())
		}
		return fmt.Errorf("status check failed")
	}

	instance := ""
	if sess := client.Session(); sess != nil {
		instance = sess.InstanceURL
	}

	switch getOutputFormat() {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"status":           "ok",
			"instance":         instance,
			"api_version":      client.APIVersion,
			"response_time_ms": elapsed.Milliseconds(),
		})
	default:
		fmt.Printf("Status: ok\n")
		fmt.Printf("Instance: %s\n", instance)
		fmt.Printf("API version: %s\n", client.APIVersion)
		fmt.Printf("Response time: %dms\n", elapsed.Milliseconds())
	}
	return nil
}
