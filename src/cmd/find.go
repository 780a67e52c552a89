package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/apimgr/sfind/src/finder"
	"github.com/apimgr/sfind/src/model"
	"github.com/apimgr/sfind/src/output"
)

// runFind resolves one identifier and renders the report. Root resolution
// failures come back as errors and exit non-zero; a report carrying warnings
// still prints.
func runFind(cmd *cobra.Command, identifier string) error {
	// Runtime failures are not usage errors; only unclassifiable input
	// warrants re-printing usage.
	cmd.SilenceUsage = true

	fields, err := fieldConfig()
	if err != nil {
		return err
	}

	f := finder.New(newSalesforceClient(), finder.Config{
		Fields:  fields,
		Timeout: getTimeout(),
	})

	slog.Debug("resolving", "query", identifier)
	report, err := f.Find(context.Background(), identifier)
	if err != nil {
		if errors.Is(err, model.ErrBadInput) {
			cmd.SilenceUsage = false
		}
		slog.Warn("resolution failed", "query", identifier, "error", err)
		return err
	}

	for _, w := range report.Warnings {
		slog.Warn("partial result", "kind", w.Kind, "warning", w.Message)
	}

	r := output.NewRenderer(os.Stdout, fields, colorEnabled())
	if err := r.Render(report, getOutputFormat()); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
