package cmd

import (
	"github.com/spf13/cobra"

	"github.com/apimgr/sfind/src/finder"
	"github.com/apimgr/sfind/src/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive lookup mode",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		fields, err := fieldConfig()
		if err != nil {
			return err
		}

		f := finder.New(newSalesforceClient(), finder.Config{
			Fields:  fields,
			Timeout: getTimeout(),
		})
		return tui.Run(f, fields)
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
