package main

import (
	"github.com/spf13/cobra"
)

func init() {
	tickCmd := &cobra.Command{
		Use:   "tick",
		Short: "Run one scheduler pass now and print the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client().R().Post("/admin/scheduler/tick")
			return printResponse(resp, err)
		},
	}
	rootCmd.AddCommand(tickCmd)
}
