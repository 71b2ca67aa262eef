package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	schedulesCmd := &cobra.Command{Use: "schedules", Short: "Call schedule operations"}

	// create
	var userID, day, at string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a weekly call schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" || day == "" || at == "" {
				return fmt.Errorf("--user, --day and --at required")
			}
			payload := map[string]interface{}{
				"userId":    userID,
				"dayOfWeek": day,
				"callTime":  at,
			}
			resp, err := client().R().SetBody(payload).Post("/admin/schedules")
			return printResponse(resp, err)
		},
	}
	createCmd.Flags().StringVarP(&userID, "user", "u", "", "User ID (required)")
	createCmd.Flags().StringVarP(&day, "day", "d", "", "Weekday abbreviation, e.g. Mon (required)")
	createCmd.Flags().StringVarP(&at, "at", "t", "", "Call time as HH:MM (required)")
	_ = createCmd.MarkFlagRequired("user")
	_ = createCmd.MarkFlagRequired("day")
	_ = createCmd.MarkFlagRequired("at")
	schedulesCmd.AddCommand(createCmd)

	// list
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List enabled schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client().R().Get("/admin/schedules")
			return printResponse(resp, err)
		},
	}
	schedulesCmd.AddCommand(listCmd)

	// enable / disable
	for _, mode := range []struct {
		use     string
		short   string
		enabled bool
	}{
		{"enable SCHEDULE_ID", "Enable a schedule", true},
		{"disable SCHEDULE_ID", "Disable a schedule", false},
	} {
		mode := mode
		schedulesCmd.AddCommand(&cobra.Command{
			Use:   mode.use,
			Short: mode.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				resp, err := client().R().
					SetBody(map[string]bool{"enabled": mode.enabled}).
					Patch("/admin/schedules/" + args[0] + "/enabled")
				return printResponse(resp, err)
			},
		})
	}

	rootCmd.AddCommand(schedulesCmd)
}
