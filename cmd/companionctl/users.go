package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	usersCmd := &cobra.Command{Use: "users", Short: "User operations"}

	// create
	var firstName, phone, companionName, companionVoice, interests string
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if firstName == "" || phone == "" {
				return fmt.Errorf("--name and --phone required")
			}
			payload := map[string]interface{}{
				"firstName":   firstName,
				"phoneNumber": phone,
			}
			if companionName != "" {
				payload["companionName"] = companionName
			}
			if companionVoice != "" {
				payload["companionVoice"] = companionVoice
			}
			if interests != "" {
				payload["interests"] = interests
			}
			resp, err := client().R().SetBody(payload).Post("/admin/users")
			return printResponse(resp, err)
		},
	}
	createCmd.Flags().StringVarP(&firstName, "name", "n", "", "First name (required)")
	createCmd.Flags().StringVarP(&phone, "phone", "p", "", "Phone number in E.164 form (required)")
	createCmd.Flags().StringVarP(&companionName, "companion", "c", "", "Companion display name")
	createCmd.Flags().StringVar(&companionVoice, "voice", "", "Synthesis voice ID for this user")
	createCmd.Flags().StringVarP(&interests, "interests", "i", "", "Comma-separated interests")
	_ = createCmd.MarkFlagRequired("name")
	_ = createCmd.MarkFlagRequired("phone")
	usersCmd.AddCommand(createCmd)

	// get
	getCmd := &cobra.Command{
		Use:   "get USER_ID",
		Short: "Get user by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client().R().Get("/admin/users/" + args[0])
			return printResponse(resp, err)
		},
	}
	usersCmd.AddCommand(getCmd)

	// calls
	callsCmd := &cobra.Command{
		Use:   "calls USER_ID",
		Short: "List call logs for a user, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := client().R().Get("/admin/users/" + args[0] + "/call-logs")
			return printResponse(resp, err)
		},
	}
	usersCmd.AddCommand(callsCmd)

	rootCmd.AddCommand(usersCmd)
}
