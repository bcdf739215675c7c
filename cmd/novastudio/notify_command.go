package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification through the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			result := struct {
				Sent   bool   `json:"sent"`
				Detail string `json:"detail"`
			}{}
			if err := client.post(cmd.Context(), "/api/notifications/test", nil, &result); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Detail)
			return nil
		},
	}
}
