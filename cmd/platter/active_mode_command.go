package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"platter/internal/api"
)

func newActiveModeCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "active-mode",
		Short: "Show whether disc-detection notifications are enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				active, err := client.ActiveMode(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Active mode: %s\n", yesNo(active))
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "toggle",
		Short: "Flip active mode",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				active, err := client.ToggleActiveMode(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Active mode is now %s\n", yesNo(active))
				return nil
			})
		},
	})

	return cmd
}
