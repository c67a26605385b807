package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"platter/internal/api"
)

func newOversightCommand(ctx *commandContext) *cobra.Command {
	oversightCmd := &cobra.Command{
		Use:   "oversight",
		Short: "Inspect and repair queue consistency",
	}

	oversightCmd.AddCommand(newOversightCheckCommand(ctx))
	oversightCmd.AddCommand(newOversightFixEncodingCommand(ctx))

	return oversightCmd
}

func newOversightCheckCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report queue consistency issues without changing state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				check, err := client.OversightCheck(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, check)
				}
				out := cmd.OutOrStdout()
				if check.Count == 0 {
					fmt.Fprintln(out, "No issues found")
					return nil
				}
				fmt.Fprintf(out, "%d issues found:\n", check.Count)
				for _, issue := range check.Issues {
					fmt.Fprintf(out, "  - %s\n", issue)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newOversightFixEncodingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fix-encoding",
		Short: "Revert surplus encoding jobs so one encode proceeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				result, err := client.FixEncoding(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if result.Fixed == 0 {
					fmt.Fprintln(out, "No surplus encoding jobs")
					return nil
				}
				fmt.Fprintf(out, "Reverted %d surplus encoding jobs to ripped\n", result.Fixed)
				return nil
			})
		},
	}
}
