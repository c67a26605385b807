package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"platter/internal/api"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var includeArchived bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List recent jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				jobs, err := client.Jobs(cmd.Context(), limit, includeArchived)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.JobListResponse{Jobs: jobs})
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Status", "Progress", "Updated"},
					buildJobRows(jobs),
					0,
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of jobs to list")
	cmd.Flags().BoolVarP(&includeArchived, "all", "a", false, "Include archived jobs")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}
