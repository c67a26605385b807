package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"platter/internal/api"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *api.Client) error {
				job, err := client.Job(cmd.Context(), id)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.JobResponse{Job: job})
				}
				printJobDetail(cmd.OutOrStdout(), job)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func printJobDetail(out io.Writer, job api.JobView) {
	fmt.Fprintf(out, "Job %d: %s\n", job.ID, jobDisplayTitle(job))
	printDetailLine(out, "Status", formatStatusLabel(job.Status))
	printDetailLine(out, "Drive", job.DriveID)
	printDetailLine(out, "Disc label", job.DiscLabel)
	printDetailLine(out, "Content type", job.ContentType)
	printDetailLine(out, "Title", job.IdentifiedTitle)
	printDetailLine(out, "Year", formatYear(job.IdentifiedYear))
	if job.CatalogID > 0 {
		printDetailLine(out, "Catalog ID", strconv.FormatInt(job.CatalogID, 10))
	}
	printDetailLine(out, "Confidence", formatConfidence(job.Confidence))
	printDetailLine(out, "Poster", job.PosterRef)
	printDetailLine(out, "Rip path", job.RipPath)
	printDetailLine(out, "Encode path", job.EncodePath)
	printDetailLine(out, "Final path", job.FinalPath)
	printDetailLine(out, "Progress", formatProgress(job))
	printDetailLine(out, "Message", job.ProgressMessage)
	printDetailLine(out, "Error", job.ErrorMessage)
	printDetailLine(out, "Created", formatDisplayTime(job.CreatedAt))
	printDetailLine(out, "Updated", formatDisplayTime(job.UpdatedAt))
}

func printDetailLine(out io.Writer, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, label+":", value)
}
