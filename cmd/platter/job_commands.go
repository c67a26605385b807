package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"platter/internal/api"
)

func newJobCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newApproveCommand(ctx),
		newIdentifyCommand(ctx),
		newPreIdentifyCommand(ctx),
		newSkipCommand(ctx),
		newArchiveCommand(ctx),
	}
}

func newApproveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "approve <job-id>",
		Short: "Release a review job to the library mover",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Approve(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d approved (now %s)\n", resp.JobID, formatStatusLabel(resp.Status))
				return nil
			})
		},
	}
}

func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	var title string
	var year int
	var catalogID int64

	cmd := &cobra.Command{
		Use:   "identify <job-id>",
		Short: "Identify a review job by hand and release it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" && catalogID <= 0 {
				return fmt.Errorf("provide --title or --catalog-id")
			}
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Identify(cmd.Context(), id, api.IdentifyRequest{Title: title, Year: year, CatalogID: catalogID})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d identified as %s (now %s)\n",
					resp.JobID, identifiedLabel(resp), formatStatusLabel(resp.Status))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Canonical title")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "Release year")
	cmd.Flags().Int64Var(&catalogID, "catalog-id", 0, "TMDb id from 'platter search'")
	return cmd
}

func newPreIdentifyCommand(ctx *commandContext) *cobra.Command {
	var title string
	var year int
	var catalogID int64

	cmd := &cobra.Command{
		Use:   "pre-identify <job-id>",
		Short: "Pin a title on an in-flight job before identification runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" && catalogID <= 0 {
				return fmt.Errorf("provide --title or --catalog-id")
			}
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.PreIdentify(cmd.Context(), id, api.IdentifyRequest{Title: title, Year: year, CatalogID: catalogID})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d will use %s (currently %s)\n",
					resp.JobID, identifiedLabel(resp), formatStatusLabel(resp.Status))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Canonical title")
	cmd.Flags().IntVarP(&year, "year", "y", 0, "Release year")
	cmd.Flags().Int64Var(&catalogID, "catalog-id", 0, "TMDb id from 'platter search'")
	return cmd
}

func newSkipCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "skip <job-id>",
		Short: "Fail a review job instead of moving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Skip(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d skipped (now %s)\n", resp.JobID, formatStatusLabel(resp.Status))
				return nil
			})
		},
	}
}

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "archive <job-id>",
		Short: "Hide a complete or failed job from the default listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.Archive(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Job %d archived\n", resp.JobID)
				return nil
			})
		},
	}
}

func identifiedLabel(resp api.MutationResponse) string {
	title := strings.TrimSpace(resp.IdentifiedTitle)
	if title == "" {
		title = "Unknown"
	}
	if resp.IdentifiedYear > 0 {
		return fmt.Sprintf("%s (%d)", title, resp.IdentifiedYear)
	}
	return title
}

func parseJobID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", arg)
	}
	return id, nil
}

func parseRowID(kind, arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", kind, arg)
	}
	return id, nil
}
