package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"platter/internal/api"
)

func newWantedCommand(ctx *commandContext) *cobra.Command {
	wantedCmd := &cobra.Command{
		Use:   "wanted",
		Short: "Manage the wanted list",
	}

	wantedCmd.AddCommand(newWantedListCommand(ctx))
	wantedCmd.AddCommand(newWantedAddCommand(ctx))
	wantedCmd.AddCommand(newWantedRemoveCommand(ctx))

	return wantedCmd
}

func newWantedListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List wanted titles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				items, err := client.Wanted(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.WantedResponse{Items: items})
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Wanted list is empty")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Year", "Type", "Catalog", "Added"},
					buildWantedRows(items),
					0, 2, 4,
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newWantedAddCommand(ctx *commandContext) *cobra.Command {
	var year int
	var contentType string
	var notes string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a title to the wanted list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			return ctx.withClient(func(client *api.Client) error {
				item, err := client.AddWanted(cmd.Context(), api.WantedAddRequest{
					Title:       title,
					Year:        year,
					ContentType: contentType,
					Notes:       notes,
				})
				if err != nil {
					return err
				}
				label := item.Title
				if item.Year > 0 {
					label = fmt.Sprintf("%s (%d)", item.Title, item.Year)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %q to the wanted list (id %d)\n", label, item.ID)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&year, "year", "y", 0, "Release year")
	cmd.Flags().StringVarP(&contentType, "type", "t", "", "Content type (movie or tv_season; default movie)")
	cmd.Flags().StringVar(&notes, "notes", "", "Free-form note stored with the entry")
	return cmd
}

func newWantedRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a wanted list entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRowID("wanted", args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *api.Client) error {
				if err := client.RemoveWanted(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed wanted item %d\n", id)
				return nil
			})
		},
	}
}

func buildWantedRows(items []api.WantedItemView) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		catalog := ""
		if item.CatalogID > 0 {
			catalog = strconv.FormatInt(item.CatalogID, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(item.ID, 10),
			item.Title,
			formatYear(item.Year),
			item.ContentType,
			catalog,
			formatDisplayTime(item.AddedAt),
		})
	}
	return rows
}
