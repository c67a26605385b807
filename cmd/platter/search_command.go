package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"platter/internal/api"
)

const overviewColumnWidth = 60

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var year int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the movie catalog through the daemon",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			return ctx.withClient(func(client *api.Client) error {
				results, err := client.SearchCatalog(cmd.Context(), query, year)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, api.CatalogSearchResponse{Results: results})
				}
				if len(results) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No matches")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Catalog", "Title", "Year", "Overview"},
					buildSearchRows(results),
					0, 2,
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&year, "year", "y", 0, "Restrict matches to a release year")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func buildSearchRows(results []api.CatalogResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		rows = append(rows, []string{
			strconv.FormatInt(result.CatalogID, 10),
			result.Title,
			formatYear(result.Year),
			truncateText(result.Overview, overviewColumnWidth),
		})
	}
	return rows
}

func truncateText(value string, max int) string {
	value = strings.TrimSpace(value)
	if max <= 3 {
		return value
	}
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-3]) + "..."
}
