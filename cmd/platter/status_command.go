package main

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/spf13/cobra"

	"platter/internal/api"
	"platter/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, stage, and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := ctx.apiAddress()
			client := api.NewClient(addr)

			status, err := client.Status(cmd.Context())
			if err != nil {
				if errors.Is(err, syscall.ECONNREFUSED) && !jsonOutput {
					return renderOfflineStatus(cmd, ctx, addr)
				}
				return wrapDaemonError(err, addr)
			}

			if jsonOutput {
				return writeJSON(cmd, status)
			}

			active, activeErr := client.ActiveMode(cmd.Context())

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout, daemonStateLine(status, colorize))
			fmt.Fprintln(stdout, workflowStateLine(status.Workflow, colorize))
			if activeErr == nil {
				fmt.Fprintln(stdout, activeModeLine(active, colorize))
			}
			fmt.Fprintln(stdout, renderStatusLine("Queue DB", statusInfo, status.QueueDBPath, colorize))
			fmt.Fprintln(stdout, renderStatusLine("Lock file", statusInfo, status.LockFilePath, colorize))
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Stages", colorize) {
				fmt.Fprintln(stdout, line)
			}
			for _, line := range stageLines(status.Workflow.Stages, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Queue", colorize) {
				fmt.Fprintln(stdout, line)
			}
			rows := buildStatusCountRows(status.Workflow.Counts)
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "Queue is empty")
				return nil
			}
			fmt.Fprintln(stdout, renderTable([]string{"Status", "Count"}, rows, 1))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func daemonStateLine(status api.StatusResponse, colorize bool) string {
	if status.Running {
		return renderStatusLine("Daemon", statusOK, "Running", colorize)
	}
	return renderStatusLine("Daemon", statusWarn, "Not running", colorize)
}

func workflowStateLine(workflow api.WorkflowView, colorize bool) string {
	switch {
	case workflow.Running && workflow.LastError != "":
		return renderStatusLine("Workflow", statusWarn, fmt.Sprintf("Running (last error: %s)", workflow.LastError), colorize)
	case workflow.Running:
		return renderStatusLine("Workflow", statusOK, "Processing jobs", colorize)
	case workflow.LastError != "":
		return renderStatusLine("Workflow", statusError, workflow.LastError, colorize)
	default:
		return renderStatusLine("Workflow", statusWarn, "Stopped", colorize)
	}
}

func activeModeLine(active bool, colorize bool) string {
	if active {
		return renderStatusLine("Active mode", statusOK, "On (detection notifications enabled)", colorize)
	}
	return renderStatusLine("Active mode", statusWarn, "Off (detection notifications suppressed)", colorize)
}

func stageLines(stages []api.StageHealthView, colorize bool) []string {
	if len(stages) == 0 {
		return []string{renderStatusLine("Stages", statusWarn, "No stage handlers configured", colorize)}
	}
	lines := make([]string, 0, len(stages))
	for _, stage := range stages {
		label := formatStatusLabel(stage.Name)
		if stage.Ready {
			detail := stage.Detail
			if detail == "" {
				detail = "Ready"
			}
			lines = append(lines, renderStatusLine(label, statusOK, detail, colorize))
			continue
		}
		detail := stage.Detail
		if detail == "" {
			detail = "not ready"
		}
		lines = append(lines, renderStatusLine(label, statusWarn, detail, colorize))
	}
	return lines
}

// renderOfflineStatus reports a stopped daemon and falls back to the local
// preflight checks so the operator still learns why a start might fail.
func renderOfflineStatus(cmd *cobra.Command, ctx *commandContext, addr string) error {
	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout, renderStatusLine("Daemon", statusError, fmt.Sprintf("Not running at %s (start the daemon with `platterd`)", addr), colorize))
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Preflight", colorize) {
		fmt.Fprintln(stdout, line)
	}
	results := preflight.RunAll(ctx.configValue())
	for _, line := range preflightLines(results, colorize) {
		fmt.Fprintln(stdout, line)
	}
	return nil
}
