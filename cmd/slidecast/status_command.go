package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"slidecast/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Daemon", colorize) {
					fmt.Fprintln(stdout, line)
				}
				daemonKind := statusOK
				daemonDetail := fmt.Sprintf("pid %d", status.PID)
				if !status.Running {
					daemonKind = statusError
					daemonDetail = "not running"
				}
				fmt.Fprintln(stdout, renderStatusLine("Daemon", daemonKind, daemonDetail, colorize))
				workflowKind := statusOK
				workflowDetail := "processing enabled"
				if !status.Workflow.Running {
					workflowKind = statusWarn
					workflowDetail = "stopped"
				}
				fmt.Fprintln(stdout, renderStatusLine("Workflow", workflowKind, workflowDetail, colorize))
				if lastErr := strings.TrimSpace(status.Workflow.LastError); lastErr != "" {
					fmt.Fprintln(stdout, renderStatusLine("Last error", statusError, lastErr, colorize))
				}
				fmt.Fprintln(stdout, renderStatusLine("Queue database", statusInfo, status.QueueDBPath, colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Stages", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, stageHealth := range status.Workflow.StageHealth {
					kind := statusOK
					detail := stageHealth.Detail
					if !stageHealth.Ready {
						kind = statusError
					}
					fmt.Fprintln(stdout, renderStatusLine(stageHealth.Name, kind, detail, colorize))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Dependencies", colorize) {
					fmt.Fprintln(stdout, line)
				}
				for _, dep := range status.Dependencies {
					fmt.Fprintln(stdout, renderStatusLine(dep.Name, dependencyKind(dep), dependencyDetail(dep), colorize))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Queue", colorize) {
					fmt.Fprintln(stdout, line)
				}
				rows := buildQueueStatusRows(status.Workflow.QueueStats)
				if len(rows) == 0 {
					fmt.Fprintln(stdout, statusIndent+"Queue is empty")
					return nil
				}
				table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}
}

func dependencyKind(dep api.DependencyStatus) statusKind {
	if dep.Available {
		return statusOK
	}
	if dep.Optional {
		return statusWarn
	}
	return statusError
}

func dependencyDetail(dep api.DependencyStatus) string {
	if dep.Available {
		return strings.TrimSpace(dep.Detail)
	}
	detail := "not found"
	if dep.Optional {
		detail += " (optional)"
	}
	if desc := strings.TrimSpace(dep.Description); desc != "" {
		detail += "; " + desc
	}
	return detail
}
