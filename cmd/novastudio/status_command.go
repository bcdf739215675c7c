package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"novastudio/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var status api.StatusView
			if err := client.get(cmd.Context(), "/api/status", &status); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scheduler running: %s\n", yesNo(status.Running))
			if status.LastError != "" {
				fmt.Fprintf(out, "Last error: %s\n", status.LastError)
			}

			statuses := make([]string, 0, len(status.QueueStats))
			for name := range status.QueueStats {
				statuses = append(statuses, name)
			}
			sort.Strings(statuses)
			rows := make([][]string, 0, len(statuses))
			for _, name := range statuses {
				rows = append(rows, []string{name, fmt.Sprintf("%d", status.QueueStats[name])})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Status", "Jobs"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))

			if len(status.WorkerHealth) > 0 {
				healthRows := make([][]string, 0, len(status.WorkerHealth))
				for _, health := range status.WorkerHealth {
					healthRows = append(healthRows, []string{health.Name, yesNo(health.Ready), health.Detail})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Worker", "Ready", "Detail"},
					healthRows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
			}

			if status.LastJob != nil {
				fmt.Fprintf(out, "Last job: %s %s (%s)\n",
					shortID(status.LastJob.ID), status.LastJob.TypeLabel, status.LastJob.Status)
			}
			return nil
		},
	}
}
