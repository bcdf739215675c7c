package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"novastudio/internal/api"
)

func newAnalyticsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics",
		Short: "Show production analytics",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var view api.AnalyticsView
			if err := client.get(cmd.Context(), "/api/analytics", &view); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Projects", "Media", "Brands", "Templates"},
				[][]string{{
					fmt.Sprintf("%d", view.Projects),
					fmt.Sprintf("%d", view.MediaAssets),
					fmt.Sprintf("%d", view.Brands),
					fmt.Sprintf("%d", view.Templates),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight},
			))

			statuses := make([]string, 0, len(view.JobsByStatus))
			for name := range view.JobsByStatus {
				statuses = append(statuses, name)
			}
			sort.Strings(statuses)
			jobRows := make([][]string, 0, len(statuses))
			for _, name := range statuses {
				jobRows = append(jobRows, []string{name, fmt.Sprintf("%d", view.JobsByStatus[name])})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Job Status", "Count"},
				jobRows,
				[]columnAlignment{alignLeft, alignRight},
			))

			if len(view.TopPlatforms) > 0 {
				platformRows := make([][]string, 0, len(view.TopPlatforms))
				for _, stat := range view.TopPlatforms {
					platformRows = append(platformRows, []string{stat.Name, fmt.Sprintf("%d", stat.Projects)})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Platform", "Projects"},
					platformRows,
					[]columnAlignment{alignLeft, alignRight},
				))
			}

			if view.TotalFinished > 0 {
				fmt.Fprintf(out, "Success rate: %.1f%% over %d finished jobs\n",
					view.SuccessRate*100, view.TotalFinished)
			}
			return nil
		},
	}
}
