package main

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"novastudio/internal/api"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Manage render jobs",
	}
	jobCmd.AddCommand(newJobListCommand(ctx))
	jobCmd.AddCommand(newJobShowCommand(ctx))
	jobCmd.AddCommand(newJobSubmitCommand(ctx))
	jobCmd.AddCommand(newJobCancelCommand(ctx))
	return jobCmd
}

func newJobListCommand(ctx *commandContext) *cobra.Command {
	var projectID string
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List render jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			query := url.Values{}
			if projectID != "" {
				query.Set("project", projectID)
			}
			if status != "" {
				query.Set("status", status)
			}
			if limit > 0 {
				query.Set("limit", fmt.Sprintf("%d", limit))
			}
			path := "/api/jobs"
			if encoded := query.Encode(); encoded != "" {
				path += "?" + encoded
			}

			var views []api.JobView
			if err := client.get(cmd.Context(), path, &views); err != nil {
				return err
			}

			rows := make([][]string, 0, len(views))
			for _, view := range views {
				detail := view.ProgressMessage
				if view.ErrorMessage != "" {
					detail = view.ErrorMessage
				}
				rows = append(rows, []string{
					shortID(view.ID),
					shortID(view.ProjectID),
					view.TypeLabel,
					view.Status,
					formatProgress(view.Status, view.Progress),
					fmt.Sprintf("%d", view.Attempts),
					truncate(detail, 40),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Project", "Type", "Status", "Progress", "Attempts", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Filter by project ID")
	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by status (queued, running, completed, failed, cancelled)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of jobs to list")
	return cmd
}

func newJobShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var view api.JobView
			if err := client.get(cmd.Context(), "/api/jobs/"+url.PathEscape(args[0]), &view); err != nil {
				return err
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(view)
		},
	}
}

func newJobSubmitCommand(ctx *commandContext) *cobra.Command {
	var jobType string
	var params string

	cmd := &cobra.Command{
		Use:   "submit <project-id>",
		Short: "Queue a render job for a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			req := api.SubmitJobRequest{ProjectID: args[0], Type: jobType}
			if params != "" {
				if !json.Valid([]byte(params)) {
					return fmt.Errorf("--params must be a JSON object")
				}
				req.Params = json.RawMessage(params)
			}

			var view api.JobView
			if err := client.post(cmd.Context(), "/api/jobs", req, &view); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s job %s\n", view.TypeLabel, view.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&jobType, "type", "t", "render", "Job type (render, dub, subtitles, translate, edit, avatar)")
	cmd.Flags().StringVar(&params, "params", "", "Job parameters as a JSON object")
	return cmd
}

func newJobCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a queued or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var view api.JobView
			if err := client.post(cmd.Context(), "/api/jobs/"+url.PathEscape(args[0])+"/cancel", nil, &view); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s is now %s\n", shortID(view.ID), view.Status)
			return nil
		},
	}
}
