package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"novastudio/internal/api"
)

func newProjectCommand(ctx *commandContext) *cobra.Command {
	projectCmd := &cobra.Command{
		Use:   "project",
		Short: "Manage video projects",
	}
	projectCmd.AddCommand(newProjectListCommand(ctx))
	projectCmd.AddCommand(newProjectShowCommand(ctx))
	projectCmd.AddCommand(newProjectCreateCommand(ctx))
	return projectCmd
}

func newProjectListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var projects []api.ProjectView
			if err := client.get(cmd.Context(), "/api/projects", &projects); err != nil {
				return err
			}

			rows := make([][]string, 0, len(projects))
			for _, project := range projects {
				platforms := make([]string, 0, len(project.Settings.Platforms))
				for _, platform := range project.Settings.Platforms {
					platforms = append(platforms, string(platform))
				}
				rows = append(rows, []string{
					shortID(project.ID),
					truncate(project.Title, 40),
					string(project.Settings.Resolution),
					string(project.Settings.Aspect),
					strings.Join(platforms, ","),
					formatTime(project.CreatedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Resolution", "Aspect", "Platforms", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}

func newProjectShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <project-id>",
		Short: "Show one project as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var project api.ProjectView
			if err := client.get(cmd.Context(), "/api/projects/"+url.PathEscape(args[0]), &project); err != nil {
				return err
			}
			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(project)
		},
	}
}

func newProjectCreateCommand(ctx *commandContext) *cobra.Command {
	var title string
	var description string
	var fromFile string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project",
		Long:  "Create a project from flags, or from a JSON request document with --file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			var req api.CreateProjectRequest
			if fromFile != "" {
				data, err := os.ReadFile(fromFile)
				if err != nil {
					return fmt.Errorf("read project file: %w", err)
				}
				if err := json.Unmarshal(data, &req); err != nil {
					return fmt.Errorf("parse project file: %w", err)
				}
			}
			if title != "" {
				req.Title = title
			}
			if description != "" {
				req.Description = description
			}
			if strings.TrimSpace(req.Title) == "" {
				return fmt.Errorf("project title is required (use --title or provide it in --file)")
			}

			var created api.ProjectView
			if err := client.post(cmd.Context(), "/api/projects", req, &created); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s (%s)\n", created.ID, created.Title)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Project title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Project description")
	cmd.Flags().StringVarP(&fromFile, "file", "f", "", "JSON file with the full project request")
	return cmd
}
