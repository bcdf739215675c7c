package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"novastudio/internal/api"
)

func newMediaCommand(ctx *commandContext) *cobra.Command {
	mediaCmd := &cobra.Command{
		Use:   "media",
		Short: "Manage media assets",
	}
	mediaCmd.AddCommand(newMediaListCommand(ctx))
	mediaCmd.AddCommand(newMediaAddCommand(ctx))
	return mediaCmd
}

func newMediaListCommand(ctx *commandContext) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List media assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			path := "/api/media"
			if kind != "" {
				path += "?kind=" + url.QueryEscape(kind)
			}
			var assets []api.MediaView
			if err := client.get(cmd.Context(), path, &assets); err != nil {
				return err
			}

			rows := make([][]string, 0, len(assets))
			for _, asset := range assets {
				source := asset.SourceURL
				if source == "" {
					source = asset.Filename
				}
				rows = append(rows, []string{
					shortID(asset.ID),
					asset.Kind,
					asset.Language,
					truncate(source, 50),
					formatTime(asset.CreatedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Kind", "Language", "Source", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Filter by media kind (video, image, audio, subtitle, avatar, voice)")
	return cmd
}

func newMediaAddCommand(ctx *commandContext) *cobra.Command {
	var req api.CreateMediaRequest

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a media asset",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var created api.MediaView
			if err := client.post(cmd.Context(), "/api/media", req, &created); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered %s asset %s\n", created.Kind, created.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&req.Kind, "kind", "k", "", "Media kind (video, image, audio, subtitle, avatar, voice)")
	cmd.Flags().StringVarP(&req.SourceURL, "url", "u", "", "Source URL")
	cmd.Flags().StringVarP(&req.Filename, "filename", "f", "", "Source filename")
	cmd.Flags().StringVarP(&req.Language, "language", "l", "", "BCP 47 language tag")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}
