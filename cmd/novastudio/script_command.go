package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"novastudio/internal/api"
)

func newScriptCommand(ctx *commandContext) *cobra.Command {
	var scriptFile string
	var language string
	var platform string
	var voiceStyle string
	var noSubtitles bool

	cmd := &cobra.Command{
		Use:   "script <title>",
		Short: "Turn a narration script into a project with a queued render",
		Long: "Reads a narration script from --file or stdin, creates a project with a " +
			"voiceover timeline, and queues its first render job.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			var script []byte
			if scriptFile != "" {
				script, err = os.ReadFile(scriptFile)
				if err != nil {
					return fmt.Errorf("read script: %w", err)
				}
			} else {
				script, err = io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read script from stdin: %w", err)
				}
			}
			text := strings.TrimSpace(string(script))
			if text == "" {
				return fmt.Errorf("script is empty")
			}

			req := api.ScriptToVideoRequest{
				Title:      args[0],
				Script:     text,
				Language:   language,
				Platform:   platform,
				VoiceStyle: voiceStyle,
			}
			if noSubtitles {
				include := false
				req.IncludeSubtitles = &include
			}

			var result api.ScriptToVideoResult
			if err := client.post(cmd.Context(), "/api/scripts-to-video", req, &result); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created project %s (%s)\n", result.Project.ID, result.Project.Title)
			fmt.Fprintf(out, "Queued %s job %s\n", result.Job.TypeLabel, result.Job.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&scriptFile, "file", "f", "", "Script file (defaults to stdin)")
	cmd.Flags().StringVarP(&language, "language", "l", "", "Narration language tag")
	cmd.Flags().StringVarP(&platform, "platform", "p", "", "Target platform (youtube, tiktok, instagram)")
	cmd.Flags().StringVar(&voiceStyle, "voice", "", "Voice style (neutral, warm, energetic)")
	cmd.Flags().BoolVar(&noSubtitles, "no-subtitles", false, "Skip the generated subtitle track")
	return cmd
}
