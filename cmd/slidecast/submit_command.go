package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"slidecast/internal/api"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var voice string
	var ratePercent int
	var outputDir string

	cmd := &cobra.Command{
		Use:   "submit <deck>",
		Short: "Queue a slide deck for conversion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				req := api.SubmitRequest{
					SourcePath:  strings.TrimSpace(args[0]),
					Voice:       strings.TrimSpace(voice),
					RatePercent: ratePercent,
					OutputDir:   strings.TrimSpace(outputDir),
				}
				job, err := client.Submit(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued job %d: %s (voice %s, rate %d%%)\n",
					job.ID, job.Title, job.Voice, job.RatePercent)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&voice, "voice", "", "Narration voice (defaults to the configured voice)")
	cmd.Flags().IntVar(&ratePercent, "rate", 0, "Speech rate percent (defaults to the configured rate)")
	cmd.Flags().StringVar(&outputDir, "output", "", "Directory to deliver the video to (defaults to the configured output_dir)")
	return cmd
}
