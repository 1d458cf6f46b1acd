package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdrshnv/deid/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether the inference service is available",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "status")
		defer span.End()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		pipeline, err := buildPipeline(cfg, true)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if pipeline.CheckInferenceAvailable(ctx) {
			fmt.Fprintf(out, "inference: available (%s, model %s)\n", cfg.OllamaBaseURL, cfg.OllamaModel)
		} else {
			fmt.Fprintf(out, "inference: unavailable (%s); names will not be redacted\n", cfg.OllamaBaseURL)
		}
		if !pipeline.NamesEnabled() {
			fmt.Fprintln(out, "names: disabled by configuration")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
