package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sdrshnv/deid/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage deid configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show resolved configuration (API keys masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, span := tracer.Start(cmd.Context(), "config.show")
		defer span.End()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		source := viper.ConfigFileUsed()
		if source == "" {
			source = "(none; env and defaults)"
		}

		out := cmd.OutOrStdout()
		rows := [][2]string{
			{"config_file", source},
			{config.KeyOllamaBaseURL, cfg.OllamaBaseURL},
			{config.KeyOllamaModel, cfg.OllamaModel},
			{config.KeyNameTimeout, cfg.NameTimeout.String()},
			{config.KeyHealthTimeout, cfg.HealthTimeout.String()},
			{config.KeyNamesEnabled, fmt.Sprintf("%t", cfg.NamesEnabled)},
			{config.KeyPromptFile, orUnset(cfg.PromptFile)},
			{config.KeyPatternFile, orUnset(cfg.PatternFile)},
			{config.KeyDisabledEntities, orUnset(strings.Join(cfg.DisabledEntities, ","))},
			{config.KeyLogFile, orUnset(cfg.LogFile)},
			{config.KeyRateLimitRPM, fmt.Sprintf("%d", cfg.RateLimitRPM)},
			{config.KeyAPIKeys, orUnset(strings.Join(cfg.MaskedAPIKeys(), ","))},
		}
		for _, r := range rows {
			fmt.Fprintf(out, "%-18s %s\n", r[0]+":", r[1])
		}
		return nil
	},
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
