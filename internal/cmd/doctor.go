package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sdrshnv/deid/internal/doctor"
)

var (
	doctorJSON          bool
	doctorSkipInference bool
)

var (
	passGlyph = color.New(color.FgGreen, color.Bold).Sprint("✓")
	warnGlyph = color.New(color.FgYellow, color.Bold).Sprint("!")
	failGlyph = color.New(color.FgRed, color.Bold).Sprint("✗")
	fixColor  = color.New(color.Faint)
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run preflight checks (config, detectors, inference service, model)",
	Long:  "Verifies configuration loads, structured detectors compile, the names prompt parses, the inference service answers, and the configured model is pulled.",
	RunE:  runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "print the report as JSON")
	doctorCmd.Flags().BoolVar(&doctorSkipInference, "skip-inference", false, "skip inference service checks (offline/CI)")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
	defer cancel()
	ctx, span := tracer.Start(ctx, "doctor")
	defer span.End()

	report := doctor.Run(ctx, doctor.Options{SkipInference: doctorSkipInference})

	out := cmd.OutOrStdout()
	if doctorJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		printReport(out, report)
	}

	if report.Status == "fail" {
		return fmt.Errorf("preflight checks failed")
	}
	return nil
}

func printReport(out io.Writer, report *doctor.Report) {
	for _, c := range report.Checks {
		glyph := passGlyph
		switch c.Status {
		case "warn":
			glyph = warnGlyph
		case "fail":
			glyph = failGlyph
		}
		fmt.Fprintf(out, "%s %-20s %s\n", glyph, c.Name, c.Message)
		if c.Fix != "" && c.Status != "pass" {
			fmt.Fprintf(out, "  %s\n", fixColor.Sprint("fix: "+c.Fix))
		}
	}
	fmt.Fprintf(out, "\n%d passed, %d warnings, %d failed\n",
		report.Summary.Pass, report.Summary.Warn, report.Summary.Fail)
}
