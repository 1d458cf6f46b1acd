package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sdrshnv/deid/internal/config"
)

var (
	redactFile    string
	redactJSON    bool
	redactNoNames bool
)

var redactCmd = &cobra.Command{
	Use:   "redact [text]",
	Short: "Redact PII from text given as arguments, --file, or stdin",
	Example: `  deid redact "Mail ada@example.com about /home/ada/notes.txt"
  deid redact --file ticket.txt --json
  cat log.txt | deid redact --no-names`,
	RunE: runRedact,
}

func init() {
	redactCmd.Flags().StringVarP(&redactFile, "file", "f", "", "read text from file")
	redactCmd.Flags().BoolVar(&redactJSON, "json", false, "print redacted text, entities and degraded flag as JSON")
	redactCmd.Flags().BoolVar(&redactNoNames, "no-names", false, "skip name detection (emails and paths only)")
	rootCmd.AddCommand(redactCmd)
}

func runRedact(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "redact")
	defer span.End()

	text, err := readRedactInput(cmd, args)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	pipeline, err := buildPipeline(cfg, !redactNoNames)
	if err != nil {
		return err
	}

	res, err := pipeline.Analyze(ctx, text)
	if err != nil {
		return fmt.Errorf("redacting: %w", err)
	}

	out := cmd.OutOrStdout()
	if redactJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err = fmt.Fprint(out, res.Redacted)
	if err == nil && !strings.HasSuffix(res.Redacted, "\n") {
		_, err = fmt.Fprintln(out)
	}
	return err
}

func readRedactInput(cmd *cobra.Command, args []string) (string, error) {
	switch {
	case len(args) > 0 && redactFile != "":
		return "", fmt.Errorf("pass text as arguments or --file, not both")
	case len(args) > 0:
		return strings.Join(args, " "), nil
	case redactFile != "":
		b, err := os.ReadFile(redactFile)
		if err != nil {
			return "", fmt.Errorf("reading input file: %w", err)
		}
		return string(b), nil
	default:
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(b), nil
	}
}
