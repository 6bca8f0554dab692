package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
)

const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

func addOutputFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "output", "o", outputText, "Output format: text, json or yaml")
}

func validateOutput(format string) error {
	switch strings.ToLower(format) {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (want text, json or yaml)", format)
	}
}

// writeOutput encodes value as JSON or YAML, or calls text for the human
// rendering. YAML is derived from the JSON encoding so both share field names.
func writeOutput(w io.Writer, format string, value any, text func(io.Writer) error) error {
	switch strings.ToLower(format) {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(value)
	case outputYAML:
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode output: %w", err)
		}
		out, err := yaml.JSONToYAML(encoded)
		if err != nil {
			return fmt.Errorf("convert output to yaml: %w", err)
		}
		_, err = w.Write(out)
		return err
	case outputText:
		return text(w)
	default:
		return validateOutput(format)
	}
}
