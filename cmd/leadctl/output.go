package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func printResult(cmd *cobra.Command, v any, text string) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "text":
		_, err := fmt.Fprintln(cmd.OutOrStdout(), text)
		return err
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
}
