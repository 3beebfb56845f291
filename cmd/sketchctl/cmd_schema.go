package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/sketchmatch/internal/domain/extract"
)

func newSchemaCmd() *cobra.Command {
	var arrayField string
	cmd := &cobra.Command{
		Use:   "schema <record.json>",
		Short: "List the array and element fields of a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read record: %w", err)
			}
			rec, err := extract.Parse(filepath.Base(args[0]), data)
			if err != nil {
				return err
			}
			arrays := extract.ArrayKeys(rec)
			field := arrayField
			if field == "" && len(arrays) > 0 {
				field = arrays[0]
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Arrays:   %s\n", strings.Join(arrays, ", "))
			fmt.Fprintf(out, "Elements: %s\n", strings.Join(extract.ElementKeys(rec, field), ", "))
			return nil
		},
	}
	cmd.Flags().StringVar(&arrayField, "array-field", "", "Array whose element fields are listed (default: the first array)")
	return cmd
}
