package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/shtrace/pkg/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the transcript JSON Schema to stdout",
	RunE:  runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	data, err := schema.Generate()
	if err != nil {
		return fmt.Errorf("generate schema: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
