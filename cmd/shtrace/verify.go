package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/shtrace/pkg/schema"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [transcript.jsonl]",
	Short: "Check a session transcript against the recording schema",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	path := args[0]

	errs, err := schema.VerifyFile(path)
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  ✗ line %d: %s\n", e.Line, e.Message)
		}
		return fmt.Errorf("%s: %d invalid record(s)", path, len(errs))
	}
	fmt.Printf("✓ %s verifies against the transcript schema\n", path)
	return nil
}
